package rf

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// CaptureHeader is written next to a cf32 capture as <path>.hdr.
// Layout:
//
//	MAGIC      4B   "ULSF"
//	VERSION    u16  0x0001
//	SAMPLES    u64  complex samples in the capture
//	SHA256     32B  digest of the capture bytes
//	SAMPLERATE u32  Hz
//	RESERVED   8B   zeros
const (
	captureMagic     = "ULSF"
	captureHeaderLen = 4 + 2 + 8 + 32 + 4 + 8

	// HeaderSuffix is appended to the capture path to name its header.
	HeaderSuffix = ".hdr"
)

var ErrCaptureMismatch = errors.New("capture does not match its header")

type CaptureHeader struct {
	Version    uint16
	Samples    uint64
	SHA256     [32]byte
	SampleRate uint32
}

func (h *CaptureHeader) MarshalBinary() ([]byte, error) {
	b := make([]byte, captureHeaderLen)
	copy(b[0:4], captureMagic)
	binary.LittleEndian.PutUint16(b[4:6], h.Version)
	binary.LittleEndian.PutUint64(b[6:14], h.Samples)
	copy(b[14:46], h.SHA256[:])
	binary.LittleEndian.PutUint32(b[46:50], h.SampleRate)
	return b, nil
}

func (h *CaptureHeader) UnmarshalBinary(b []byte) error {
	if len(b) < captureHeaderLen {
		return errors.New("short header")
	}
	if string(b[0:4]) != captureMagic {
		return errors.New("bad magic")
	}
	h.Version = binary.LittleEndian.Uint16(b[4:6])
	if h.Version != 1 {
		return fmt.Errorf("unsupported version %d", h.Version)
	}
	h.Samples = binary.LittleEndian.Uint64(b[6:14])
	copy(h.SHA256[:], b[14:46])
	h.SampleRate = binary.LittleEndian.Uint32(b[46:50])
	return nil
}

// ReadHeader loads the header written for the capture at path.
func ReadHeader(path string) (*CaptureHeader, error) {
	raw, err := os.ReadFile(path + HeaderSuffix)
	if err != nil {
		return nil, err
	}
	h := &CaptureHeader{}
	if err := h.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("%s: %w", path+HeaderSuffix, err)
	}
	return h, nil
}

// Verify checks the capture at path against its header.
func Verify(path string) (*CaptureHeader, error) {
	h, err := ReadHeader(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sum, n, err := computeSHA256(f)
	if err != nil {
		return nil, err
	}
	if n != 8*h.Samples || sum != h.SHA256 {
		return h, fmt.Errorf("%w: %d bytes, header says %d samples", ErrCaptureMismatch, n, h.Samples)
	}
	return h, nil
}

func computeSHA256(r io.Reader) ([32]byte, uint64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return [32]byte{}, 0, err
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum, uint64(n), nil
}
