package lte

import (
	"fmt"
	"strings"
)

// Modulation is the closed set of PUSCH modulation schemes.
type Modulation int

const (
	QPSK Modulation = iota
	QAM16
	QAM64
)

// BitsPerSymbol returns Qm.
func (m Modulation) BitsPerSymbol() int {
	switch m {
	case QPSK:
		return 2
	case QAM16:
		return 4
	case QAM64:
		return 6
	}
	panic(fmt.Sprintf("lte: invalid modulation %d", int(m)))
}

// Valid reports whether m is one of the defined schemes.
func (m Modulation) Valid() bool { return m >= QPSK && m <= QAM64 }

func (m Modulation) String() string {
	switch m {
	case QPSK:
		return "QPSK"
	case QAM16:
		return "16QAM"
	case QAM64:
		return "64QAM"
	default:
		return fmt.Sprintf("Modulation(%d)", int(m))
	}
}

// ParseModulation maps the harness names ("QPSK", "16QAM", "64QAM") to a Modulation.
func ParseModulation(s string) (Modulation, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "")) {
	case "QPSK":
		return QPSK, nil
	case "16QAM", "QAM16":
		return QAM16, nil
	case "64QAM", "QAM64":
		return QAM64, nil
	}
	return 0, fmt.Errorf("%w: unknown modulation %q", ErrInvalidConfiguration, s)
}
