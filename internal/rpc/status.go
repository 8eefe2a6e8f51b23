package rpc

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/observe-l/ulsch/lte"
)

var sentinels = []struct {
	err  error
	code codes.Code
}{
	{lte.ErrInvalidConfiguration, codes.InvalidArgument},
	{lte.ErrInvalidBitLength, codes.InvalidArgument},
	{lte.ErrProcessNotInitialized, codes.FailedPrecondition},
	{lte.ErrAllocationMismatch, codes.FailedPrecondition},
	{lte.ErrAllocationTooSmall, codes.OutOfRange},
	{lte.ErrControlOverflow, codes.ResourceExhausted},
}

// ToStatus converts an encoder error into a gRPC status whose message starts with the
// error class.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTooManyProcesses) {
		return status.Error(codes.ResourceExhausted, err.Error())
	}
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return status.Error(s.code, lte.ErrorClass(err)+": "+err.Error())
		}
	}
	return status.Error(codes.Internal, err.Error())
}

// FromStatus restores the encoder sentinel carried by a status created by ToStatus so
// callers can keep using errors.Is.
func FromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	class, msg, found := strings.Cut(st.Message(), ": ")
	if !found {
		return err
	}
	for _, s := range sentinels {
		if lte.ErrorClass(s.err) == class && st.Code() == s.code {
			return fmt.Errorf("remote: %w (%s)", s.err, msg)
		}
	}
	return err
}
