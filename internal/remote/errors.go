package remote

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/surface-sampler/internal/instrument"
)

// ErrInvalidRequest is returned for malformed operator requests.
var ErrInvalidRequest = errors.New("invalid request")

// ToStatusError maps instrument errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, instrument.ErrOutOfRange):
		return status.Error(codes.OutOfRange, err.Error())

	case errors.Is(err, instrument.ErrCapacity):
		return status.Error(codes.ResourceExhausted, err.Error())

	case errors.Is(err, instrument.ErrRecordNotHeld):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, instrument.ErrNoTransmitter),
		errors.Is(err, instrument.ErrNoLab),
		errors.Is(err, instrument.ErrClosed):
		return status.Error(codes.Unavailable, err.Error())

	case errors.Is(err, instrument.ErrTransferDeclined),
		errors.Is(err, instrument.ErrTransferRejected):
		return status.Error(codes.Aborted, err.Error())

	case errors.Is(err, instrument.ErrNothingToReset),
		errors.Is(err, instrument.ErrUsageRequirements),
		errors.Is(err, instrument.ErrExperimentUnavailable),
		errors.Is(err, instrument.ErrNoSubject):
		return status.Error(codes.FailedPrecondition, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
