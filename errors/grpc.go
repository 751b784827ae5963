package errors

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MapToGRPCError converts a domain error into a gRPC status with the same
// public message a socket client would get.
func MapToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	var code codes.Code
	switch KindOf(err) {
	case KindForbidden:
		code = codes.PermissionDenied
	case KindNotFound:
		code = codes.NotFound
	case KindInvalidBody:
		code = codes.InvalidArgument
	case KindUnauthenticated:
		code = codes.Unauthenticated
	case KindRateLimited:
		code = codes.ResourceExhausted
	case KindTransportGone:
		code = codes.Unavailable
	default:
		code = codes.Internal
	}
	return status.Error(code, PublicMessage(err))
}
