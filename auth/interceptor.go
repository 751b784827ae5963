package auth

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// ServiceTokenHeader carries the internal service token, over HTTP and gRPC metadata.
const ServiceTokenHeader = "x-service-token"

// Methods reachable without the service token.
var publicMethods = map[string]struct{}{
	grpc_health_v1.Health_Check_FullMethodName: {},
}

// ServiceTokenInterceptor rejects unary calls that do not carry a valid service token.
func ServiceTokenInterceptor(verifier *ServiceTokenVerifier) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if isPublicMethod(info.FullMethod) {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "metadata is missing")
		}

		values := md.Get(ServiceTokenHeader)
		if len(values) == 0 {
			return nil, status.Error(codes.Unauthenticated, "service token is missing")
		}

		if err := verifier.Verify(values[0]); err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid service token")
		}
		return handler(ctx, req)
	}
}

func isPublicMethod(method string) bool {
	_, ok := publicMethods[method]
	return ok
}
