// Package grpc exposes ingest to backend collaborators that prefer gRPC
// over HTTP. Messages are structpb.Struct so no generated code is needed.
package grpc

import (
	"context"
	"log/slog"

	"restaurant-hub/auth"
	"restaurant-hub/domain"
	"restaurant-hub/errors"
	"restaurant-hub/services"

	"github.com/goccy/go-json"
	"github.com/samber/lo"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	IngestServiceName = "restaurant.hub.v1.Ingest"
	PublishMethod     = "/restaurant.hub.v1.Ingest/Publish"
)

// IngestServer handles Publish({type, rooms?, payload}).
type IngestServer interface {
	Publish(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var IngestServiceDesc = grpc.ServiceDesc{
	ServiceName: IngestServiceName,
	HandlerType: (*IngestServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Publish", Handler: publishHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "restaurant/hub/v1/ingest.proto",
}

func publishHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IngestServer).Publish(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PublishMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(IngestServer).Publish(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type ingestServer struct {
	log    *slog.Logger
	ingest services.IIngestService
}

func NewIngestServer(log *slog.Logger, ingest services.IIngestService) IngestServer {
	return &ingestServer{log: log, ingest: ingest}
}

func (s *ingestServer) Publish(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	raw, err := json.Marshal(in.AsMap())
	if err != nil {
		return nil, errors.MapToGRPCError(errors.Join(errors.ErrInvalidBody, err))
	}
	var request services.IngestRequest
	if err := json.Unmarshal(raw, &request); err != nil {
		return nil, errors.MapToGRPCError(errors.Join(errors.ErrInvalidBody, err))
	}
	evt, err := s.ingest.Ingest(ctx, request)
	if err != nil {
		s.log.Debug("Ingest refused", "type", string(request.Type), "error", err)
		return nil, errors.MapToGRPCError(err)
	}
	rooms := lo.Map(evt.TargetRooms, func(r domain.RoomID, _ int) any { return r.String() })
	return structpb.NewStruct(map[string]any{
		"eventId": evt.ID,
		"type":    string(evt.Type),
		"rooms":   rooms,
	})
}

// NewServer builds a gRPC server guarded by the service token, with the
// standard health service left open.
func NewServer(log *slog.Logger, verifier *auth.ServiceTokenVerifier, ingest services.IIngestService) *grpc.Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(auth.ServiceTokenInterceptor(verifier)))
	s.RegisterService(&IngestServiceDesc, NewIngestServer(log, ingest))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(IngestServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(s, healthServer)
	return s
}

// Publish calls the ingest service over an established connection.
func Publish(ctx context.Context, cc grpc.ClientConnInterface, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, PublishMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
