package grpc

import (
	"context"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	grpcCodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/turtacn/tokenlife/internal/application/dto"
	appService "github.com/turtacn/tokenlife/internal/application/service"
	"github.com/turtacn/tokenlife/pkg/errors"
	"github.com/turtacn/tokenlife/pkg/logger"
)

const (
	// IntrospectionServiceName is the fully qualified gRPC service name.
	IntrospectionServiceName = "tokenlife.v1.TokenIntrospection"
	// IntrospectMethod is the full method path clients invoke.
	IntrospectMethod = "/" + IntrospectionServiceName + "/Introspect"
)

// TokenIntrospectionServer answers whether an access token is currently usable.
// TokenIntrospectionServer 供内部服务校验 access token。
type TokenIntrospectionServer interface {
	Introspect(ctx context.Context, token *wrapperspb.StringValue) (*structpb.Struct, error)
}

// introspectionServiceDesc is registered without generated stubs; the
// messages are well-known protobuf types.
var introspectionServiceDesc = grpc.ServiceDesc{
	ServiceName: IntrospectionServiceName,
	HandlerType: (*TokenIntrospectionServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Introspect",
			Handler:    introspectHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tokenlife/v1/introspection.proto",
}

func introspectHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TokenIntrospectionServer).Introspect(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: IntrospectMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TokenIntrospectionServer).Introspect(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// IntrospectionService implements TokenIntrospectionServer on top of the
// access token verifier used by the HTTP API.
type IntrospectionService struct {
	verifier appService.AccessTokenVerifier
	logger   logger.Logger
}

// NewIntrospectionService creates the introspection handler.
func NewIntrospectionService(verifier appService.AccessTokenVerifier, log logger.Logger) *IntrospectionService {
	return &IntrospectionService{
		verifier: verifier,
		logger:   log.WithComponent("IntrospectionService"),
	}
}

// Introspect reports {active:false} for any token a client could not use.
// Only failures of the service itself surface as gRPC errors.
func (s *IntrospectionService) Introspect(ctx context.Context, token *wrapperspb.StringValue) (*structpb.Struct, error) {
	if token.GetValue() == "" {
		return nil, status.Error(grpcCodes.InvalidArgument, "token is required")
	}

	claims, err := s.verifier.DecodeAccessToken(ctx, token.GetValue())
	if err != nil {
		if authErr, ok := errors.AsAuthError(err); ok && authErr.HTTPStatus() < 500 {
			s.logger.Debug(ctx, "Inactive token introspected", logger.String("code", string(authErr.Code())))
			return introspectionStruct(dto.IntrospectionResult{Active: false})
		}
		return nil, err
	}

	result := dto.IntrospectionResult{
		Active:  true,
		JTI:     claims.ID,
		Subject: claims.Subject,
		UserID:  claims.UserID(),
	}
	if claims.ExpiresAt != nil {
		result.Exp = claims.ExpiresAt.Unix()
	}
	if claims.User != nil {
		result.Username = claims.User.Username
		result.Role = claims.User.Role
	}
	return introspectionStruct(result)
}

func introspectionStruct(r dto.IntrospectionResult) (*structpb.Struct, error) {
	if !r.Active {
		return structpb.NewStruct(map[string]interface{}{"active": false})
	}
	return structpb.NewStruct(map[string]interface{}{
		"active":   true,
		"jti":      r.JTI,
		"sub":      r.Subject,
		"exp":      r.Exp,
		"user_id":  r.UserID,
		"username": r.Username,
		"role":     r.Role,
	})
}

// Server hosts the introspection and health services.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	logger     logger.Logger
}

// NewServer builds a gRPC server with the interceptor chain and otel stats handler.
func NewServer(verifier appService.AccessTokenVerifier, log logger.Logger) *Server {
	chain := NewInterceptorChain(log.WithComponent("grpc"))
	gs := grpc.NewServer(
		chain.ChainUnaryInterceptors(),
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
	)

	gs.RegisterService(&introspectionServiceDesc, NewIntrospectionService(verifier, log))

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(IntrospectionServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)

	return &Server{grpcServer: gs, health: hs, logger: log.WithComponent("grpc")}
}

// Serve blocks serving on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info(context.Background(), "Starting gRPC server", logger.String("address", lis.Addr().String()))
	if err := s.grpcServer.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}

// Stop marks the server NOT_SERVING and drains in-flight calls until ctx ends.
func (s *Server) Stop(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpcServer.Stop()
	}
}

//Personal.AI order the ending
