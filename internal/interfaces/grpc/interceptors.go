package grpc

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/grpc"
	grpcCodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/turtacn/tokenlife/pkg/errors"
	"github.com/turtacn/tokenlife/pkg/logger"
)

// InterceptorChain 拦截器链
type InterceptorChain struct {
	log logger.Logger
}

// NewInterceptorChain 创建拦截器链
func NewInterceptorChain(log logger.Logger) *InterceptorChain {
	return &InterceptorChain{log: log}
}

// UnaryRecoveryInterceptor 恢复拦截器(捕获 panic)
func (ic *InterceptorChain) UnaryRecoveryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				ic.log.Error(ctx, "gRPC handler panic recovered", fmt.Errorf("%v", r),
					logger.String("method", info.FullMethod),
				)
				err = status.Error(grpcCodes.Internal, "internal server error")
			}
		}()

		return handler(ctx, req)
	}
}

// UnaryLoggingInterceptor 日志拦截器
func (ic *InterceptorChain) UnaryLoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		startTime := time.Now()

		md, _ := metadata.FromIncomingContext(ctx)
		var userAgent string
		if agents := md.Get("user-agent"); len(agents) > 0 {
			userAgent = agents[0]
		}

		resp, err := handler(ctx, req)

		statusCode := status.Code(err)
		fields := []logger.Field{
			logger.String("method", info.FullMethod),
			logger.String("user_agent", userAgent),
			logger.Int64("duration_ms", time.Since(startTime).Milliseconds()),
			logger.String("status", statusCode.String()),
		}
		if statusCode == grpcCodes.Internal || statusCode == grpcCodes.Unknown {
			ic.log.Error(ctx, "gRPC request failed", err, fields...)
		} else {
			ic.log.Info(ctx, "gRPC request completed", fields...)
		}

		return resp, err
	}
}

// UnaryErrorInterceptor 错误转换拦截器(将领域错误转换为 gRPC 状态码)
func (ic *InterceptorChain) UnaryErrorInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		return resp, toStatus(err)
	}
}

// toStatus 将领域错误转换为 gRPC 错误
func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}

	authErr, ok := errors.AsAuthError(err)
	if !ok {
		return status.Error(grpcCodes.Internal, "internal server error")
	}

	switch authErr.HTTPStatus() {
	case http.StatusBadRequest:
		return status.Error(grpcCodes.InvalidArgument, authErr.Description())
	case http.StatusUnauthorized:
		return status.Error(grpcCodes.Unauthenticated, authErr.Description())
	case http.StatusForbidden:
		return status.Error(grpcCodes.PermissionDenied, authErr.Description())
	case http.StatusNotFound:
		return status.Error(grpcCodes.NotFound, authErr.Description())
	case http.StatusConflict:
		return status.Error(grpcCodes.AlreadyExists, authErr.Description())
	case http.StatusTooManyRequests:
		return status.Error(grpcCodes.ResourceExhausted, authErr.Description())
	case http.StatusServiceUnavailable:
		return status.Error(grpcCodes.Unavailable, authErr.Description())
	default:
		return status.Error(grpcCodes.Internal, "internal server error")
	}
}

// ChainUnaryInterceptors 链式调用所有拦截器
func (ic *InterceptorChain) ChainUnaryInterceptors() grpc.ServerOption {
	return grpc.ChainUnaryInterceptor(
		ic.UnaryRecoveryInterceptor(), // 1. 恢复 panic
		ic.UnaryLoggingInterceptor(),  // 2. 日志
		ic.UnaryErrorInterceptor(),    // 3. 错误转换
	)
}

//Personal.AI order the ending
