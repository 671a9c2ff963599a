package logger

import (
	"context"
	"path"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func grpcFields(fullMethod string, code codes.Code, duration time.Duration) []zap.Field {
	return []zap.Field{
		zap.String("grpc.service", path.Dir(fullMethod)[1:]),
		zap.String("grpc.method", path.Base(fullMethod)),
		zap.String("grpc.code", code.String()),
		zap.Duration("grpc.duration", duration),
	}
}

func logGrpcResult(logger *zap.Logger, msg string, err error, fields []zap.Field) {
	code := status.Code(err)
	switch code {
	case codes.OK:
		logger.Debug(msg, fields...)
	case codes.Canceled, codes.DeadlineExceeded, codes.ResourceExhausted,
		codes.Aborted, codes.Unavailable, codes.NotFound:
		logger.Warn(msg, append(fields, zap.Error(err))...)
	default:
		logger.Error(msg, append(fields, zap.Error(err))...)
	}
}

// NewGrpcUnaryServerInterceptor logs unary gRPC calls.
func NewGrpcUnaryServerInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logGrpcResult(logger, "gRPC request", err, grpcFields(info.FullMethod, status.Code(err), time.Since(start)))
		return resp, err
	}
}

// NewGrpcStreamServerInterceptor logs streaming gRPC calls, such as health Watch.
func NewGrpcStreamServerInterceptor(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		wrapped := &wrappedServerStream{ServerStream: ss}
		err := handler(srv, wrapped)

		fields := grpcFields(info.FullMethod, status.Code(err), time.Since(start))
		fields = append(fields,
			zap.Int("grpc.recv_count", wrapped.recvCount),
			zap.Int("grpc.send_count", wrapped.sendCount),
		)
		logGrpcResult(logger, "gRPC stream", err, fields)
		return err
	}
}

type wrappedServerStream struct {
	grpc.ServerStream
	recvCount int
	sendCount int
}

func (w *wrappedServerStream) RecvMsg(m interface{}) error {
	err := w.ServerStream.RecvMsg(m)
	if err == nil {
		w.recvCount++
	}
	return err
}

func (w *wrappedServerStream) SendMsg(m interface{}) error {
	err := w.ServerStream.SendMsg(m)
	if err == nil {
		w.sendCount++
	}
	return err
}
