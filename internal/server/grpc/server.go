package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/Additional-Code/orderdesk/internal/config"
	"github.com/Additional-Code/orderdesk/pkg/errorbank"
)

// OrdersServiceName is the health-checked service name.
const OrdersServiceName = "orderdesk.Orders"

// Module exposes the gRPC server and lifecycle hooks to Fx.
var Module = fx.Module("grpc_server",
	fx.Provide(NewServer, health.NewServer),
	fx.Invoke(RegisterHealth, Run),
)

// NewServer builds a gRPC server whose interceptors log every call and
// translate application errors into gRPC statuses.
func NewServer(logger *zap.Logger) *grpc.Server {
	return grpc.NewServer(
		grpc.ChainUnaryInterceptor(unaryInterceptor(logger)),
		grpc.ChainStreamInterceptor(streamInterceptor(logger)),
	)
}

func unaryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		err = toStatus(err)
		logCall(logger, "unary", info.FullMethod, start, err)
		return resp, err
	}
}

func streamInterceptor(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := toStatus(handler(srv, ss))
		logCall(logger, "stream", info.FullMethod, start, err)
		return err
	}
}

func logCall(logger *zap.Logger, kind, method string, start time.Time, err error) {
	fields := []zap.Field{
		zap.String("kind", kind),
		zap.String("method", method),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		logger.Warn("grpc call failed", append(fields, zap.Stringer("code", status.Code(err)), zap.Error(err))...)
		return
	}
	logger.Debug("grpc call finished", fields...)
}

// RegisterHealth exposes the standard health service and flips the orders
// service to SERVING for the lifetime of the application.
func RegisterHealth(lc fx.Lifecycle, server *grpc.Server, hs *health.Server) {
	healthpb.RegisterHealthServer(server, hs)
	hs.SetServingStatus(OrdersServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			hs.SetServingStatus(OrdersServiceName, healthpb.HealthCheckResponse_SERVING)
			return nil
		},
		OnStop: func(context.Context) error {
			hs.Shutdown()
			return nil
		},
	})
}

// toStatus maps application errors onto gRPC status errors.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	if appErr, ok := errorbank.As(err); ok {
		return status.Error(appErr.GRPCCode(), appErr.Message())
	}
	return status.Error(codes.Internal, "internal error")
}

// Run binds the gRPC server to the configured host/port and manages lifecycle.
func Run(lc fx.Lifecycle, cfg config.Config, server *grpc.Server, logger *zap.Logger) {
	if !cfg.GRPC.Enabled {
		logger.Info("gRPC server disabled")
		return
	}
	addr := fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port)
	var listener net.Listener

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen grpc: %w", err)
			}
			listener = ln
			logger.Info("starting gRPC server", zap.String("addr", addr))
			go func() {
				if err := server.Serve(listener); err != nil {
					logger.Fatal("grpc server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping gRPC server")
			stopped := make(chan struct{})
			go func() {
				server.GracefulStop()
				close(stopped)
			}()

			select {
			case <-ctx.Done():
				server.Stop()
				return ctx.Err()
			case <-stopped:
				if listener != nil {
					_ = listener.Close()
				}
				return nil
			}
		},
	})
}
