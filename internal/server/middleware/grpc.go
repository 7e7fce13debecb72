package middleware

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"telemetry-bridge/backend/internal/monitoring"
	"telemetry-bridge/backend/internal/telemetry"
	"telemetry-bridge/backend/internal/telemetry/domain"
)

// grpcRequestProperties is the JSON shape stored in Event.Properties for grpc_request events.
type grpcRequestProperties struct {
	FullMethod string `json:"full_method"`
	StatusCode string `json:"status_code"`
	DurationMs int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
}

// UnaryTelemetry returns a unary server interceptor that records every RPC on
// the tracing adapter and mirrors it to the event pipeline. Best-effort:
// telemetry failures never fail the RPC. skipMethods is the set of full
// method names to not record (e.g. health checks).
func UnaryTelemetry(tr RequestTracker, emitter telemetry.Emitter, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if skipMethods[info.FullMethod] {
			return resp, err
		}
		duration := time.Since(start)
		code := status.Code(err)

		if tr != nil {
			tr.TrackRequest(ctx, info.FullMethod, info.FullMethod, duration, httpStatusFromCode(code), err == nil, map[string]string{
				"rpc.method":      info.FullMethod,
				"rpc.status_code": code.String(),
			})
			if err != nil {
				tr.TrackException(ctx, err, monitoring.SeverityError, map[string]string{
					"rpc.method": info.FullMethod,
				})
			}
		}

		if emitter != nil {
			event := domain.NewEvent("grpc_request", domain.KindRequest, "grpc_interceptor")
			event.UserID, _ = UserID(ctx)
			event.AccountID, _ = AccountID(ctx)
			props, _ := json.Marshal(grpcRequestProperties{
				FullMethod: info.FullMethod,
				StatusCode: code.String(),
				DurationMs: duration.Milliseconds(),
				ClientIP:   clientIP(ctx),
			})
			event.Properties = props
			telemetry.EmitAsync(emitter, ctx, event)
		}
		return resp, err
	}
}

// GRPCServerOptions returns the server options that wire telemetry into a
// gRPC server: the OTel stats handler for spans and metrics plus the unary
// telemetry interceptor.
func GRPCServerOptions(tr RequestTracker, emitter telemetry.Emitter, skipMethods map[string]bool) []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(UnaryTelemetry(tr, emitter, skipMethods)),
	}
}

// httpStatusFromCode maps a gRPC status code to the HTTP-style response code
// the request metrics use. Coarse on purpose; only the success/class matters.
func httpStatusFromCode(code codes.Code) int {
	switch code {
	case codes.OK:
		return 200
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return 400
	case codes.Unauthenticated:
		return 401
	case codes.PermissionDenied:
		return 403
	case codes.NotFound:
		return 404
	case codes.AlreadyExists, codes.Aborted:
		return 409
	case codes.ResourceExhausted:
		return 429
	case codes.Canceled:
		return 499
	case codes.Unimplemented:
		return 501
	case codes.Unavailable:
		return 503
	case codes.DeadlineExceeded:
		return 504
	default:
		return 500
	}
}

func clientIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	return p.Addr.String()
}
