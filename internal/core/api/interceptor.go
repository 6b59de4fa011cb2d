package api

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/solatis/cuitarget/internal/types"
)

type contextKey string

const runIDKey = contextKey("run_id")

// RunIDHeader lets a caller supply its own run ID; it must be a UUID.
const RunIDHeader = "x-run-id"

// UnaryInterceptor assigns every call a run ID, bounds it by timeout and logs
// the outcome.
func UnaryInterceptor(log zerolog.Logger, timeout time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		runID := runIDFromMetadata(ctx)
		ctx = context.WithValue(ctx, runIDKey, runID)

		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		start := time.Now()
		resp, err := handler(ctx, req)

		var ev *zerolog.Event
		if err != nil {
			ev = log.Warn().Str("code", status.Code(err).String()).Err(err)
		} else {
			ev = log.Info()
		}
		ev.Str("method", info.FullMethod).
			Str("run_id", string(runID)).
			Dur("elapsed", time.Since(start)).
			Msg("rpc finished")

		return resp, err
	}
}

func runIDFromMetadata(ctx context.Context) types.RunID {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(RunIDHeader); len(vals) > 0 {
			if id, err := types.ParseRunID(vals[0]); err == nil {
				return id
			}
		}
	}
	return types.NewRunID()
}

// RunIDFromContext returns the run ID set by UnaryInterceptor, or a fresh one
// when called outside it.
func RunIDFromContext(ctx context.Context) types.RunID {
	if id, ok := ctx.Value(runIDKey).(types.RunID); ok {
		return id
	}
	return types.NewRunID()
}
