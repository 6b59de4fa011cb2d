// Package api implements the cuitarget.v1.Targeting gRPC service.
package api

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/cuitarget/internal/core/config"
	"github.com/solatis/cuitarget/internal/ontology"
	"github.com/solatis/cuitarget/internal/targeting"
	"github.com/solatis/cuitarget/internal/types"
)

const keyLimit = "limit"

// TablesLoader supplies the ontology; *db.Store implements it.
type TablesLoader interface {
	LoadTables(ctx context.Context) (ontology.Tables, error)
}

// TargetingService answers Select calls from an in-memory Lookup. Reload swaps
// the Lookup atomically; in-flight calls keep the one they started with.
type TargetingService struct {
	loader TablesLoader
	cfg    *config.ServerConfig
	log    zerolog.Logger
	lookup atomic.Pointer[ontology.Lookup]
}

// NewTargetingService creates the service. Call Reload before serving.
func NewTargetingService(loader TablesLoader, cfg *config.ServerConfig, log zerolog.Logger) (*TargetingService, error) {
	if loader == nil {
		return nil, fmt.Errorf("loader cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	return &TargetingService{
		loader: loader,
		cfg:    cfg,
		log:    log.With().Str("component", "targeting").Logger(),
	}, nil
}

// Reload reads the tables from the loader and replaces the Lookup.
func (s *TargetingService) Reload(ctx context.Context) error {
	tables, err := s.loader.LoadTables(ctx)
	if err != nil {
		return fmt.Errorf("failed to load ontology: %w", err)
	}
	l := ontology.New(tables, s.log)
	s.lookup.Store(l)
	s.log.Info().Int("concepts", l.Len()).Bool("hierarchy", l.HasHierarchy()).Msg("ontology ready")
	return nil
}

// Select evaluates the {targets, options, limit} request against the Lookup.
func (s *TargetingService) Select(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	l := s.lookup.Load()
	if l == nil {
		return nil, status.Error(codes.Unavailable, "ontology not loaded")
	}

	input := req.AsMap()
	limit, err := s.limitFrom(input)
	if err != nil {
		return nil, statusFor(err)
	}

	sel, err := targeting.SelectorFromDict(input)
	if err != nil {
		return nil, statusFor(err)
	}

	if err := ctx.Err(); err != nil {
		return nil, statusFor(err)
	}

	runID := RunIDFromContext(ctx)
	start := time.Now()

	var targets []any
	truncated := false
	for ti := range sel.TargetsContext(ctx, l) {
		if len(targets) == limit {
			truncated = true
			break
		}
		targets = append(targets, map[string]any{"cui": ti.CUI, "name": ti.Name})
	}
	if err := ctx.Err(); err != nil {
		return nil, statusFor(err)
	}

	s.log.Debug().
		Str("run_id", string(runID)).
		Int("count", len(targets)).
		Bool("truncated", truncated).
		Dur("elapsed", time.Since(start)).
		Msg("selection evaluated")

	resp, err := structpb.NewStruct(map[string]any{
		"run_id":    string(runID),
		"count":     len(targets),
		"truncated": truncated,
		"targets":   targets,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode response: %v", err))
	}
	return resp, nil
}

// limitFrom reads the optional limit. Zero or absent means the configured
// maximum; larger values are capped to it.
func (s *TargetingService) limitFrom(input map[string]any) (int, error) {
	maxResults := s.cfg.MaxResults
	raw, ok := input[keyLimit]
	if !ok || raw == nil {
		return maxResults, nil
	}
	f, isNumber := raw.(float64)
	if !isNumber || f != math.Trunc(f) || f < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer, got %v", types.ErrConfiguration, keyLimit, raw)
	}
	if f == 0 || f > float64(maxResults) {
		return maxResults, nil
	}
	return int(f), nil
}
