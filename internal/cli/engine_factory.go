package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mozaiks "github.com/BlocUnited-LLC/mozaiks-ai-sub000"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/manifest"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/resolver"
)

// EngineOptions carries the resolved CLI flags and configuration.
type EngineOptions struct {
	Manifests        []string
	EnvFiles         []string
	Mode             domain.Mode
	IncludeRecords   bool
	Verbose          bool
	BootstrapTimeout time.Duration
	QueueSize        int
	Records          RecordOptions
	SeedFile         string
	Hooks            domain.LifecycleHooks
}

// Engine is an engine together with the record backend it owns.
type Engine struct {
	*mozaiks.Engine
	Records *Records
}

// Close ends every session and releases the record backend.
func (e *Engine) Close() error {
	e.Engine.Close()
	return e.Records.Close()
}

// CreateEngine initializes an engine with standard CLI conventions.
func CreateEngine(ctx context.Context, opts EngineOptions, logger *slog.Logger) (*Engine, error) {
	if len(opts.Manifests) == 0 {
		return nil, fmt.Errorf("at least one manifest is required")
	}
	m, err := manifest.LoadFiles(opts.Manifests...)
	if err != nil {
		return nil, err
	}

	records, err := OpenRecords(opts.Records, logger)
	if err != nil {
		return nil, err
	}
	if opts.SeedFile != "" {
		n, err := SeedRecords(ctx, records.Writer, opts.SeedFile)
		if err != nil {
			_ = records.Close()
			return nil, err
		}
		logger.Info("seeded records", "count", n, "backend", records.Name)
	}

	engineOpts := []mozaiks.Option{
		mozaiks.WithManifest(m),
		mozaiks.WithLogger(logger),
		mozaiks.WithLifecycleHooks(opts.Hooks),
		mozaiks.WithMode(opts.Mode),
		mozaiks.WithIncludeRecords(opts.IncludeRecords),
		mozaiks.WithVerbose(opts.Verbose),
		mozaiks.WithRecordStore(records.Store),
		mozaiks.WithQueueSize(opts.QueueSize),
	}
	if opts.BootstrapTimeout > 0 {
		engineOpts = append(engineOpts, mozaiks.WithBootstrapTimeout(opts.BootstrapTimeout))
	}
	if records.Locker != nil {
		engineOpts = append(engineOpts, mozaiks.WithLocker(records.Locker))
	}
	if len(opts.EnvFiles) > 0 {
		env, err := resolver.DotEnv(opts.EnvFiles...)
		if err != nil {
			_ = records.Close()
			return nil, err
		}
		engineOpts = append(engineOpts, mozaiks.WithEnv(env))
	}

	eng, err := mozaiks.New(opts.Manifests[0], engineOpts...)
	if err != nil {
		_ = records.Close()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return &Engine{Engine: eng, Records: records}, nil
}
