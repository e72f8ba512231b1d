package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/adapters/loam"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/adapters/memory"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/adapters/redis"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/ports"
	"gopkg.in/yaml.v3"
)

// Backend names accepted by OpenRecords.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendLoam   = "loam"
)

// RecordOptions selects and configures the record backend.
type RecordOptions struct {
	Backend       string // empty: redis if RedisAddr, else loam if Dir, else memory
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Dir           string
}

// Records is an opened record backend.
type Records struct {
	Store  ports.RecordStore
	Writer ports.RecordWriter
	Locker ports.DistributedLocker // nil unless the backend supports it
	Name   string
	close  func() error
}

// Close releases the backend connection, if any.
func (r *Records) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

func (o RecordOptions) backend() string {
	switch {
	case o.Backend != "":
		return o.Backend
	case o.RedisAddr != "":
		return BackendRedis
	case o.Dir != "":
		return BackendLoam
	}
	return BackendMemory
}

// OpenRecords opens the configured record backend.
func OpenRecords(opts RecordOptions, logger *slog.Logger) (*Records, error) {
	name := opts.backend()
	switch name {
	case BackendRedis:
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("redis backend requires an address")
		}
		st := redis.New(opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
		logger.Debug("using redis record store", "addr", opts.RedisAddr, "db", opts.RedisDB)
		return &Records{Store: st, Writer: st, Locker: st.Locker(), Name: name, close: st.Close}, nil
	case BackendLoam:
		if opts.Dir == "" {
			return nil, fmt.Errorf("loam backend requires a directory")
		}
		st, err := loam.Open(opts.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open record directory: %w", err)
		}
		logger.Debug("using loam record store", "dir", opts.Dir)
		return &Records{Store: st, Writer: st, Name: name}, nil
	case BackendMemory:
		st := memory.NewStore()
		return &Records{Store: st, Writer: st, Name: name}, nil
	}
	return nil, fmt.Errorf("unknown record backend %q", name)
}

// RecordSeed is one document of a seed file.
type RecordSeed struct {
	Scope      string         `yaml:"scope"`
	Store      string         `yaml:"store"`
	Collection string         `yaml:"collection"`
	Key        string         `yaml:"key"`
	Doc        map[string]any `yaml:"doc"`
}

// SeedRecords writes every document of a YAML or JSON seed file. It returns the
// number of documents written.
func SeedRecords(ctx context.Context, w ports.RecordWriter, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read seed file: %w", err)
	}
	var seeds []RecordSeed
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return 0, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	for i, s := range seeds {
		if s.Scope == "" || s.Store == "" || s.Collection == "" || s.Key == "" {
			return i, fmt.Errorf("seed %d: scope, store, collection and key are required", i)
		}
		if err := w.Put(ctx, s.Scope, s.Store, s.Collection, s.Key, s.Doc); err != nil {
			return i, fmt.Errorf("seed %d: %w", i, err)
		}
	}
	return len(seeds), nil
}
