// Package loam serves record-sourced variables from a Loam document repository.
//
// Documents are JSON files laid out as <scope>/<store>/<collection>/<key>.json;
// the tenant scope is always the first path segment.
package loam

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/ports"
	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/adapters/fs"
	"github.com/aretw0/loam/pkg/core"
)

// Store adapts a Loam repository to ports.RecordStore.
type Store struct {
	Repo core.Repository
}

// New creates a record store over an existing repository.
func New(repo core.Repository) *Store {
	return &Store{Repo: repo}
}

// Open initializes a repository rooted at dir. JSON numbers are decoded strictly
// so integer fields stay integers.
func Open(dir string, opts ...loam.Option) (*Store, error) {
	base := []loam.Option{
		loam.WithVersioning(false),
		loam.WithSerializer(".json", fs.NewJSONSerializer(true)),
	}
	repo, err := loam.Init(dir, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to init loam repository at %s: %w", dir, err)
	}
	return New(repo), nil
}

// DocumentID returns the repository id of a record, without extension.
// Each segment is escaped so that a "/" can never climb into another scope.
func DocumentID(scope, store, collection, key string) string {
	return path.Join(segment(scope), segment(store), segment(collection), segment(key))
}

func segment(s string) string {
	switch s {
	case ".", "..":
		return strings.Repeat("%2E", len(s))
	}
	return url.PathEscape(s)
}

// Put saves a document as JSON metadata.
func (s *Store) Put(ctx context.Context, scope, store, collection, key string, doc map[string]any) error {
	id := DocumentID(scope, store, collection, key)
	meta := make(core.Metadata, len(doc))
	for k, v := range doc {
		meta[k] = v
	}
	if err := s.Repo.Save(ctx, core.Document{ID: id + ".json", Metadata: meta}); err != nil {
		return fmt.Errorf("loam save failed for %s: %w", id, err)
	}
	return nil
}

// Fetch loads the scoped document and projects the requested fields.
func (s *Store) Fetch(ctx context.Context, scope string, req ports.RecordRequest) (map[string]any, error) {
	id := DocumentID(scope, req.Store, req.Collection, req.LookupKey)

	doc, err := s.Repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRecordNotFound, id)
		}
		return nil, fmt.Errorf("loam get failed for %s: %w", id, err)
	}

	data := make(map[string]any, len(doc.Metadata))
	for k, v := range doc.Metadata {
		data[k] = v
	}
	return ports.Project(data, req.Fields), nil
}
