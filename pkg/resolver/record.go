package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/ports"
)

// batch groups record variables that share one document.
type batch struct {
	req  ports.RecordRequest
	defs []domain.VariableDefinition
}

type batchKey struct {
	store, collection, lookupKey string
}

// planBatches resolves lookup keys and groups record definitions by document.
// A "$name" lookup key missing from the session inputs is fatal.
func planBatches(defs []domain.VariableDefinition, in domain.SessionInputs) ([]*batch, error) {
	index := make(map[batchKey]*batch)
	var order []*batch

	for _, def := range defs {
		src := def.Source.(domain.RecordSource)
		key, err := lookupKey(def, src, in)
		if err != nil {
			return nil, err
		}
		id := batchKey{src.Store, src.Collection, key}
		b, ok := index[id]
		if !ok {
			b = &batch{req: ports.RecordRequest{Store: src.Store, Collection: src.Collection, LookupKey: key}}
			index[id] = b
			order = append(order, b)
		}
		b.defs = append(b.defs, def)
	}

	for _, b := range order {
		seen := make(map[string]bool)
		for _, def := range b.defs {
			f := def.Source.(domain.RecordSource).Field
			if !seen[f] {
				seen[f] = true
				b.req.Fields = append(b.req.Fields, f)
			}
		}
		sort.Strings(b.req.Fields)
	}
	return order, nil
}

func lookupKey(def domain.VariableDefinition, src domain.RecordSource, in domain.SessionInputs) (string, error) {
	name, isInput := strings.CutPrefix(src.LookupKey, domain.LookupInputPrefix)
	if !isInput {
		return src.LookupKey, nil
	}
	v, ok := in.Lookup(name)
	if !ok {
		return "", &domain.SourceResolutionError{
			Variable: def.Name,
			Kind:     domain.SourceRecord,
			Reason:   fmt.Sprintf("session input %q is required by lookup key", name),
		}
	}
	return v, nil
}

// resolveBatch fetches one document. gctx is the group context; deadline is the
// overall bootstrap context whose expiry is fatal.
func (r *Resolver) resolveBatch(gctx, deadline context.Context, in domain.SessionInputs, b *batch, put func(string, domain.Resolved) bool) error {
	unavailable := func(reason error) {
		for _, def := range b.defs {
			if put(def.Name, domain.Resolved{Value: domain.Unavailable, Kind: domain.SourceRecord}) {
				r.report(gctx, in, def, OutcomeUnavailable)
			}
		}
		r.logger.Warn("record source unavailable",
			"session_id", in.SessionID,
			"scope", in.EnterpriseScope,
			"store", b.req.Store,
			"collection", b.req.Collection,
			"variables", names(b.defs),
			"err", reason,
		)
	}

	if r.records == nil {
		unavailable(errors.New("no record store configured"))
		return nil
	}

	doc, err := r.records.Fetch(gctx, in.EnterpriseScope, b.req)
	if err != nil {
		if errors.Is(deadline.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: fetching %s/%s", domain.ErrBootstrapTimeout, b.req.Store, b.req.Collection)
		}
		if gctx.Err() != nil {
			return gctx.Err()
		}
		unavailable(fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err))
		return nil
	}

	for _, def := range b.defs {
		field := def.Source.(domain.RecordSource).Field
		v, ok := doc[field]
		if !ok {
			if !put(def.Name, domain.Resolved{Value: domain.Unavailable, Kind: domain.SourceRecord}) {
				return nil
			}
			r.report(gctx, in, def, OutcomeUnavailable)
			r.logger.Warn("record field missing",
				"session_id", in.SessionID,
				"variable", def.Name,
				"field", field,
			)
			continue
		}
		if !put(def.Name, domain.Resolved{Value: v, Kind: domain.SourceRecord}) {
			return nil
		}
		r.report(gctx, in, def, OutcomeResolved)
	}
	return nil
}

func names(defs []domain.VariableDefinition) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Name
	}
	return out
}
