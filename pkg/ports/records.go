package ports

import "context"

// RecordRequest selects one document and the fields to project from it.
// Requests sharing (Store, Collection, LookupKey) are batched by the resolver
// into a single request with every needed field.
type RecordRequest struct {
	Store      string
	Collection string
	LookupKey  string
	// Fields are dotted paths into the document.
	Fields []string
}

// RecordStore is the external keyed document store behind RecordSource variables.
type RecordStore interface {
	// Fetch returns the requested fields of the document identified by the request,
	// scoped to the tenant. Implementations must never resolve a document of another
	// scope. Fields absent from the document are omitted from the result.
	// Returns domain.ErrRecordNotFound if no document matches.
	Fetch(ctx context.Context, scope string, req RecordRequest) (map[string]any, error)
}

// RecordWriter stores whole documents for a tenant scope.
type RecordWriter interface {
	Put(ctx context.Context, scope, store, collection, key string, doc map[string]any) error
}
