package load

import (
	"context"
	"fmt"

	"github.com/cognicore/sealmeta/pkg/sealmeta/store"
)

// TagStore is the subset of store.Store the resolver needs.
type TagStore interface {
	FindTag(ctx context.Context, name string) (int64, bool, error)
	CreateTag(ctx context.Context, name string) (int64, error)
}

// TagResolver maps tag names to stable ids, creating a tag on first sight.
// Lookups always go to the store, so ids stay stable across runs that share
// one database.
type TagResolver struct {
	store   TagStore
	created int
}

// NewTagResolver creates a resolver over st.
func NewTagResolver(st TagStore) *TagResolver {
	return &TagResolver{store: st}
}

// Resolve returns the id of the tag named name, creating the tag if needed.
func (r *TagResolver) Resolve(ctx context.Context, name string) (int64, error) {
	id, found, err := r.store.FindTag(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("find tag %q: %w", name, err)
	}
	if found {
		return id, nil
	}

	id, err = r.store.CreateTag(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("create tag %q: %w", name, err)
	}
	r.created++
	return id, nil
}

// Created returns how many tags this resolver inserted.
func (r *TagResolver) Created() int {
	return r.created
}

var _ TagStore = (store.Store)(nil)
