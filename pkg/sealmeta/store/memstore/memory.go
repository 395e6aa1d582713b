package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/cognicore/sealmeta/pkg/sealmeta/internalerr"
	"github.com/cognicore/sealmeta/pkg/sealmeta/store"
)

// Store is an in-memory implementation of store.Store for tests and dry runs.
// It mirrors the SQLite semantics: ids start at 1 and are never reused, tag
// names are unique, links must reference existing rows, and writes become
// visible to the accessors only after Commit.
type Store struct {
	mu sync.RWMutex

	closed       bool
	bootstrapped bool

	nextArtifact int64
	nextTag      int64

	// committed state
	artifacts []store.Artifact
	tags      []store.Tag
	links     []store.Link

	// pending state since the last Commit
	pendingArtifacts []store.Artifact
	pendingTags      []store.Tag
	pendingLinks     []store.Link
	tagIndex         map[string]int64
}

var _ store.Store = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		nextArtifact: 1,
		nextTag:      1,
		tagIndex:     make(map[string]int64),
	}
}

// Close implements store.Store. Uncommitted writes are discarded.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rollbackLocked()
	s.closed = true
	return nil
}

// Bootstrap implements store.Store. The script is not interpreted.
func (s *Store) Bootstrap(ctx context.Context, script string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return internalerr.ErrStoreClosed
	}
	s.bootstrapped = true
	return nil
}

// Bootstrapped reports whether Bootstrap has run.
func (s *Store) Bootstrapped() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bootstrapped
}

// InsertArtifact implements store.Store.
func (s *Store) InsertArtifact(ctx context.Context, a store.Artifact) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, internalerr.ErrStoreClosed
	}
	a.ID = s.nextArtifact
	s.nextArtifact++
	s.pendingArtifacts = append(s.pendingArtifacts, a)
	return a.ID, nil
}

// FindTag implements store.Store.
func (s *Store) FindTag(ctx context.Context, name string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, false, internalerr.ErrStoreClosed
	}
	id, ok := s.tagIndex[name]
	return id, ok, nil
}

// CreateTag implements store.Store.
func (s *Store) CreateTag(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, internalerr.ErrStoreClosed
	}
	if _, exists := s.tagIndex[name]; exists {
		return 0, fmt.Errorf("tag %q already exists", name)
	}
	id := s.nextTag
	s.nextTag++
	s.tagIndex[name] = id
	s.pendingTags = append(s.pendingTags, store.Tag{ID: id, Name: name})
	return id, nil
}

// LinkTag implements store.Store.
func (s *Store) LinkTag(ctx context.Context, artifactID, tagID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return internalerr.ErrStoreClosed
	}
	if artifactID <= 0 || artifactID >= s.nextArtifact {
		return fmt.Errorf("artifact %d: %w", artifactID, internalerr.ErrNotFound)
	}
	if tagID <= 0 || tagID >= s.nextTag {
		return fmt.Errorf("tag %d: %w", tagID, internalerr.ErrNotFound)
	}
	s.pendingLinks = append(s.pendingLinks, store.Link{ArtifactID: artifactID, TagID: tagID})
	return nil
}

// Commit implements store.Store.
func (s *Store) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return internalerr.ErrStoreClosed
	}
	s.artifacts = append(s.artifacts, s.pendingArtifacts...)
	s.tags = append(s.tags, s.pendingTags...)
	s.links = append(s.links, s.pendingLinks...)
	s.pendingArtifacts, s.pendingTags, s.pendingLinks = nil, nil, nil
	return nil
}

// rollbackLocked drops pending writes. Counters keep their values, so ids are
// not handed out twice.
func (s *Store) rollbackLocked() {
	for _, t := range s.pendingTags {
		delete(s.tagIndex, t.Name)
	}
	s.pendingArtifacts, s.pendingTags, s.pendingLinks = nil, nil, nil
}

// Artifacts returns the committed artifacts in insertion order.
func (s *Store) Artifacts() []store.Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]store.Artifact(nil), s.artifacts...)
}

// Tags returns the committed tags in insertion order.
func (s *Store) Tags() []store.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]store.Tag(nil), s.tags...)
}

// Links returns the committed links in insertion order.
func (s *Store) Links() []store.Link {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]store.Link(nil), s.links...)
}

// LinksFor returns the tag ids linked to one committed artifact, in order.
func (s *Store) LinksFor(artifactID int64) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int64
	for _, l := range s.links {
		if l.ArtifactID == artifactID {
			ids = append(ids, l.TagID)
		}
	}
	return ids
}
