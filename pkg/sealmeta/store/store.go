package store

import (
	"context"
)

// Store is the write-side interface for persisting extracted artifacts.
//
// Writes made after Bootstrap are held until Commit; Close without Commit
// discards them.
type Store interface {
	Close() error

	// Schema
	Bootstrap(ctx context.Context, script string) error

	// Artifacts
	InsertArtifact(ctx context.Context, a Artifact) (int64, error)

	// Tags
	FindTag(ctx context.Context, name string) (int64, bool, error)
	CreateTag(ctx context.Context, name string) (int64, error)
	LinkTag(ctx context.Context, artifactID, tagID int64) error

	// Durability
	Commit(ctx context.Context) error
}

// Artifact represents one stored object row
type Artifact struct {
	ID     int64
	Family string
	Width  float64
	Height float64
	Unit   string
}

// Tag represents a deduplicated tag row
type Tag struct {
	ID   int64
	Name string
}

// Link associates an artifact with a tag
type Link struct {
	ArtifactID int64
	TagID      int64
}
