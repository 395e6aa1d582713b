// Package load writes extracted records into a store.
package load

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cognicore/sealmeta/pkg/sealmeta/extract"
	"github.com/cognicore/sealmeta/pkg/sealmeta/store"
)

// Loader inserts one artifact per record and links its tags.
type Loader struct {
	store  store.Store
	tags   *TagResolver
	logger *zap.Logger
}

// NewLoader creates a loader writing to st. A nil logger disables logging.
func NewLoader(st store.Store, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		store:  st,
		tags:   NewTagResolver(st),
		logger: logger,
	}
}

// Load inserts rec and returns the new artifact id. Tags are linked in
// order, duplicates included. A failing link leaves the artifact row and any
// earlier links in place.
func (l *Loader) Load(ctx context.Context, rec extract.Record) (int64, error) {
	artifactID, err := l.store.InsertArtifact(ctx, store.Artifact{
		Family: rec.Family,
		Width:  rec.Width.Value,
		Height: rec.Height.Value,
		Unit:   rec.Unit,
	})
	if err != nil {
		return 0, fmt.Errorf("insert artifact: %w", err)
	}

	for _, name := range rec.Tags {
		tagID, err := l.tags.Resolve(ctx, name)
		if err != nil {
			return artifactID, err
		}
		if err := l.store.LinkTag(ctx, artifactID, tagID); err != nil {
			return artifactID, fmt.Errorf("link artifact %d to tag %d: %w", artifactID, tagID, err)
		}
	}

	l.logger.Debug("artifact loaded",
		zap.Int64("artifact_id", artifactID),
		zap.String("family", rec.Family),
		zap.Int("tags", len(rec.Tags)))
	return artifactID, nil
}

// TagsCreated returns how many new tags were inserted through this loader.
func (l *Loader) TagsCreated() int {
	return l.tags.Created()
}
