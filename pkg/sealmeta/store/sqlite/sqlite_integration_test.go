package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/sealmeta/pkg/sealmeta/internalerr"
	"github.com/cognicore/sealmeta/pkg/sealmeta/store"
)

func openBootstrapped(t *testing.T, path string) *Store {
	t.Helper()
	ctx := context.Background()

	st, err := OpenSQLite(ctx, path)
	require.NoError(t, err, "OpenSQLite")
	t.Cleanup(func() { st.Close() })

	require.NoError(t, st.Bootstrap(ctx, ""), "Bootstrap")
	return st
}

func countRows(t *testing.T, path, table string) int {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

// TestSQLiteIntegrationBasic tests the insert path end to end
func TestSQLiteIntegrationBasic(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st := openBootstrapped(t, dbPath)

	artifactID, err := st.InsertArtifact(ctx, store.Artifact{Family: "Adler", Width: -1, Height: -1, Unit: "N/A"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), artifactID)

	_, found, err := st.FindTag(ctx, "Wappen")
	require.NoError(t, err)
	assert.False(t, found)

	tagID, err := st.CreateTag(ctx, "Wappen")
	require.NoError(t, err)

	got, found, err := st.FindTag(ctx, "Wappen")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, tagID, got)

	require.NoError(t, st.LinkTag(ctx, artifactID, tagID))
	require.NoError(t, st.LinkTag(ctx, artifactID, tagID), "duplicate links are allowed")
	require.NoError(t, st.Commit(ctx))
	require.NoError(t, st.Close())

	assert.Equal(t, 1, countRows(t, dbPath, "artifact"))
	assert.Equal(t, 1, countRows(t, dbPath, "tag"))
	assert.Equal(t, 2, countRows(t, dbPath, "artifact_has_tag"))

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var (
		family string
		width  float64
		height float64
		unit   string
	)
	err = db.QueryRow(`SELECT family, width, height, unit FROM artifact WHERE id = ?`, artifactID).
		Scan(&family, &width, &height, &unit)
	require.NoError(t, err)
	assert.Equal(t, "Adler", family)
	assert.Equal(t, -1.0, width)
	assert.Equal(t, -1.0, height)
	assert.Equal(t, "N/A", unit)
}

// TestSQLiteCloseWithoutCommit tests that uncommitted writes are discarded
func TestSQLiteCloseWithoutCommit(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st := openBootstrapped(t, dbPath)

	_, err := st.InsertArtifact(ctx, store.Artifact{Family: "Stadt", Width: 3, Height: 3, Unit: "cm"})
	require.NoError(t, err)
	_, err = st.CreateTag(ctx, "Kreuz")
	require.NoError(t, err)
	require.NoError(t, st.Close())

	assert.Equal(t, 0, countRows(t, dbPath, "artifact"))
	assert.Equal(t, 0, countRows(t, dbPath, "tag"))
}

// TestSQLiteTagNameUnique tests the unique constraint on tag names
func TestSQLiteTagNameUnique(t *testing.T) {
	ctx := context.Background()
	st := openBootstrapped(t, filepath.Join(t.TempDir(), "test.db"))

	_, err := st.CreateTag(ctx, "Kreuz")
	require.NoError(t, err)
	_, err = st.CreateTag(ctx, "Kreuz")
	assert.Error(t, err)
}

// TestSQLiteLinkForeignKey tests that links must reference existing rows
func TestSQLiteLinkForeignKey(t *testing.T) {
	ctx := context.Background()
	st := openBootstrapped(t, filepath.Join(t.TempDir(), "test.db"))

	assert.Error(t, st.LinkTag(ctx, 99, 42))
}

// TestSQLiteIdsNotReused tests that ids keep growing across runs
func TestSQLiteIdsNotReused(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	first := openBootstrapped(t, dbPath)
	id1, err := first.InsertArtifact(ctx, store.Artifact{Family: "A"})
	require.NoError(t, err)
	tag1, err := first.CreateTag(ctx, "Kreuz")
	require.NoError(t, err)
	require.NoError(t, first.Commit(ctx))
	require.NoError(t, first.Close())

	second := openBootstrapped(t, dbPath)
	id2, err := second.InsertArtifact(ctx, store.Artifact{Family: "B"})
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	tag2, found, err := second.FindTag(ctx, "Kreuz")
	require.NoError(t, err)
	assert.True(t, found, "tags persist across runs")
	assert.Equal(t, tag1, tag2)
}

// TestSQLiteClosed tests operations on a closed store
func TestSQLiteClosed(t *testing.T) {
	ctx := context.Background()
	st := openBootstrapped(t, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, st.Close())
	require.NoError(t, st.Close(), "Close is idempotent")

	_, err := st.InsertArtifact(ctx, store.Artifact{})
	assert.ErrorIs(t, err, internalerr.ErrStoreClosed)
	assert.ErrorIs(t, st.Commit(ctx), internalerr.ErrStoreClosed)
	assert.ErrorIs(t, st.Bootstrap(ctx, ""), internalerr.ErrStoreClosed)
}

// TestSQLiteCommitWithoutWrites tests that an empty run commits cleanly
func TestSQLiteCommitWithoutWrites(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st := openBootstrapped(t, dbPath)

	require.NoError(t, st.Commit(ctx))
	require.NoError(t, st.Close())

	_, err := os.Stat(dbPath)
	require.NoError(t, err)
	assert.Equal(t, 0, countRows(t, dbPath, "artifact"))
}
