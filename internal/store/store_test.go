package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snapvault/internal/models"
)

// testStore creates a temporary store for testing.
func testStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "open test store")
	t.Cleanup(func() { st.Close() })
	return st
}

// buildSnapshot commits one snapshot whose files map link path -> blob.
func buildSnapshot(t *testing.T, st *Store, root string, files map[string]models.Blob) models.Snapshot {
	t.Helper()
	ctx := context.Background()
	w, err := st.BeginSnapshot(ctx, root, time.Now())
	require.NoError(t, err, "begin snapshot")
	for path, blob := range files {
		b := blob
		stored, _, err := w.AddBlob(ctx, &b)
		if err == nil {
			err = w.Link(ctx, stored.ID, path)
		}
		if err != nil {
			_ = w.Rollback()
			require.NoError(t, err, "record %s", path)
		}
	}
	require.NoError(t, w.Commit(), "commit")
	return w.Snapshot()
}

func sourceBlob(hash, path string, size int64) models.Blob {
	return models.Blob{Hash: hash, SourcePath: path, SizeBytes: size, StorageBackend: models.BackendSource, BlobKey: path}
}

func TestSnapshotWriterFirstPathWins(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	w, err := st.BeginSnapshot(ctx, "/data", time.Now())
	require.NoError(t, err)
	defer w.Rollback()

	first := sourceBlob("AA11", "/data/a.txt", 3)
	stored, created, err := w.AddBlob(ctx, &first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "aa11", stored.Hash, "hash is normalized")

	second := sourceBlob("aa11", "/data/copy/a.txt", 3)
	again, created, err := w.AddBlob(ctx, &second)
	require.NoError(t, err)
	assert.False(t, created, "duplicate hash reuses the existing blob")
	assert.Equal(t, stored.ID, again.ID)
	assert.Equal(t, "/data/a.txt", again.SourcePath, "first source path wins")

	require.NoError(t, w.Link(ctx, stored.ID, "a.txt"))
	require.NoError(t, w.Link(ctx, again.ID, "copy/a.txt"))
	assert.Error(t, w.Link(ctx, stored.ID, "a.txt"), "a path is linked once per snapshot")
}

func TestSnapshotRollbackLeavesNothing(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	w, err := st.BeginSnapshot(ctx, "/data", time.Now())
	require.NoError(t, err)
	b := sourceBlob("bb22", "/data/b.bin", 4)
	stored, _, err := w.AddBlob(ctx, &b)
	require.NoError(t, err)
	require.NoError(t, w.Link(ctx, stored.ID, "b.bin"))
	_, err = w.EnsureSetting(ctx, SettingHashAlgorithm, "sha256")
	require.NoError(t, err)

	require.NoError(t, w.Rollback())
	require.NoError(t, w.Rollback(), "second rollback is a no-op")

	info, err := st.StoreInfo(ctx)
	require.NoError(t, err)
	assert.Zero(t, info.Snapshots)
	assert.Zero(t, info.Blobs)
	assert.Zero(t, info.Links)
	assert.Empty(t, info.HashAlgorithm, "settings written by the build roll back with it")
}

func TestGetSnapshotAndEntries(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	snap := buildSnapshot(t, st, "/data", map[string]models.Blob{
		"b.bin":     sourceBlob("02", "/data/b.bin", 256),
		"a.txt":     sourceBlob("01", "/data/a.txt", 13),
		"sub/c.txt": sourceBlob("01", "/data/sub/c.txt", 13),
	})

	got, err := st.GetSnapshot(ctx, snap.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "/data", got.RootPath)

	missing, err := st.GetSnapshot(ctx, snap.ID+100)
	require.NoError(t, err)
	assert.Nil(t, missing)

	entries, err := st.ListSnapshotEntries(ctx, snap.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a.txt", entries[0].Path)
	assert.Equal(t, "sub/c.txt", entries[2].Path)
	assert.Equal(t, entries[0].Blob.ID, entries[2].Blob.ID, "identical content shares one blob")
}

func TestListSnapshotSummaries(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	empty, err := st.ListSnapshotSummaries(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	buildSnapshot(t, st, "/d", map[string]models.Blob{
		"a": sourceBlob("01", "/d/a", 10),
		"b": sourceBlob("02", "/d/bb", 20),
	})
	buildSnapshot(t, st, "/e", nil)

	summaries, err := st.ListSnapshotSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	first := summaries[0]
	assert.Equal(t, int64(2), first.Files)
	assert.Equal(t, int64(len("/d/a")+len("/d/bb")), first.ApproxSize, "size is the path-length proxy")
	assert.Equal(t, int64(30), first.ContentBytes)
	assert.Zero(t, summaries[1].Files)
	assert.Zero(t, summaries[1].ApproxSize)
	assert.Less(t, summaries[0].ID, summaries[1].ID)
}

func TestPruneSnapshotQueuesOnlyOrphans(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	a := buildSnapshot(t, st, "/d", map[string]models.Blob{
		"shared": sourceBlob("01", "/d/shared", 1),
		"only-a": sourceBlob("02", "/d/only-a", 1),
	})
	b := buildSnapshot(t, st, "/d", map[string]models.Blob{
		"shared": sourceBlob("01", "/d/shared", 1),
	})

	out, err := st.PruneSnapshot(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.Equal(t, int64(2), out.Links)
	require.Len(t, out.Orphaned, 1)
	assert.Equal(t, "02", out.Orphaned[0].Hash)

	orphan, err := st.GetBlobByHash(ctx, "02")
	require.NoError(t, err)
	assert.Nil(t, orphan, "orphan row is deleted")
	shared, err := st.GetBlobByHash(ctx, "01")
	require.NoError(t, err)
	assert.NotNil(t, shared, "shared blob is kept")

	reclaims, err := st.ListReclaims(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, reclaims, 1)
	assert.Equal(t, "/d/only-a", reclaims[0].BlobKey)

	entries, err := st.ListSnapshotEntries(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "surviving snapshot is untouched")
}

func TestPruneSnapshotMissing(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	buildSnapshot(t, st, "/d", map[string]models.Blob{"a": sourceBlob("01", "/d/a", 1)})

	out, err := st.PruneSnapshot(ctx, 42)
	require.NoError(t, err)
	assert.False(t, out.Found)

	info, err := st.StoreInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.Snapshots)
	assert.Equal(t, int64(1), info.Blobs)
	assert.Zero(t, info.PendingReclaims)
}

func TestSnapshotIDsNeverReused(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	first := buildSnapshot(t, st, "/d", nil)
	_, err := st.PruneSnapshot(ctx, first.ID)
	require.NoError(t, err)
	second := buildSnapshot(t, st, "/d", nil)
	assert.Greater(t, second.ID, first.ID)
}

func TestReclaimLifecycle(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	snap := buildSnapshot(t, st, "/d", map[string]models.Blob{
		"a": sourceBlob("01", "/d/a", 1),
		"b": sourceBlob("02", "/d/b", 1),
	})
	_, err := st.PruneSnapshot(ctx, snap.ID)
	require.NoError(t, err)

	queued, err := st.ListReclaims(ctx, 0, 1)
	require.NoError(t, err)
	require.Len(t, queued, 1, "limit applies")

	require.NoError(t, st.FailReclaim(ctx, queued[0].ID, "permission denied"))
	all, err := st.ListReclaims(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 1, all[0].Attempts)
	assert.Equal(t, "permission denied", all[0].LastError)

	rest, err := st.ListReclaims(ctx, all[0].ID, 0)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, all[1].ID, rest[0].ID)

	for _, r := range all {
		require.NoError(t, st.CompleteReclaim(ctx, r.ID))
	}
	left, err := st.ListReclaims(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestBlobKeyInUse(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	buildSnapshot(t, st, "/d", map[string]models.Blob{"a": sourceBlob("01", "/d/a", 1)})
	// The blob for "copy" is keyed at /e/x; /d/copy is only an observed path.
	buildSnapshot(t, st, "/d/", map[string]models.Blob{"sub/copy": sourceBlob("02", "/e/x", 1)})
	buildSnapshot(t, st, "/", map[string]models.Blob{"top": sourceBlob("02", "/e/x", 1)})

	tests := []struct {
		name    string
		backend models.StorageBackend
		key     string
		want    bool
	}{
		{"blob key", models.BackendSource, "/d/a", true},
		{"observed link path", models.BackendSource, "/d/sub/copy", true},
		{"observed under filesystem root", models.BackendSource, "/top", true},
		{"unknown path", models.BackendSource, "/d/gone", false},
		{"backend scopes blob keys", models.BackendLocalCAS, "/d/a", false},
		{"link paths only guard source keys", models.BackendLocalCAS, "/d/sub/copy", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inUse, err := st.BlobKeyInUse(ctx, tt.backend, tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, inUse)
		})
	}
}

func TestListBlobsPaging(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	buildSnapshot(t, st, "/d", map[string]models.Blob{
		"a": sourceBlob("01", "/d/a", 1),
		"b": sourceBlob("02", "/d/b", 1),
		"c": sourceBlob("03", "/d/c", 1),
	})

	page, err := st.ListBlobs(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	next, err := st.ListBlobs(ctx, page[1].ID, 2)
	require.NoError(t, err)
	assert.Len(t, next, 1)
}

func TestEnsureSettingKeepsFirstValue(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	got, err := st.EnsureSetting(ctx, SettingHashAlgorithm, "sha256")
	require.NoError(t, err)
	assert.Equal(t, "sha256", got)

	got, err = st.EnsureSetting(ctx, SettingHashAlgorithm, "blake2b-256")
	require.NoError(t, err)
	assert.Equal(t, "sha256", got, "first value stays pinned")

	_, err = st.EnsureSetting(ctx, " ", "x")
	assert.Error(t, err)

	info, err := st.StoreInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sha256", info.HashAlgorithm)
}

func TestFootprint(t *testing.T) {
	st := testStore(t)
	buildSnapshot(t, st, "/d", map[string]models.Blob{"a": sourceBlob("01", "/d/a", 1)})

	size, err := st.Footprint()
	require.NoError(t, err)
	info, err := os.Stat(st.Path())
	require.NoError(t, err)
	assert.Positive(t, size)
	assert.GreaterOrEqual(t, size, info.Size())
}
