package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familyphotos/api/internal/database"
	"familyphotos/api/internal/export"
	"familyphotos/api/internal/storage"
)

func stream(t *testing.T, exp *Export) []byte {
	t.Helper()
	var buf bytes.Buffer
	n, err := exp.Stream(&buf)
	require.NoError(t, err)
	assert.Equal(t, exp.Size, n)
	return buf.Bytes()
}

func zipNames(t *testing.T, data []byte) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestExportAuthorizationIsOwnerOrGrantee(t *testing.T) {
	env := newTestEnv(t, testConfig(t))
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	carol := env.register(t, "carol")
	env.befriend(t, alice, bob)
	image := env.upload(t, alice, "a.png", bob.ID)

	for _, caller := range []int64{alice.ID, bob.ID} {
		exp, err := env.exports.Prepare(ctx, ExportInput{CallerID: caller, ImageIDs: []int64{image.ID}})
		require.NoError(t, err)
		assert.Equal(t, pngBytes, stream(t, exp))
		require.NoError(t, exp.Close())
	}

	_, err := env.exports.Prepare(ctx, ExportInput{CallerID: carol.ID, ImageIDs: []int64{image.ID}})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.exports.Prepare(ctx, ExportInput{CallerID: bob.ID, ImageIDs: []int64{image.ID + 50}})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.exports.Prepare(ctx, ExportInput{CallerID: bob.ID})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestExportSingleFileIsNotArchived(t *testing.T) {
	env := newTestEnv(t, testConfig(t))
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	env.befriend(t, alice, bob)
	mine := env.upload(t, alice, "holiday.jpg", bob.ID)
	other := env.upload(t, bob, "other.png")

	// ids bob cannot see are dropped without failing the request
	exp, err := env.exports.Prepare(ctx, ExportInput{CallerID: bob.ID, ImageIDs: []int64{mine.ID, mine.ID, other.ID + 10}})
	require.NoError(t, err)
	defer exp.Close()

	assert.False(t, exp.Archived())
	assert.Equal(t, "holiday.jpg", exp.Filename)
	assert.Equal(t, "image/jpeg", exp.MediaType)
	assert.Equal(t, int64(len(jpegBytes)), exp.Size)
	assert.Equal(t, jpegBytes, stream(t, exp))
}

func TestExportArchiveRenamesCollisions(t *testing.T) {
	env := newTestEnv(t, testConfig(t))
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	env.befriend(t, alice, bob)
	env.befriend(t, bob, alice)
	first := env.upload(t, alice, "a.jpg", bob.ID)
	second := env.upload(t, bob, "a.jpg")
	third := env.upload(t, alice, "b.png", bob.ID)

	exp, err := env.exports.Prepare(ctx, ExportInput{CallerID: bob.ID, ImageIDs: []int64{first.ID, second.ID, third.ID}})
	require.NoError(t, err)

	assert.True(t, exp.Archived())
	assert.Equal(t, "application/zip", exp.MediaType)
	assert.Regexp(t, `^family_photos_\d{8}_\d{6}\.zip$`, exp.Filename)
	assert.Equal(t, []string{"a.jpg", "a_2.jpg", "b.png"}, zipNames(t, stream(t, exp)))

	scratch := exp.scratch.Path()
	require.NoError(t, exp.Close())
	assert.NoFileExists(t, scratch)
}

func TestExportPendingPrefix(t *testing.T) {
	env := newTestEnv(t, testConfig(t))
	ctx := context.Background()
	alice := env.register(t, "alice")
	one := env.upload(t, alice, "one.png")
	two := env.upload(t, alice, "two.png")

	exp, err := env.exports.Prepare(ctx, ExportInput{
		CallerID:      alice.ID,
		ImageIDs:      []int64{one.ID, two.ID},
		ArchivePrefix: export.PendingArchivePrefix,
	})
	require.NoError(t, err)
	defer exp.Close()
	assert.Regexp(t, `^new_family_photos_`, exp.Filename)
}

func TestConfirmMarksDeliveredGrants(t *testing.T) {
	env := newTestEnv(t, testConfig(t))
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	env.befriend(t, alice, bob)
	first := env.upload(t, alice, "a.png", bob.ID)
	second := env.upload(t, alice, "b.png", bob.ID)

	pending, err := env.gallery.ListUndownloaded(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	exp, err := env.exports.Prepare(ctx, ExportInput{CallerID: bob.ID, ImageIDs: []int64{first.ID}})
	require.NoError(t, err)
	stream(t, exp)
	require.NoError(t, exp.Close())

	// preparing and streaming alone marks nothing
	pending, err = env.gallery.ListUndownloaded(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	marked, err := env.exports.Confirm(ctx, exp)
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	marked, err = env.exports.Confirm(ctx, exp)
	require.NoError(t, err)
	assert.Zero(t, marked, "a second confirmation is a no-op")

	pending, err = env.gallery.ListUndownloaded(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	perm, err := env.permissions.Get(ctx, first.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, perm.Downloaded)
}

func TestConfirmByOwnerLeavesFriendGrants(t *testing.T) {
	env := newTestEnv(t, testConfig(t))
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	env.befriend(t, alice, bob)
	image := env.upload(t, alice, "a.png", bob.ID)

	exp, err := env.exports.Prepare(ctx, ExportInput{CallerID: alice.ID, ImageIDs: []int64{image.ID}})
	require.NoError(t, err)
	stream(t, exp)
	marked, err := env.exports.Confirm(ctx, exp)
	require.NoError(t, err)
	assert.Zero(t, marked)

	perm, err := env.permissions.Get(ctx, image.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, perm.Downloaded)
}

func TestExportMissingBlob(t *testing.T) {
	env := newTestEnv(t, testConfig(t))
	ctx := context.Background()
	alice := env.register(t, "alice")
	gone := env.upload(t, alice, "gone.png")
	kept := env.upload(t, alice, "kept.png")
	require.NoError(t, env.store.Delete(ctx, gone.BlobKey()))

	_, err := env.exports.Prepare(ctx, ExportInput{CallerID: alice.ID, ImageIDs: []int64{gone.ID}})
	assert.ErrorIs(t, err, ErrNotFound)

	exp, err := env.exports.Prepare(ctx, ExportInput{CallerID: alice.ID, ImageIDs: []int64{gone.ID, kept.ID}})
	require.NoError(t, err)
	defer exp.Close()
	require.Len(t, exp.Images(), 1)
	assert.Equal(t, kept.ID, exp.Images()[0].ID)
}

type failingStore struct {
	storage.BlobStore
	failKey string
	openErr error
}

func (s failingStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if key == s.failKey {
		if s.openErr != nil {
			return nil, s.openErr
		}
		return nil, errors.New("read failed")
	}
	return s.BlobStore.Open(ctx, key)
}

func TestFailedArchiveCleansUpAndMarksNothing(t *testing.T) {
	cfg := testConfig(t)
	db, err := database.OpenMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	local, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	store := &failingStore{BlobStore: local}
	env := newTestEnvWithStore(t, cfg, db, store)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	env.befriend(t, alice, bob)
	first := env.upload(t, alice, "a.png", bob.ID)
	second := env.upload(t, alice, "b.png", bob.ID)
	store.failKey = second.BlobKey()

	_, err = env.exports.Prepare(ctx, ExportInput{CallerID: bob.ID, ImageIDs: []int64{first.ID, second.ID}})
	assert.ErrorIs(t, err, ErrInternal)

	left, err := os.ReadDir(cfg.Exports.ScratchDir)
	require.NoError(t, err)
	assert.Empty(t, left)

	pending, err := env.gallery.ListUndownloaded(ctx, bob.ID)
	require.NoError(t, err)
	ids := []int64{pending[0].ID, pending[1].ID}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	assert.Equal(t, []int64{first.ID, second.ID}, ids)
}

func TestSingleFileVanishingBeforeOpenIsNotFound(t *testing.T) {
	cfg := testConfig(t)
	db, err := database.OpenMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	local, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	store := &failingStore{BlobStore: local, openErr: storage.ErrBlobNotFound}
	env := newTestEnvWithStore(t, cfg, db, store)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	env.befriend(t, alice, bob)
	image := env.upload(t, alice, "a.png", bob.ID)
	store.failKey = image.BlobKey()

	_, err = env.exports.Prepare(ctx, ExportInput{CallerID: bob.ID, ImageIDs: []int64{image.ID}})
	assert.ErrorIs(t, err, ErrNotFound)

	pending, err := env.gallery.ListUndownloaded(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, image.ID, pending[0].ID)
}
