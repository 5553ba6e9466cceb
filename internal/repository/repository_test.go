package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familyphotos/api/internal/database"
	"familyphotos/api/internal/models"
)

type fixture struct {
	db          *database.DB
	users       *UserRepository
	friends     *FriendRepository
	images      *ImageRepository
	permissions *PermissionRepository
	clock       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.OpenMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &fixture{
		db:          db,
		users:       NewUserRepository(db),
		friends:     NewFriendRepository(db),
		images:      NewImageRepository(db),
		permissions: NewPermissionRepository(db),
		clock:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) tick() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

func (f *fixture) user(t *testing.T, name string) int64 {
	t.Helper()
	id, err := f.users.Create(context.Background(), models.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "hash",
		CreatedAt:    f.tick(),
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) image(t *testing.T, ownerID int64, original string) int64 {
	t.Helper()
	id, err := f.images.Create(context.Background(), f.db, models.Image{
		UserID:           ownerID,
		Filename:         original + "-" + f.tick().Format("150405.000000000"),
		OriginalFilename: original,
		MediaType:        "image/jpeg",
		UploadDate:       f.clock,
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) grant(t *testing.T, imageID, userID int64) {
	t.Helper()
	require.NoError(t, f.permissions.Grant(context.Background(), f.db, imageID, userID, f.tick()))
}

func TestUserRepositoryUniqueness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "alice")

	_, err := f.users.Create(ctx, models.User{Username: "alice", Email: "other@example.com", PasswordHash: "x", CreatedAt: f.tick()})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = f.users.Create(ctx, models.User{Username: "other", Email: "alice@example.com", PasswordHash: "x", CreatedAt: f.tick()})
	assert.ErrorIs(t, err, ErrDuplicate)

	exists, err := f.users.ExistsByUsernameOrEmail(ctx, "nobody", "alice@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUserRepositoryFindByLoginAndToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.user(t, "alice")

	byName, err := f.users.FindByLogin(ctx, "alice")
	require.NoError(t, err)
	byEmail, err := f.users.FindByLogin(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, byName.ID)
	assert.Equal(t, id, byEmail.ID)

	upper, err := f.users.FindByLogin(ctx, "Alice@Example.COM")
	require.NoError(t, err)
	assert.Equal(t, id, upper.ID)
	_, err = f.users.FindByLogin(ctx, "ALICE")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.users.FindByLogin(ctx, "bob")
	assert.ErrorIs(t, err, ErrUserNotFound)

	hash := "token-hash"
	require.NoError(t, f.users.SetSessionToken(ctx, id, &hash))
	found, err := f.users.FindBySessionToken(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, id, found.ID)

	require.NoError(t, f.users.SetSessionToken(ctx, id, nil))
	_, err = f.users.FindBySessionToken(ctx, hash)
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.ErrorIs(t, f.users.SetSessionToken(ctx, 999, nil), ErrUserNotFound)
}

func TestFriendRepositoryDirectedAndSymmetric(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	carol := f.user(t, "carol")

	require.NoError(t, f.friends.Create(ctx, alice, bob, f.tick()))
	require.NoError(t, f.friends.Create(ctx, carol, alice, f.tick()))
	assert.ErrorIs(t, f.friends.Create(ctx, alice, bob, f.tick()), ErrDuplicate)

	directed, err := f.friends.List(ctx, alice, false)
	require.NoError(t, err)
	require.Len(t, directed, 1)
	assert.Equal(t, "bob", directed[0].Username)

	symmetric, err := f.friends.List(ctx, alice, true)
	require.NoError(t, err)
	require.Len(t, symmetric, 2)
	assert.Equal(t, "bob", symmetric[0].Username)
	assert.Equal(t, "carol", symmetric[1].Username)

	linked, err := f.friends.Linked(ctx, alice, carol, false)
	require.NoError(t, err)
	assert.False(t, linked)
	linked, err = f.friends.Linked(ctx, alice, carol, true)
	require.NoError(t, err)
	assert.True(t, linked)
}

func TestFriendRepositoryRejectsSelfEdge(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")

	assert.Error(t, f.friends.Create(context.Background(), alice, alice, f.tick()))
}

func TestImageListingsSeparateOwnedAndShared(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	first := f.image(t, alice, "first.jpg")
	second := f.image(t, alice, "second.jpg")
	f.grant(t, first, bob)
	f.grant(t, second, bob)
	f.grant(t, second, alice)

	owned, err := f.images.ListOwned(ctx, alice)
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, second, owned[0].ID)
	assert.Equal(t, 2, owned[0].ShareCount)
	assert.Equal(t, first, owned[1].ID)
	assert.Equal(t, 1, owned[1].ShareCount)

	sharedWithBob, err := f.images.ListSharedWith(ctx, bob)
	require.NoError(t, err)
	require.Len(t, sharedWithBob, 2)
	assert.Equal(t, "alice", sharedWithBob[0].UploadedBy)
	assert.Equal(t, second, sharedWithBob[0].ID)

	sharedWithAlice, err := f.images.ListSharedWith(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, sharedWithAlice)
}

func TestImageListingBreaksTimestampTiesByID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	at := f.tick()
	var ids []int64
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		id, err := f.images.Create(ctx, f.db, models.Image{
			UserID: alice, Filename: name + ".stored", OriginalFilename: name, UploadDate: at,
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	owned, err := f.images.ListOwned(ctx, alice)
	require.NoError(t, err)
	require.Len(t, owned, 3)
	assert.Equal(t, []int64{ids[2], ids[1], ids[0]}, []int64{owned[0].ID, owned[1].ID, owned[2].ID})
}

func TestPermissionGrantIsUnique(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	img := f.image(t, alice, "a.jpg")

	f.grant(t, img, bob)
	assert.ErrorIs(t, f.permissions.Grant(ctx, f.db, img, bob, f.tick()), ErrDuplicate)

	perm, err := f.permissions.Get(ctx, img, bob)
	require.NoError(t, err)
	assert.False(t, perm.Downloaded)
}

func TestMarkDownloadedIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	img := f.image(t, alice, "a.jpg")
	f.grant(t, img, bob)

	changed, err := f.permissions.MarkDownloaded(ctx, img, bob)
	require.NoError(t, err)
	assert.True(t, changed)
	afterFirst, err := f.permissions.Get(ctx, img, bob)
	require.NoError(t, err)

	changed, err = f.permissions.MarkDownloaded(ctx, img, bob)
	require.NoError(t, err)
	assert.False(t, changed)
	afterSecond, err := f.permissions.Get(ctx, img, bob)
	require.NoError(t, err)

	assert.Equal(t, afterFirst, afterSecond)
	assert.True(t, afterSecond.Downloaded)

	changed, err = f.permissions.MarkDownloaded(ctx, img, alice)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestUndownloadedQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	fromBob := f.image(t, bob, "bob.jpg")
	own := f.image(t, alice, "own.jpg")
	f.grant(t, fromBob, alice)
	f.grant(t, own, alice)

	others, err := f.permissions.ListUndownloadedFromOthers(ctx, alice)
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, fromBob, others[0].ID)
	assert.False(t, others[0].Downloaded)

	all, err := f.permissions.ListAllUndownloaded(ctx, alice)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, own, all[0].ID)

	_, err = f.permissions.MarkDownloaded(ctx, fromBob, alice)
	require.NoError(t, err)

	others, err = f.permissions.ListUndownloadedFromOthers(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestFindAccessibleIsOwnerOrGrantee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	carol := f.user(t, "carol")
	img := f.image(t, alice, "a.jpg")
	f.grant(t, img, bob)

	owner, err := f.permissions.FindAccessible(ctx, img, alice)
	require.NoError(t, err)
	assert.False(t, owner.Granted)
	assert.Equal(t, alice, owner.UserID)

	grantee, err := f.permissions.FindAccessible(ctx, img, bob)
	require.NoError(t, err)
	assert.True(t, grantee.Granted)

	_, err = f.permissions.FindAccessible(ctx, img, carol)
	assert.ErrorIs(t, err, ErrImageNotFound)

	_, err = f.permissions.FindAccessible(ctx, 424242, alice)
	assert.ErrorIs(t, err, ErrImageNotFound)
}
