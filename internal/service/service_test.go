package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"familyphotos/api/internal/config"
	"familyphotos/api/internal/database"
	"familyphotos/api/internal/models"
	"familyphotos/api/internal/repository"
	"familyphotos/api/internal/security"
	"familyphotos/api/internal/storage"
)

var (
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0x01}, 64)...)
	jpegBytes = append([]byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, bytes.Repeat([]byte{0x02}, 64)...)
)

var fastParams = security.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

type testEnv struct {
	cfg         *config.AppConfig
	db          *database.DB
	store       storage.BlobStore
	permissions *repository.PermissionRepository
	auth        *AuthService
	friends     *FriendService
	gallery     *GalleryService
	exports     *ExportService
	clock       time.Time
}

func testConfig(t *testing.T) *config.AppConfig {
	return &config.AppConfig{
		Environment: "test",
		Security: config.SecurityConfig{
			TokenBytes:       32,
			LoginMaxAttempts: 3,
			LoginWindow:      time.Minute,
		},
		Uploads: config.UploadConfig{
			MaxBytes:          1 << 20,
			AllowedExtensions: []string{"jpg", "jpeg", "png", "gif"},
		},
		Exports: config.ExportConfig{
			ScratchDir: t.TempDir(),
		},
	}
}

func newTestEnv(t *testing.T, cfg *config.AppConfig) *testEnv {
	t.Helper()

	db, err := database.OpenMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	return newTestEnvWithStore(t, cfg, db, store)
}

func newTestEnvWithStore(t *testing.T, cfg *config.AppConfig, db *database.DB, store storage.BlobStore) *testEnv {
	t.Helper()

	log := zerolog.Nop()
	users := repository.NewUserRepository(db)
	images := repository.NewImageRepository(db)
	permissions := repository.NewPermissionRepository(db)

	env := &testEnv{
		cfg:         cfg,
		db:          db,
		store:       store,
		permissions: permissions,
		clock:       time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}

	env.auth = NewAuthService(users, security.NewPasswordHasher(fastParams), nil, cfg, log)
	env.friends = NewFriendService(users, repository.NewFriendRepository(db), cfg, log)
	env.gallery = NewGalleryService(db, images, permissions, env.friends, store, cfg, log)
	env.exports = NewExportService(permissions, store, cfg, log)

	tick := func() time.Time {
		env.clock = env.clock.Add(time.Second)
		return env.clock
	}
	env.auth.now = tick
	env.friends.now = tick
	env.gallery.now = tick
	env.exports.now = tick

	return env
}

func (e *testEnv) register(t *testing.T, name string) models.User {
	t.Helper()
	user, err := e.auth.Register(context.Background(), RegisterInput{
		Username: name,
		Email:    name + "@example.com",
		Password: name + "-secret",
	})
	require.NoError(t, err)
	return user
}

func (e *testEnv) befriend(t *testing.T, owner, friend models.User) {
	t.Helper()
	_, err := e.friends.AddFriend(context.Background(), owner.ID, friend.Email)
	require.NoError(t, err)
}

func (e *testEnv) upload(t *testing.T, owner models.User, filename string, shareWith ...int64) models.Image {
	t.Helper()
	data := pngBytes
	if ext := filename[len(filename)-3:]; ext == "jpg" {
		data = jpegBytes
	}
	res, err := e.gallery.Upload(context.Background(), UploadInput{
		Owner:     owner,
		File:      bytes.NewReader(data),
		Filename:  filename,
		Size:      int64(len(data)),
		Title:     filename,
		ShareWith: shareWith,
	})
	require.NoError(t, err)
	return res.Image
}
