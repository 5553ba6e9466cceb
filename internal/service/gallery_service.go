package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"familyphotos/api/internal/config"
	"familyphotos/api/internal/database"
	"familyphotos/api/internal/models"
	"familyphotos/api/internal/repository"
	"familyphotos/api/internal/storage"
)

// GalleryService owns the image registry and the grant ledger: uploads,
// the owned/shared/pending listings and explicit grants.
type GalleryService struct {
	db          *database.DB
	images      *repository.ImageRepository
	permissions *repository.PermissionRepository
	friends     *FriendService
	store       storage.BlobStore
	cfg         *config.AppConfig
	log         zerolog.Logger
	now         func() time.Time
}

func NewGalleryService(
	db *database.DB,
	images *repository.ImageRepository,
	permissions *repository.PermissionRepository,
	friends *FriendService,
	store storage.BlobStore,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *GalleryService {
	return &GalleryService{
		db:          db,
		images:      images,
		permissions: permissions,
		friends:     friends,
		store:       store,
		cfg:         cfg,
		log:         log,
		now:         time.Now,
	}
}

func (s *GalleryService) ListOwned(ctx context.Context, ownerID int64) ([]models.OwnedImage, error) {
	images, err := s.images.ListOwned(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: list images: %v", ErrInternal, err)
	}
	return images, nil
}

func (s *GalleryService) ListShared(ctx context.Context, granteeID int64) ([]models.SharedImage, error) {
	images, err := s.images.ListSharedWith(ctx, granteeID)
	if err != nil {
		return nil, fmt.Errorf("%w: list shared images: %v", ErrInternal, err)
	}
	return images, nil
}

// ListUndownloaded returns pending grants on other users' images. Listing
// never marks anything as downloaded.
func (s *GalleryService) ListUndownloaded(ctx context.Context, granteeID int64) ([]models.SharedImage, error) {
	images, err := s.permissions.ListUndownloadedFromOthers(ctx, granteeID)
	if err != nil {
		return nil, fmt.Errorf("%w: list pending images: %v", ErrInternal, err)
	}
	return images, nil
}

// ListAllUndownloaded is ListUndownloaded including the caller's self-grants.
func (s *GalleryService) ListAllUndownloaded(ctx context.Context, granteeID int64) ([]models.SharedImage, error) {
	images, err := s.permissions.ListAllUndownloaded(ctx, granteeID)
	if err != nil {
		return nil, fmt.Errorf("%w: list pending images: %v", ErrInternal, err)
	}
	return images, nil
}

// Grant shares an existing image. Only the owner may grant, and only to
// themself or a friend; a repeated grant is a conflict.
func (s *GalleryService) Grant(ctx context.Context, ownerID, imageID, granteeID int64) error {
	image, err := s.images.GetByID(ctx, imageID)
	if err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			return fmt.Errorf("%w: image not found", ErrNotFound)
		}
		return fmt.Errorf("%w: load image: %v", ErrInternal, err)
	}
	if image.UserID != ownerID {
		return fmt.Errorf("%w: image not found", ErrNotFound)
	}

	if granteeID != ownerID {
		ok, err := s.friends.IsFriend(ctx, ownerID, granteeID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: user %d is not your friend", ErrInvalidArgument, granteeID)
		}
	}

	if err := s.permissions.Grant(ctx, s.db, imageID, granteeID, s.now().UTC()); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("%w: image already shared with user %d", ErrConflict, granteeID)
		}
		return fmt.Errorf("%w: grant: %v", ErrInternal, err)
	}
	return nil
}
