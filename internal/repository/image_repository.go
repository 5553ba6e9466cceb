package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"familyphotos/api/internal/database"
	"familyphotos/api/internal/models"
)

type ImageRepository struct {
	db *database.DB
}

func NewImageRepository(db *database.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

// Create inserts the image row through q, which is either the store or a
// transaction shared with the initial grants.
func (r *ImageRepository) Create(ctx context.Context, q sqlx.ExtContext, image models.Image) (int64, error) {
	const query = `
		INSERT INTO images (
			user_id, filename, original_filename, title, description,
			media_type, size_bytes, upload_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	var id int64
	err := sqlx.GetContext(ctx, q, &id, q.Rebind(query),
		image.UserID,
		image.Filename,
		image.OriginalFilename,
		image.Title,
		image.Description,
		image.MediaType,
		image.SizeBytes,
		image.UploadDate,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

func (r *ImageRepository) GetByID(ctx context.Context, id int64) (models.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images i WHERE i.id = ?`

	var image models.Image
	if err := r.db.GetContext(ctx, &image, r.db.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Image{}, ErrImageNotFound
		}
		return models.Image{}, err
	}
	return image, nil
}

// ListOwned returns the owner's images with the number of grants on each,
// newest first.
func (r *ImageRepository) ListOwned(ctx context.Context, ownerID int64) ([]models.OwnedImage, error) {
	query := `
		SELECT ` + imageColumns + `, COUNT(p.user_id) AS share_count
		FROM images i
		LEFT JOIN image_permissions p ON i.id = p.image_id
		WHERE i.user_id = ?
		GROUP BY i.id
		ORDER BY i.upload_date DESC, i.id DESC
	`

	images := []models.OwnedImage{}
	if err := r.db.SelectContext(ctx, &images, r.db.Rebind(query), ownerID); err != nil {
		return nil, err
	}
	return images, nil
}

// ListSharedWith returns images other users granted to granteeID.
func (r *ImageRepository) ListSharedWith(ctx context.Context, granteeID int64) ([]models.SharedImage, error) {
	query := `
		SELECT ` + imageColumns + `, u.username AS uploaded_by, p.downloaded
		FROM images i
		JOIN image_permissions p ON i.id = p.image_id
		JOIN users u ON i.user_id = u.id
		WHERE p.user_id = ? AND i.user_id <> ?
		ORDER BY i.upload_date DESC, i.id DESC
	`

	images := []models.SharedImage{}
	if err := r.db.SelectContext(ctx, &images, r.db.Rebind(query), granteeID, granteeID); err != nil {
		return nil, err
	}
	return images, nil
}
