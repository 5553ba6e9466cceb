package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"familyphotos/api/internal/database"
	"familyphotos/api/internal/models"
)

// PermissionRepository is the grant and download ledger. Each row moves
// through not granted -> granted -> downloaded and never back.
type PermissionRepository struct {
	db *database.DB
}

func NewPermissionRepository(db *database.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// Grant inserts a grant through q. A second grant for the same pair fails
// with ErrDuplicate.
func (r *PermissionRepository) Grant(ctx context.Context, q sqlx.ExecerContext, imageID, userID int64, grantedAt time.Time) error {
	const query = `
		INSERT INTO image_permissions (image_id, user_id, created_at, downloaded)
		VALUES (?, ?, ?, ?)
	`

	if _, err := q.ExecContext(ctx, r.db.Rebind(query), imageID, userID, grantedAt, false); err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *PermissionRepository) Get(ctx context.Context, imageID, userID int64) (models.Permission, error) {
	const query = `
		SELECT image_id, user_id, created_at, downloaded
		FROM image_permissions
		WHERE image_id = ? AND user_id = ?
	`

	var perm models.Permission
	if err := r.db.GetContext(ctx, &perm, r.db.Rebind(query), imageID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Permission{}, ErrPermissionNotFound
		}
		return models.Permission{}, err
	}
	return perm, nil
}

// MarkDownloaded flips the flag for one grant. It reports whether this call
// performed the transition; repeats and missing grants are no-ops.
func (r *PermissionRepository) MarkDownloaded(ctx context.Context, imageID, userID int64) (bool, error) {
	const query = `
		UPDATE image_permissions
		SET downloaded = ?
		WHERE image_id = ? AND user_id = ? AND downloaded = ?
	`

	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), true, imageID, userID, false)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListUndownloadedFromOthers returns pending grants on images owned by
// someone other than userID.
func (r *PermissionRepository) ListUndownloadedFromOthers(ctx context.Context, userID int64) ([]models.SharedImage, error) {
	return r.listUndownloaded(ctx, userID, true)
}

// ListAllUndownloaded returns every pending grant of userID, self-grants included.
func (r *PermissionRepository) ListAllUndownloaded(ctx context.Context, userID int64) ([]models.SharedImage, error) {
	return r.listUndownloaded(ctx, userID, false)
}

func (r *PermissionRepository) listUndownloaded(ctx context.Context, userID int64, excludeOwn bool) ([]models.SharedImage, error) {
	query := `
		SELECT ` + imageColumns + `, u.username AS uploaded_by, p.downloaded
		FROM images i
		JOIN image_permissions p ON i.id = p.image_id
		JOIN users u ON i.user_id = u.id
		WHERE p.user_id = ? AND p.downloaded = ?
	`
	args := []any{userID, false}
	if excludeOwn {
		query += ` AND i.user_id <> ?`
		args = append(args, userID)
	}
	query += ` ORDER BY i.upload_date DESC, i.id DESC`

	images := []models.SharedImage{}
	if err := r.db.SelectContext(ctx, &images, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return images, nil
}

// FindAccessible returns the image when userID owns it or holds a grant on
// it. Anything else, including unknown ids, is ErrImageNotFound.
func (r *PermissionRepository) FindAccessible(ctx context.Context, imageID, userID int64) (models.AccessibleImage, error) {
	query := `
		SELECT ` + imageColumns + `, (p.user_id IS NOT NULL) AS granted
		FROM images i
		LEFT JOIN image_permissions p ON i.id = p.image_id AND p.user_id = ?
		WHERE i.id = ? AND (i.user_id = ? OR p.user_id IS NOT NULL)
	`

	var image models.AccessibleImage
	if err := r.db.GetContext(ctx, &image, r.db.Rebind(query), userID, imageID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.AccessibleImage{}, ErrImageNotFound
		}
		return models.AccessibleImage{}, err
	}
	return image, nil
}
