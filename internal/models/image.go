package models

import "time"

type Image struct {
	ID               int64     `db:"id"`
	UserID           int64     `db:"user_id"`
	Filename         string    `db:"filename"`
	OriginalFilename string    `db:"original_filename"`
	Title            string    `db:"title"`
	Description      string    `db:"description"`
	MediaType        string    `db:"media_type"`
	SizeBytes        int64     `db:"size_bytes"`
	UploadDate       time.Time `db:"upload_date"`
}

// BlobKey locates the stored file; blobs live under the owner's id.
func (i Image) BlobKey() string {
	return BlobKey(i.UserID, i.Filename)
}

type OwnedImage struct {
	Image
	ShareCount int `db:"share_count"`
}

type SharedImage struct {
	Image
	UploadedBy string `db:"uploaded_by"`
	Downloaded bool   `db:"downloaded"`
}

// AccessibleImage is an image the caller may read, either as owner or
// through a grant held by the caller.
type AccessibleImage struct {
	Image
	Granted bool `db:"granted"`
}

type Permission struct {
	ImageID    int64     `db:"image_id"`
	UserID     int64     `db:"user_id"`
	CreatedAt  time.Time `db:"created_at"`
	Downloaded bool      `db:"downloaded"`
}
