package repository

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrImageNotFound      = errors.New("image not found")
	ErrPermissionNotFound = errors.New("permission not found")
	ErrDuplicate          = errors.New("duplicate record")
)

const imageColumns = `
	i.id, i.user_id, i.filename, i.original_filename, i.title, i.description,
	i.media_type, i.size_bytes, i.upload_date`
