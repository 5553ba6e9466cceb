package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"familyphotos/api/internal/ids"
	"familyphotos/api/internal/media/sniffer"
	"familyphotos/api/internal/models"
)

type UploadInput struct {
	Owner         models.User
	File          io.Reader
	Filename      string
	Size          int64
	Title         string
	Description   string
	ShareWith     []int64
	ShareWithSelf bool
}

type UploadResult struct {
	Image      models.Image
	SharedWith []int64
}

// Upload validates the file and its recipients, writes the blob and then
// registers the image together with its grants in one transaction. The blob
// is removed again if registration fails.
func (s *GalleryService) Upload(ctx context.Context, input UploadInput) (UploadResult, error) {
	if input.File == nil || input.Filename == "" {
		return UploadResult{}, fmt.Errorf("%w: image file required", ErrInvalidArgument)
	}

	ext := sniffer.Extension(input.Filename)
	if !sniffer.ExtensionAllowed(ext, s.cfg.Uploads.AllowedExtensions) {
		return UploadResult{}, fmt.Errorf("%w: file type .%s not allowed", ErrInvalidArgument, ext)
	}
	maxBytes := s.cfg.Uploads.MaxBytes
	if maxBytes > 0 && input.Size > maxBytes {
		return UploadResult{}, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidArgument, maxBytes)
	}

	recipients, err := s.resolveRecipients(ctx, input)
	if err != nil {
		return UploadResult{}, err
	}

	result, head, err := sniffer.Detect(input.File)
	if err != nil {
		if errors.Is(err, sniffer.ErrUnknownType) {
			return UploadResult{}, fmt.Errorf("%w: file is not a supported image", ErrInvalidArgument)
		}
		return UploadResult{}, fmt.Errorf("%w: read upload: %v", ErrInternal, err)
	}
	if !result.MatchesExtension(ext) {
		return UploadResult{}, fmt.Errorf("%w: content is %s but extension is .%s", ErrInvalidArgument, result.MIME, ext)
	}

	body := &limitedReader{r: io.MultiReader(bytes.NewReader(head), input.File), limit: maxBytes}
	filename := ids.Filename(ext)
	key, err := s.store.Put(ctx, strconv.FormatInt(input.Owner.ID, 10), filename, body)
	if err != nil {
		if body.exceeded {
			return UploadResult{}, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidArgument, maxBytes)
		}
		return UploadResult{}, fmt.Errorf("%w: store file: %v", ErrInternal, err)
	}

	now := s.now().UTC()
	image := models.Image{
		UserID:           input.Owner.ID,
		Filename:         filename,
		OriginalFilename: displayName(input.Filename),
		Title:            strings.TrimSpace(input.Title),
		Description:      strings.TrimSpace(input.Description),
		MediaType:        result.MIME,
		SizeBytes:        body.read,
		UploadDate:       now,
	}

	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		id, err := s.images.Create(ctx, tx, image)
		if err != nil {
			return fmt.Errorf("create image: %w", err)
		}
		image.ID = id

		for _, userID := range recipients {
			if err := s.permissions.Grant(ctx, tx, id, userID, now); err != nil {
				return fmt.Errorf("grant user %d: %w", userID, err)
			}
		}
		return nil
	})
	if err != nil {
		if delErr := s.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.log.Error().Err(delErr).Str("key", key).Msg("remove orphaned blob")
		}
		return UploadResult{}, fmt.Errorf("%w: register image: %v", ErrInternal, err)
	}

	s.log.Info().
		Int64("image_id", image.ID).
		Int64("user_id", image.UserID).
		Int("recipients", len(recipients)).
		Msg("image uploaded")

	return UploadResult{Image: image, SharedWith: recipients}, nil
}

// resolveRecipients deduplicates the requested grantees, folds the owner's
// own id into the self-share flag and checks every other recipient is a
// friend.
func (s *GalleryService) resolveRecipients(ctx context.Context, input UploadInput) ([]int64, error) {
	shareWithSelf := input.ShareWithSelf
	seen := make(map[int64]struct{}, len(input.ShareWith))
	recipients := make([]int64, 0, len(input.ShareWith)+1)

	for _, userID := range input.ShareWith {
		if userID == input.Owner.ID {
			shareWithSelf = true
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}

		ok, err := s.friends.IsFriend(ctx, input.Owner.ID, userID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: user %d is not your friend", ErrInvalidArgument, userID)
		}
		recipients = append(recipients, userID)
	}

	if shareWithSelf {
		recipients = append(recipients, input.Owner.ID)
	}
	return recipients, nil
}

// displayName strips any client supplied directory components.
func displayName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" {
		return "image"
	}
	return name
}

var errTooLarge = errors.New("upload too large")

// limitedReader counts bytes and fails once more than limit bytes were
// read. A non-positive limit disables the check.
type limitedReader struct {
	r        io.Reader
	limit    int64
	read     int64
	exceeded bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.limit > 0 && l.read > l.limit {
		l.exceeded = true
		return n, errTooLarge
	}
	return n, err
}
