package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"familyphotos/api/internal/config"
	"familyphotos/api/internal/export"
	"familyphotos/api/internal/models"
	"familyphotos/api/internal/repository"
	"familyphotos/api/internal/storage"
)

// ExportService resolves requested image ids to a single file or a zip
// archive. Nothing is marked downloaded until Confirm is called after the
// bytes reached the client.
type ExportService struct {
	permissions *repository.PermissionRepository
	store       storage.BlobStore
	cfg         *config.AppConfig
	log         zerolog.Logger
	now         func() time.Time
}

func NewExportService(
	permissions *repository.PermissionRepository,
	store storage.BlobStore,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *ExportService {
	return &ExportService{
		permissions: permissions,
		store:       store,
		cfg:         cfg,
		log:         log,
		now:         time.Now,
	}
}

type ExportInput struct {
	CallerID int64
	ImageIDs []int64
	// ArchivePrefix names multi-file downloads; defaults to export.ArchivePrefix.
	ArchivePrefix string
}

type exportItem struct {
	image   models.Image
	granted bool
	info    storage.BlobInfo
}

// Export is a prepared download with its source already open, so a missing
// file surfaces from Prepare before any response is written. Callers must
// Close it.
type Export struct {
	Filename  string
	MediaType string
	Size      int64

	callerID int64
	items    []exportItem
	scratch  *export.Scratch
	src      io.ReadCloser
}

// Archived reports whether the export is a zip of several images.
func (e *Export) Archived() bool {
	return e.scratch != nil
}

// Images lists what the export delivers, in archive order.
func (e *Export) Images() []models.Image {
	images := make([]models.Image, len(e.items))
	for i, item := range e.items {
		images[i] = item.image
	}
	return images
}

// Stream copies the file or archive to w.
func (e *Export) Stream(w io.Writer) (int64, error) {
	return io.Copy(w, e.src)
}

func (e *Export) Close() error {
	var srcErr error
	if e.src != nil {
		srcErr = e.src.Close()
		e.src = nil
	}
	return errors.Join(srcErr, e.scratch.Close())
}

func (s *ExportService) Prepare(ctx context.Context, input ExportInput) (*Export, error) {
	requested := dedupeIDs(input.ImageIDs)
	if len(requested) == 0 {
		return nil, fmt.Errorf("%w: no image ids given", ErrInvalidArgument)
	}

	authorized := make([]models.AccessibleImage, 0, len(requested))
	for _, id := range requested {
		image, err := s.permissions.FindAccessible(ctx, id, input.CallerID)
		if err != nil {
			if errors.Is(err, repository.ErrImageNotFound) {
				continue
			}
			return nil, fmt.Errorf("%w: resolve image: %v", ErrInternal, err)
		}
		authorized = append(authorized, image)
	}
	if len(authorized) == 0 {
		return nil, fmt.Errorf("%w: no accessible images", ErrNotFound)
	}

	items := make([]exportItem, 0, len(authorized))
	for _, image := range authorized {
		info, err := s.store.Stat(ctx, image.BlobKey())
		if err != nil {
			if errors.Is(err, storage.ErrBlobNotFound) {
				s.log.Warn().Int64("image_id", image.ID).Str("key", image.BlobKey()).Msg("image file missing from storage")
				continue
			}
			return nil, fmt.Errorf("%w: stat image: %v", ErrInternal, err)
		}
		items = append(items, exportItem{image: image.Image, granted: image.Granted, info: info})
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: image file not found", ErrNotFound)
	}

	exp := &Export{
		callerID: input.CallerID,
		items:    items,
	}

	if len(items) == 1 {
		item := items[0]
		src, err := s.store.Open(ctx, item.image.BlobKey())
		if err != nil {
			if errors.Is(err, storage.ErrBlobNotFound) {
				s.log.Warn().Int64("image_id", item.image.ID).Str("key", item.image.BlobKey()).Msg("image file vanished before transfer")
				return nil, fmt.Errorf("%w: image file not found", ErrNotFound)
			}
			return nil, fmt.Errorf("%w: open image: %v", ErrInternal, err)
		}
		exp.src = src
		exp.Filename = item.image.OriginalFilename
		exp.MediaType = item.info.MediaType
		exp.Size = item.info.Size
		return exp, nil
	}

	scratch, err := s.buildArchive(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("%w: build archive: %v", ErrInternal, err)
	}
	src, err := scratch.Open()
	if err != nil {
		scratch.Close()
		return nil, fmt.Errorf("%w: open archive: %v", ErrInternal, err)
	}

	prefix := input.ArchivePrefix
	if prefix == "" {
		prefix = export.ArchivePrefix
	}
	exp.scratch = scratch
	exp.src = src
	exp.Filename = export.ArchiveName(prefix, s.now())
	exp.MediaType = "application/zip"
	exp.Size = scratch.Size()
	return exp, nil
}

func (s *ExportService) buildArchive(ctx context.Context, items []exportItem) (*export.Scratch, error) {
	candidates := make([]string, len(items))
	for i, item := range items {
		candidates[i] = item.image.OriginalFilename
	}
	names := export.EntryNames(candidates)

	entries := make([]export.Entry, len(items))
	for i, item := range items {
		key := item.image.BlobKey()
		entries[i] = export.Entry{
			Name:     names[i],
			Modified: item.image.UploadDate,
			Open: func(ctx context.Context) (io.ReadCloser, error) {
				return s.store.Open(ctx, key)
			},
		}
	}

	return export.BuildScratch(ctx, s.cfg.Exports.ScratchDir, entries)
}

// Confirm marks every delivered image the caller holds a grant on as
// downloaded. Owned images without a self-grant have nothing to mark. It
// returns how many grants changed state.
func (s *ExportService) Confirm(ctx context.Context, exp *Export) (int, error) {
	marked := 0
	for _, item := range exp.items {
		if !item.granted {
			continue
		}
		changed, err := s.permissions.MarkDownloaded(ctx, item.image.ID, exp.callerID)
		if err != nil {
			return marked, fmt.Errorf("%w: mark downloaded: %v", ErrInternal, err)
		}
		if changed {
			marked++
		}
	}
	return marked, nil
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
