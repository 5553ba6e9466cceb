package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"familyphotos/api/internal/export"
	"familyphotos/api/internal/middleware"
	"familyphotos/api/internal/models"
	"familyphotos/api/internal/service"
)

// multipart framing and text fields on top of the file itself
const formOverhead = 1 << 20

type imageResponse struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	MediaType        string    `json:"media_type"`
	SizeBytes        int64     `json:"size_bytes"`
	UploadDate       time.Time `json:"upload_date"`
	URL              string    `json:"url"`
	ShareCount       *int      `json:"share_count,omitempty"`
	UploadedBy       string    `json:"uploaded_by,omitempty"`
	Downloaded       *bool     `json:"downloaded,omitempty"`
}

func newImageResponse(image models.Image) imageResponse {
	return imageResponse{
		ID:               image.ID,
		UserID:           image.UserID,
		Filename:         image.Filename,
		OriginalFilename: image.OriginalFilename,
		Title:            image.Title,
		Description:      image.Description,
		MediaType:        image.MediaType,
		SizeBytes:        image.SizeBytes,
		UploadDate:       image.UploadDate,
		URL:              fmt.Sprintf("/api/download?ids=%d", image.ID),
	}
}

func ownedResponses(images []models.OwnedImage) []imageResponse {
	resp := make([]imageResponse, 0, len(images))
	for _, image := range images {
		item := newImageResponse(image.Image)
		count := image.ShareCount
		item.ShareCount = &count
		resp = append(resp, item)
	}
	return resp
}

func sharedResponses(images []models.SharedImage) []imageResponse {
	resp := make([]imageResponse, 0, len(images))
	for _, image := range images {
		item := newImageResponse(image.Image)
		item.UploadedBy = image.UploadedBy
		downloaded := image.Downloaded
		item.Downloaded = &downloaded
		resp = append(resp, item)
	}
	return resp
}

func (h HandlerSet) ListImages(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	images, err := h.galleryService.ListOwned(c.Request.Context(), user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"images": ownedResponses(images)})
}

func (h HandlerSet) ListSharedImages(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	images, err := h.galleryService.ListShared(c.Request.Context(), user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"images": sharedResponses(images)})
}

// ListNotDownloadedImages lists pending shares. With download=true it sends
// every pending image, self-shares included, and marks them downloaded once
// the transfer finished.
func (h HandlerSet) ListNotDownloadedImages(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	download, _ := strconv.ParseBool(c.DefaultQuery("download", "false"))
	if !download {
		images, err := h.galleryService.ListUndownloaded(c.Request.Context(), user.ID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"images": sharedResponses(images)})
		return
	}

	pending, err := h.galleryService.ListAllUndownloaded(c.Request.Context(), user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if len(pending) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"images":  []imageResponse{},
			"message": "no new images to download",
		})
		return
	}

	ids := make([]int64, 0, len(pending))
	for _, image := range pending {
		ids = append(ids, image.ID)
	}
	h.sendExport(c, service.ExportInput{
		CallerID:      user.ID,
		ImageIDs:      ids,
		ArchivePrefix: export.PendingArchivePrefix,
	})
}

func (h HandlerSet) UploadImage(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	if limit := h.cfg.Uploads.MaxBytes; limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+formOverhead)
	}

	header, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			badRequest(c, "file too large")
			return
		}
		badRequest(c, "image file required")
		return
	}
	file, err := header.Open()
	if err != nil {
		h.respondError(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer file.Close()

	shareWith, err := parseIDList(append(c.PostFormArray("share_with"), c.PostFormArray("share_with[]")...))
	if err != nil {
		badRequest(c, "share_with must list user ids")
		return
	}

	result, err := h.galleryService.Upload(c.Request.Context(), service.UploadInput{
		Owner:         user,
		File:          file,
		Filename:      header.Filename,
		Size:          header.Size,
		Title:         c.PostForm("title"),
		Description:   c.PostForm("description"),
		ShareWith:     shareWith,
		ShareWithSelf: formBool(c.PostForm("share_with_self")),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"image_id":    result.Image.ID,
		"image":       newImageResponse(result.Image),
		"shared_with": result.SharedWith,
	})
}

type shareRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

func (h HandlerSet) ShareImage(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	imageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid image id")
		return
	}

	var req shareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "user_id required")
		return
	}

	if err := h.galleryService.Grant(c.Request.Context(), user.ID, imageID, req.UserID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"image_id": imageID, "user_id": req.UserID})
}

// parseIDList accepts repeated values, comma separated values and JSON
// arrays, in any mix.
func parseIDList(values []string) ([]int64, error) {
	ids := []int64{}
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if strings.HasPrefix(value, "[") {
			var list []int64
			if err := json.Unmarshal([]byte(value), &list); err != nil {
				return nil, err
			}
			ids = append(ids, list...)
			continue
		}
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func formBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
