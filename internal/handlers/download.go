package handlers

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"familyphotos/api/internal/middleware"
	"familyphotos/api/internal/service"
)

type downloadRequest struct {
	IDs []int64 `json:"ids"`
}

// Download sends one image as-is or several as a zip. GET takes ids from the
// query string, POST from a JSON body.
func (h HandlerSet) Download(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var ids []int64
	if c.Request.Method == http.MethodPost {
		var req downloadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "ids must be a list of image ids")
			return
		}
		ids = req.IDs
	} else {
		parsed, err := parseIDList(append(c.QueryArray("ids"), c.QueryArray("id")...))
		if err != nil {
			badRequest(c, "ids must be a list of image ids")
			return
		}
		ids = parsed
	}

	h.sendExport(c, service.ExportInput{CallerID: user.ID, ImageIDs: ids})
}

func (h HandlerSet) sendExport(c *gin.Context, input service.ExportInput) {
	ctx := c.Request.Context()

	exp, err := h.exportService.Prepare(ctx, input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer func() {
		if err := exp.Close(); err != nil {
			h.log.Error().Err(err).Msg("remove export scratch file")
		}
	}()

	c.Header("Content-Type", exp.MediaType)
	c.Header("Content-Length", strconv.FormatInt(exp.Size, 10))
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": exp.Filename}))
	c.Status(http.StatusOK)

	if _, err := exp.Stream(c.Writer); err != nil {
		h.log.Warn().Err(err).Int64("user_id", input.CallerID).Msg("export transfer interrupted")
		return
	}

	marked, err := h.exportService.Confirm(ctx, exp)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", input.CallerID).Msg("mark images downloaded")
		return
	}
	h.log.Debug().
		Int64("user_id", input.CallerID).
		Int("images", len(exp.Images())).
		Int("marked", marked).
		Bool("archive", exp.Archived()).
		Msg("export delivered")
}
