package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/resumehub/internal/core"
	"github.com/example/resumehub/internal/export"
	"github.com/example/resumehub/internal/models"
	"github.com/example/resumehub/internal/render"
	"github.com/example/resumehub/internal/storage"
)

// ArchiveURLHeader carries the presigned link to the archived copy of an export.
const ArchiveURLHeader = "X-Export-Archive-URL"

// ExportHandler renders resumes and streams them back as PDF files.
type ExportHandler struct {
	resumeService core.ResumeService
	userService   core.UserService
	exporter      *export.Exporter
	validator     *core.ResumeValidator
	archive       *storage.Archive
	logger        *zap.Logger
}

// NewExportHandler creates a new ExportHandler. archive may be nil.
func NewExportHandler(rs core.ResumeService, us core.UserService, exporter *export.Exporter, v *core.ResumeValidator, archive *storage.Archive, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{
		resumeService: rs,
		userService:   us,
		exporter:      exporter,
		validator:     v,
		archive:       archive,
		logger:        logger,
	}
}

// ListThemes handles GET /themes
func (h *ExportHandler) ListThemes(c *gin.Context) {
	c.JSON(http.StatusOK, ThemesResponse{
		Themes: h.exporter.Catalog().Themes(),
		Custom: models.DefaultThemeSettings(),
	})
}

// ExportResume handles POST /resumes/:id/export
func (h *ExportHandler) ExportResume(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var req models.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	if req.Theme == export.CustomTheme && req.Custom != nil {
		if err := h.validator.ValidateTheme(*req.Custom); err != nil {
			mapErrorToStatus(c, h.logger, err)
			return
		}
	}

	ctx := c.Request.Context()
	resume, err := h.resumeService.GetForViewer(ctx, p, c.Param("id"))
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}

	var avatar string
	if owner, err := h.userService.LookupProfile(ctx, resume.UserID); err != nil {
		h.logger.Warn("Exporting without owner avatar", zap.String("resumeId", resume.ID), zap.Error(err))
	} else {
		avatar = owner.Avatar
	}

	page, err := render.ResumePage(resume, avatar, h.exporter.Catalog().Stylesheet())
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	doc, err := export.ParseDocumentString(page)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}

	result, err := h.exporter.Export(ctx, doc, export.Request{
		RegionID: render.RegionID,
		FileName: req.FileName,
		Theme:    req.Theme,
		Custom:   req.Custom,
	})
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}

	if h.archive != nil {
		link, err := h.archive.Store(ctx, p.UserID, resume.ID, result.FileName, result.PDF)
		if err != nil {
			h.logger.Warn("Export archive failed", zap.String("resumeId", resume.ID), zap.Error(err))
		} else {
			c.Header(ArchiveURLHeader, link)
		}
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	c.Header("X-Export-Pages", strconv.Itoa(result.Pages))
	c.Data(http.StatusOK, "application/pdf", result.PDF)
}
