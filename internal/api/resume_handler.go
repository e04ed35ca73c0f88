package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/resumehub/internal/core"
	"github.com/example/resumehub/internal/models"
)

// ResumeHandler handles API endpoints related to resumes and their training entries.
type ResumeHandler struct {
	resumeService core.ResumeService
	logger        *zap.Logger
}

// NewResumeHandler creates a new ResumeHandler.
func NewResumeHandler(rs core.ResumeService, logger *zap.Logger) *ResumeHandler {
	return &ResumeHandler{resumeService: rs, logger: logger}
}

// ListResumes handles GET /resumes
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	resumes, err := h.resumeService.ListByOwner(c.Request.Context(), p.UserID)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resumes)
}

// CreateResume handles POST /resumes. The body is optional.
func (h *ResumeHandler) CreateResume(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var req models.CreateResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	resume, err := h.resumeService.Create(c.Request.Context(), p, req.Title)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, resume)
}

// GetResume handles GET /resumes/:id
func (h *ResumeHandler) GetResume(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	resume, err := h.resumeService.GetForViewer(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resume)
}

// SaveResume handles PUT /resumes/:id. The body replaces the stored aggregate.
func (h *ResumeHandler) SaveResume(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var resume models.Resume
	if err := c.ShouldBindJSON(&resume); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	resume.ID = c.Param("id")

	saved, err := h.resumeService.Update(c.Request.Context(), p, &resume)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// DeleteResume handles DELETE /resumes/:id
func (h *ResumeHandler) DeleteResume(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	if err := h.resumeService.Remove(c.Request.Context(), p, c.Param("id")); err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddTraining handles POST /resumes/:id/training
func (h *ResumeHandler) AddTraining(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var entry models.Training
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	resume, err := h.resumeService.AddTraining(c.Request.Context(), p, c.Param("id"), entry)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, resume)
}

// UpdateTraining handles PUT /resumes/:id/training/:trainingId
func (h *ResumeHandler) UpdateTraining(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var entry models.Training
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	resume, err := h.resumeService.UpdateTraining(c.Request.Context(), p, c.Param("id"), c.Param("trainingId"), entry)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resume)
}

// DeleteTraining handles DELETE /resumes/:id/training/:trainingId
func (h *ResumeHandler) DeleteTraining(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	resume, err := h.resumeService.DeleteTraining(c.Request.Context(), p, c.Param("id"), c.Param("trainingId"))
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resume)
}

// Feed handles GET /feed
func (h *ResumeHandler) Feed(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	items, err := h.resumeService.Feed(c.Request.Context(), p)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Search handles GET /search?q=
func (h *ResumeHandler) Search(c *gin.Context) {
	profiles, err := h.resumeService.SearchProfiles(c.Request.Context(), c.Query("q"))
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profiles)
}
