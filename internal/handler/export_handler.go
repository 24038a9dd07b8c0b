package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type exportService interface {
	ExportTimetable(ctx context.Context, id string, format service.ExportFormat) (*service.ExportFile, error)
	ExportProposal(proposalID string, format service.ExportFormat) (*service.ExportFile, error)
	CreateLink(ctx context.Context, id string, format service.ExportFormat) (*dto.ExportLinkResponse, error)
	OpenLink(token string) (*service.ExportFile, error)
}

// ExportHandler serves timetable downloads.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Timetable godoc
// @Summary Download a saved timetable
// @Tags Exports
// @Produce text/csv,application/pdf,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Timetable ID"
// @Param format query string false "csv|pdf|xlsx (default pdf)"
// @Success 200 {file} file
// @Router /timetables/{id}/export [get]
func (h *ExportHandler) Timetable(c *gin.Context) {
	format, ok := bindFormat(c)
	if !ok {
		return
	}
	file, err := h.service.ExportTimetable(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// Proposal godoc
// @Summary Download an unsaved timetable proposal
// @Tags Exports
// @Produce text/csv,application/pdf,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param proposalId path string true "Proposal ID"
// @Param format query string false "csv|pdf|xlsx (default pdf)"
// @Success 200 {file} file
// @Failure 410 {object} response.Envelope
// @Router /timetables/proposals/{proposalId}/export [get]
func (h *ExportHandler) Proposal(c *gin.Context) {
	format, ok := bindFormat(c)
	if !ok {
		return
	}
	file, err := h.service.ExportProposal(c.Param("proposalId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// CreateLink godoc
// @Summary Create a signed download link for a saved timetable
// @Tags Exports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Timetable ID"
// @Param payload body dto.ExportLinkRequest true "Export format"
// @Success 202 {object} response.Envelope{data=dto.ExportLinkResponse}
// @Router /timetables/{id}/exports [post]
func (h *ExportHandler) CreateLink(c *gin.Context) {
	var req dto.ExportLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}
	format, err := service.ParseExportFormat(req.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	link, err := h.service.CreateLink(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, link, nil)
}

// Download godoc
// @Summary Download an export through a signed link
// @Tags Exports
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 409 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, err := h.service.OpenLink(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

func bindFormat(c *gin.Context) (service.ExportFormat, bool) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return "", false
	}
	format, err := service.ParseExportFormat(query.Format)
	if err != nil {
		response.Error(c, err)
		return "", false
	}
	return format, true
}
