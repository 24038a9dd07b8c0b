package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type timetableService interface {
	Generate(ctx context.Context, req scheduler.Request) (*dto.TimetableProposalResponse, error)
	GenerateRaw(ctx context.Context, raw dto.GenerateRawRequest) (*dto.TimetableProposalResponse, error)
	Verify(ctx context.Context, req dto.VerifyTimetableRequest) (*dto.VerifyTimetableResponse, error)
	Save(ctx context.Context, req dto.SaveTimetableRequest, actor *models.UserInfo) (string, error)
	List(ctx context.Context, query dto.TimetableListQuery) ([]models.TimetableSummary, *models.Pagination, error)
	Get(ctx context.Context, id string) (*dto.TimetableDetailResponse, error)
	Entries(ctx context.Context, id string, query dto.TimetableEntriesQuery) ([]models.TimetableEntry, error)
	Delete(ctx context.Context, id string) error
}

// TimetableHandler exposes timetable generation and storage endpoints.
type TimetableHandler struct {
	service timetableService
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc timetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Generate godoc
// @Summary Generate a weekly timetable preview
// @Description Runs the offline generator. The result is kept as a proposal until saved or expired.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Timetable input"
// @Success 200 {object} response.Envelope{data=dto.TimetableProposalResponse}
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	h.respondProposal(c, func(ctx context.Context) (*dto.TimetableProposalResponse, error) {
		return h.service.Generate(ctx, req.Request)
	})
}

// GenerateRaw godoc
// @Summary Generate a timetable from the string-encoded form payload
// @Description Every list field is a JSON document inside a string, as submitted by the planning form.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateRawRequest true "String-encoded timetable input"
// @Success 200 {object} response.Envelope{data=dto.TimetableProposalResponse}
// @Failure 400 {object} response.Envelope
// @Router /timetables/generate/raw [post]
func (h *TimetableHandler) GenerateRaw(c *gin.Context) {
	var req dto.GenerateRawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	h.respondProposal(c, func(ctx context.Context) (*dto.TimetableProposalResponse, error) {
		return h.service.GenerateRaw(ctx, req)
	})
}

func (h *TimetableHandler) respondProposal(c *gin.Context, run func(ctx context.Context) (*dto.TimetableProposalResponse, error)) {
	result, err := run(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, result.Cached)
	middleware.SetMeta(c, "warnings", len(result.Warnings))
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// Verify godoc
// @Summary Verify a timetable against its input
// @Description Accepts any schedule in the common output shape and reports hard-constraint violations.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.VerifyTimetableRequest true "Input and timetable"
// @Success 200 {object} response.Envelope{data=dto.VerifyTimetableResponse}
// @Failure 400 {object} response.Envelope
// @Router /timetables/verify [post]
func (h *TimetableHandler) Verify(c *gin.Context) {
	var req dto.VerifyTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid verify payload"))
		return
	}
	result, err := h.service.Verify(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Save godoc
// @Summary Save a timetable proposal
// @Tags Timetables
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.SaveTimetableRequest true "Proposal to persist"
// @Success 201 {object} response.Envelope{data=dto.SaveTimetableResponse}
// @Failure 410 {object} response.Envelope
// @Router /timetables [post]
func (h *TimetableHandler) Save(c *gin.Context) {
	var req dto.SaveTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid save payload"))
		return
	}
	id, err := h.service.Save(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.SaveTimetableResponse{TimetableID: id})
}

// List godoc
// @Summary List saved timetables
// @Tags Timetables
// @Produce json
// @Param search query string false "Name or fingerprint fragment"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param sort query string false "name|created_at|entry_count|free_count"
// @Param order query string false "asc|desc"
// @Success 200 {object} response.Envelope{data=[]models.TimetableSummary}
// @Router /timetables [get]
func (h *TimetableHandler) List(c *gin.Context) {
	var query dto.TimetableListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get a saved timetable
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope{data=dto.TimetableDetailResponse}
// @Failure 404 {object} response.Envelope
// @Router /timetables/{id} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	result, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Entries godoc
// @Summary List entries of a saved timetable
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Param day query string false "Weekday"
// @Param class query string false "Class name"
// @Param teacher query string false "Teacher name"
// @Param room query string false "Room name"
// @Param free query bool false "Only free (true) or only filled (false) periods"
// @Success 200 {object} response.Envelope{data=[]models.TimetableEntry}
// @Router /timetables/{id}/entries [get]
func (h *TimetableHandler) Entries(c *gin.Context) {
	var query dto.TimetableEntriesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	entries, err := h.service.Entries(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Delete godoc
// @Summary Delete a saved timetable
// @Tags Timetables
// @Security BearerAuth
// @Param id path string true "Timetable ID"
// @Success 204
// @Router /timetables/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
