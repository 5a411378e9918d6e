package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/study-planner-api/internal/dto"
	internalmiddleware "github.com/noah-isme/study-planner-api/internal/middleware"
	"github.com/noah-isme/study-planner-api/internal/models"
	"github.com/noah-isme/study-planner-api/internal/service"
	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
	"github.com/noah-isme/study-planner-api/pkg/response"
)

type timetablePlanner interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
	Save(ctx context.Context, req dto.SaveStudyPlanRequest) (*models.StudyPlan, error)
	List(ctx context.Context, query dto.StudyPlanQuery) ([]models.StudyPlan, *models.Pagination, error)
	GetSessions(ctx context.Context, planID string) ([]models.StudyPlanSession, error)
	Delete(ctx context.Context, planID string) error
	Export(ctx context.Context, planID, format string) (*service.ExportFile, error)
}

// TimetableHandler exposes timetable generation and study plan endpoints.
type TimetableHandler struct {
	service timetablePlanner
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Generate godoc
// @Summary Generate a study timetable
// @Description Distributes the outstanding study time of the selected subjects over the planning horizon. The returned proposal_id can be saved as a study plan.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Timetable constraints"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /generate-timetable [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidRequest.Code, http.StatusBadRequest, "invalid timetable payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	internalmiddleware.SetCacheHit(c, result.Cached)
	if result.UnplacedMinutes > 0 {
		internalmiddleware.SetMeta(c, "unplaced_minutes", result.UnplacedMinutes)
	}
	response.JSON(c, http.StatusOK, result, nil, internalmiddleware.ExtractMeta(c))
}

// Save godoc
// @Summary Save a generated timetable as a study plan
// @Tags Study Plans
// @Accept json
// @Produce json
// @Param payload body dto.SaveStudyPlanRequest true "Proposal to persist"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /study-plans [post]
func (h *TimetableHandler) Save(c *gin.Context) {
	var req dto.SaveStudyPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid save payload"))
		return
	}
	plan, err := h.service.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, plan)
}

// List godoc
// @Summary List saved study plans
// @Tags Study Plans
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /study-plans [get]
func (h *TimetableHandler) List(c *gin.Context) {
	query := dto.StudyPlanQuery{
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "page_size"),
	}
	plans, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plans, pagination)
}

// Sessions godoc
// @Summary Get sessions of a study plan
// @Tags Study Plans
// @Produce json
// @Param id path string true "Study plan ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /study-plans/{id}/sessions [get]
func (h *TimetableHandler) Sessions(c *gin.Context) {
	sessions, err := h.service.GetSessions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// Export godoc
// @Summary Download a study plan
// @Tags Study Plans
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Study plan ID"
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /study-plans/{id}/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	file, err := h.service.Export(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}

// Delete godoc
// @Summary Delete a study plan
// @Tags Study Plans
// @Param id path string true "Study plan ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /study-plans/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func queryInt(c *gin.Context, key string) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return value
}
