package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadintel/internal/model"
	"github.com/sells-group/leadintel/internal/pipeline"
	"github.com/sells-group/leadintel/internal/scrape"
	"github.com/sells-group/leadintel/internal/store"
)

type handlers struct {
	analyzer LeadAnalyzer
	leads    LeadReader
}

type analyzeRequest struct {
	URL string `json:"url" validate:"required,http_url"`
}

type bulkRequest struct {
	URLs []string `json:"urls" validate:"required,min=1"`
}

// Pagination describes a listing page.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Limit int `json:"limit"`
}

func (h *handlers) health(c echo.Context) error {
	return success(c, http.StatusOK, "", map[string]string{"status": "ok"})
}

func (h *handlers) analyze(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return failure(c, http.StatusBadRequest, "Invalid request body", nil)
	}
	if err := c.Validate(&req); err != nil {
		return failure(c, http.StatusBadRequest, "Please provide a valid URL", nil)
	}

	lead, err := h.analyzer.Analyze(c.Request().Context(), req.URL, ownerFrom(c))
	if err != nil {
		return analysisFailure(c, err)
	}
	return success(c, http.StatusCreated, "Website analyzed successfully", map[string]any{"lead": lead})
}

func analysisFailure(c echo.Context, err error) error {
	var acqErr *scrape.AcquisitionError
	var persistErr *pipeline.PersistenceError
	switch {
	case errors.As(err, &acqErr):
		return failure(c, http.StatusBadRequest, "Failed to scrape website", err)
	case errors.As(err, &persistErr):
		zap.L().Error("server: lead not saved", zap.Error(err))
		return failure(c, http.StatusInternalServerError, "Failed to save lead", nil)
	default:
		zap.L().Error("server: analysis failed", zap.Error(err))
		return failure(c, http.StatusInternalServerError, "Server error", nil)
	}
}

func (h *handlers) bulk(c echo.Context) error {
	var req bulkRequest
	if err := c.Bind(&req); err != nil {
		return failure(c, http.StatusBadRequest, "Invalid request body", nil)
	}
	if err := c.Validate(&req); err != nil {
		return failure(c, http.StatusBadRequest, "Please provide at least one URL", nil)
	}

	report, err := h.analyzer.Bulk(c.Request().Context(), req.URLs, ownerFrom(c))
	var tooMany *pipeline.TooManyURLsError
	switch {
	case errors.Is(err, pipeline.ErrNoURLs):
		return failure(c, http.StatusBadRequest, "Please provide at least one URL", nil)
	case errors.As(err, &tooMany):
		return failure(c, http.StatusBadRequest, "Too many URLs", err)
	case err != nil:
		zap.L().Error("server: bulk analysis failed", zap.Error(err))
		return failure(c, http.StatusInternalServerError, "Server error", nil)
	}
	return success(c, http.StatusOK, "Bulk analysis complete", report)
}

func (h *handlers) list(c echo.Context) error {
	filter, err := parseLeadFilter(c)
	if err != nil {
		return failure(c, http.StatusBadRequest, err.Error(), nil)
	}
	filter.OwnerID = ownerFrom(c)
	filter.Normalize()

	page, err := h.leads.ListLeads(c.Request().Context(), filter)
	if err != nil {
		zap.L().Error("server: list leads", zap.Error(err))
		return failure(c, http.StatusInternalServerError, "Server error", nil)
	}
	return success(c, http.StatusOK, "", map[string]any{
		"leads": page.Leads,
		"pagination": Pagination{
			Total: page.Total,
			Page:  page.Page,
			Pages: page.Pages,
			Limit: filter.Limit,
		},
	})
}

// parseLeadFilter reads the listing query parameters. Absent values leave
// the filter field unset.
func parseLeadFilter(c echo.Context) (model.LeadFilter, error) {
	f := model.LeadFilter{
		Search:   c.QueryParam("search"),
		Industry: c.QueryParam("industry"),
		Sort:     model.ParseLeadSort(c.QueryParam("sortBy")),
	}

	var err error
	if f.MinScore, err = optionalFloat(c.QueryParam("minScore")); err != nil {
		return f, eris.New("minScore must be a number")
	}
	if f.MaxScore, err = optionalFloat(c.QueryParam("maxScore")); err != nil {
		return f, eris.New("maxScore must be a number")
	}
	if v := c.QueryParam("page"); v != "" {
		if f.Page, err = strconv.Atoi(v); err != nil {
			return f, eris.New("page must be an integer")
		}
	}
	if v := c.QueryParam("limit"); v != "" {
		if f.Limit, err = strconv.Atoi(v); err != nil {
			return f, eris.New("limit must be an integer")
		}
	}
	return f, nil
}

func optionalFloat(v string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (h *handlers) get(c echo.Context) error {
	lead, err := h.leads.GetLead(c.Request().Context(), c.Param("id"), ownerFrom(c))
	if errors.Is(err, store.ErrNotFound) {
		return failure(c, http.StatusNotFound, "Lead not found", nil)
	}
	if err != nil {
		zap.L().Error("server: get lead", zap.Error(err))
		return failure(c, http.StatusInternalServerError, "Server error", nil)
	}
	return success(c, http.StatusOK, "", map[string]any{"lead": lead})
}

func (h *handlers) delete(c echo.Context) error {
	err := h.leads.DeleteLead(c.Request().Context(), c.Param("id"), ownerFrom(c))
	if errors.Is(err, store.ErrNotFound) {
		return failure(c, http.StatusNotFound, "Lead not found", nil)
	}
	if err != nil {
		zap.L().Error("server: delete lead", zap.Error(err))
		return failure(c, http.StatusInternalServerError, "Server error", nil)
	}
	return success(c, http.StatusOK, "Lead deleted successfully", nil)
}

func (h *handlers) stats(c echo.Context) error {
	stats, err := h.leads.Stats(c.Request().Context(), ownerFrom(c))
	if err != nil {
		zap.L().Error("server: lead stats", zap.Error(err))
		return failure(c, http.StatusInternalServerError, "Server error", nil)
	}
	return success(c, http.StatusOK, "", stats)
}
