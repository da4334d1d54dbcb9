package api

import (
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"opsdash/internal/engine"
	"opsdash/internal/models"
	"opsdash/internal/service"
)

// Handler serves the dashboard API. Until SetService is called every data
// route answers 503 while the dataset loads.
type Handler struct {
	mu    sync.RWMutex
	svc   *service.Service
	store *engine.SelectionStore
	log   logrus.FieldLogger
}

func NewHandler(svc *service.Service, log logrus.FieldLogger) *Handler {
	h := &Handler{log: log}
	if svc != nil {
		h.SetService(svc)
	}
	return h
}

// SetService swaps in a loaded dataset and resets the stored selection.
func (h *Handler) SetService(svc *service.Service) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.svc = svc
	h.store = svc.Pipeline().NewSelectionStore()
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/health", h.GetHealth)

	api := e.Group("/api", h.requireData)
	api.GET("/schema", h.GetSchema)
	api.GET("/filters", h.GetFilters)
	api.PUT("/filters/:id", h.UpdateFilter)
	api.GET("/dashboard", h.GetDashboard)
	api.POST("/dashboard", h.PostDashboard)
	api.GET("/records/top", h.GetTopRecords)
}

func (h *Handler) service() *service.Service {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.svc
}

func (h *Handler) requireData(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.service() == nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "loading"})
		}
		return next(c)
	}
}

// --- HANDLERS ---
func getPaginationParams(c echo.Context, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (h *Handler) GetHealth(c echo.Context) error {
	svc := h.service()
	if svc == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "loading"})
	}
	ds := svc.Pipeline().Dataset()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":     "ready",
		"dataset_id": ds.ID,
		"rows":       ds.Len(),
	})
}

func (h *Handler) GetSchema(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service().Pipeline().Schema().Columns())
}

// FilterView describes one registry entry for building selection widgets.
type FilterView struct {
	ID        string              `json:"id"`
	Column    string              `json:"column"`
	Type      string              `json:"type,omitempty"`
	Available bool                `json:"available"`
	Options   []string            `json:"options,omitempty"`
	Bounds    *engine.Range       `json:"bounds,omitempty"`
	State     *engine.FilterState `json:"state,omitempty"`
}

func (h *Handler) GetFilters(c echo.Context) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	schema := h.svc.Pipeline().Schema()
	specs := h.svc.Pipeline().Registry().Specs()

	out := make([]FilterView, 0, len(specs))
	for _, s := range specs {
		v := FilterView{ID: s.ID, Column: s.Column}
		if info, ok := schema.Column(s.Column); ok {
			v.Type = info.Type.String()
			switch info.Type {
			case engine.Numeric:
				v.Bounds = info.Bounds
			case engine.Categorical:
				v.Options = info.Distinct
			}
		}
		if st, ok := h.store.State(s.ID); ok {
			v.Available = true
			v.State = &st
		}
		out = append(out, v)
	}

	return c.JSON(http.StatusOK, out)
}

// FilterUpdate changes one filter. Nil fields keep the stored value.
type FilterUpdate struct {
	Enabled *bool         `json:"enabled"`
	Range   *engine.Range `json:"range"`
	Values  []string      `json:"values"`
	Reset   bool          `json:"reset"`
}

// applyUpdate builds the new state of one filter and stores it in a single
// step, so a rejected update leaves the store untouched.
func applyUpdate(store *engine.SelectionStore, id string, u FilterUpdate) error {
	st, ok := store.State(id)
	if !ok || u.Reset {
		def, err := store.Default(id)
		if err != nil {
			return err
		}
		st = def
	}
	if u.Range != nil {
		r := *u.Range
		st.Range = &r
	}
	if u.Values != nil {
		st.Values = u.Values
	}
	if u.Enabled != nil {
		st.Enabled = *u.Enabled
	}
	return store.Put(id, st)
}

func (h *Handler) UpdateFilter(c echo.Context) error {
	id := c.Param("id")

	var u FilterUpdate
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid filter update")
	}

	h.mu.Lock()
	err := applyUpdate(h.store, id, u)
	st, _ := h.store.State(id)
	h.mu.Unlock()

	switch {
	case errors.Is(err, engine.ErrUnknownFilter):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	h.log.WithFields(logrus.Fields{"filter": id, "enabled": st.Enabled}).Debug("Filter updated")
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) snapshot() (*service.Service, engine.Selection) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.svc, h.store.Snapshot()
}

func (h *Handler) GetDashboard(c echo.Context) error {
	svc, sel := h.snapshot()
	return h.respond(c, svc, sel)
}

// DashboardRequest carries an explicit selection. Filters not listed stay
// disabled; unknown or unfilterable ids are ignored.
type DashboardRequest struct {
	Filters map[string]FilterUpdate `json:"filters"`
}

func (h *Handler) PostDashboard(c echo.Context) error {
	var req DashboardRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid selection")
	}

	svc := h.service()
	store := svc.Pipeline().NewSelectionStore()
	for id, u := range req.Filters {
		err := applyUpdate(store, id, u)
		switch {
		case errors.Is(err, engine.ErrUnknownFilter), errors.Is(err, engine.ErrNotFilterable):
			h.log.WithField("filter", id).Debug("Ignoring unknown filter")
		case err != nil:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	return h.respond(c, svc, store.Snapshot())
}

func (h *Handler) respond(c echo.Context, svc *service.Service, sel engine.Selection) error {
	d, err := svc.Compute(c.Request().Context(), sel)
	if err != nil && !errors.Is(err, engine.ErrEmptyResult) {
		h.log.WithError(err).Error("Dashboard computation failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "dashboard computation failed")
	}
	return c.JSON(http.StatusOK, d)
}

// returns the filtered rows ranked by downtime, paginated
func (h *Handler) GetTopRecords(c echo.Context) error {
	svc, sel := h.snapshot()
	p := svc.Pipeline()

	view, err := p.Filter(sel)
	if errors.Is(err, engine.ErrEmptyResult) {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"data":    []models.RecordRow{},
			"total":   0,
			"empty":   true,
			"message": engine.EmptyMessage,
		})
	}

	ranked := engine.TopRows(view, p.Columns().Downtime, -1)
	total := ranked.Len()
	limit, offset := getPaginationParams(c, p.TopN())

	rows := engine.Records(ranked)
	if offset >= total {
		rows = rows[:0]
	} else {
		end := offset + limit
		if end > total {
			end = total
		}
		rows = rows[offset:end]
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":   rows,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}
