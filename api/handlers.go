package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"polizas-dashboard/config"
	"polizas-dashboard/controller"
	"polizas-dashboard/models"
	"polizas-dashboard/render"
	"polizas-dashboard/storage"
	"polizas-dashboard/utils"
)

// Handler serves the dashboard sessions over HTTP.
type Handler struct {
	sessions *controller.Registry
	catalog  *config.Catalog
	logger   *utils.Logger
}

func NewHandler(sessions *controller.Registry, catalog *config.Catalog, logger *utils.Logger) *Handler {
	if catalog == nil {
		catalog = config.DefaultCatalog()
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Handler{sessions: sessions, catalog: catalog, logger: logger}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Index)

	api := e.Group("/api")
	api.GET("/catalog", h.GetCatalog)
	api.POST("/sessions", h.CreateSession)
	api.GET("/sessions/:id", h.GetSession)
	api.PUT("/sessions/:id/filters", h.ApplyFilters)
	api.POST("/sessions/:id/reload", h.Reload)
	api.GET("/sessions/:id/chart.png", h.GetChartPNG)
	api.GET("/sessions/:id/export.csv", h.ExportCSV)
	api.DELETE("/sessions/:id", h.DeleteSession)
}

type sessionResponse struct {
	ID   string               `json:"id"`
	View models.DashboardView `json:"view"`
}

// --- HANDLERS ---
func (h *Handler) session(c echo.Context) (*controller.Session, error) {
	s, err := h.sessions.Get(c.Param("id"))
	if errors.Is(err, controller.ErrSessionNotFound) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return s, err
}

func (h *Handler) GetCatalog(c echo.Context) error {
	return c.JSON(http.StatusOK, h.catalog)
}

// CreateSession opens a session and loads its snapshot. A failed fetch still
// answers 201 with the session in the error state.
func (h *Handler) CreateSession(c echo.Context) error {
	s := h.sessions.Create()
	view := s.Load(c.Request().Context())
	h.logger.Info("[api] Session %s created (%s)", s.ID(), view.State)
	return c.JSON(http.StatusCreated, sessionResponse{ID: s.ID(), View: view})
}

func (h *Handler) GetSession(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionResponse{ID: s.ID(), View: s.View()})
}

func (h *Handler) ApplyFilters(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}

	var f models.FilterState
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid filters")
	}

	view, err := s.Apply(c.Request().Context(), f)
	if errors.Is(err, models.ErrUnknownChartKind) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionResponse{ID: s.ID(), View: view})
}

func (h *Handler) Reload(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	view := s.Load(c.Request().Context())
	return c.JSON(http.StatusOK, sessionResponse{ID: s.ID(), View: view})
}

// GetChartPNG draws the live chart of the session as a PNG image.
func (h *Handler) GetChartPNG(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	inst, err := s.Chart()
	if errors.Is(err, controller.ErrNoChart) {
		return echo.NewHTTPError(http.StatusNotFound, "no chart rendered yet")
	}
	if err != nil {
		return err
	}

	if p, ok := inst.(*render.PNGInstance); ok {
		if img := p.PNG(); img != nil {
			return c.Blob(http.StatusOK, "image/png", img)
		}
	}

	var buf bytes.Buffer
	if err := render.RenderPNG(inst.Config(), &buf); err != nil {
		return fmt.Errorf("api: render chart: %w", err)
	}
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

// ExportCSV streams the monthly tally for the current filters.
func (h *Handler) ExportCSV(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := storage.WriteTallyCSV(&buf, s.Aggregation()); err != nil {
		return fmt.Errorf("api: export: %w", err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="polizas.csv"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *Handler) DeleteSession(c echo.Context) error {
	err := h.sessions.Delete(c.Param("id"))
	if errors.Is(err, controller.ErrSessionNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
