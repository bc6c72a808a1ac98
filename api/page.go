package api

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"

	"polizas-dashboard/config"
)

//go:embed templates/dashboard.html
var dashboardHTML string

var dashboardPage = template.Must(template.New("dashboard").Parse(dashboardHTML))

type pageData struct {
	Catalog *config.Catalog
}

// Index serves the dashboard page. Every registration type starts checked.
func (h *Handler) Index(c echo.Context) error {
	var buf bytes.Buffer
	if err := dashboardPage.Execute(&buf, pageData{Catalog: h.catalog}); err != nil {
		return err
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}
