package main

import (
	"context"
	"fmt"
	"time"

	"polizas-dashboard/config"
	"polizas-dashboard/controller"
	"polizas-dashboard/models"
	"polizas-dashboard/render"
	"polizas-dashboard/services"
	"polizas-dashboard/storage"
	"polizas-dashboard/utils"
)

func retryConfig() *utils.RetryConfig {
	return &utils.RetryConfig{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   2 * time.Second,
		Logger:      logger,
	}
}

// openSource connects the configured record source.
func openSource(ctx context.Context) (storage.PolicySource, error) {
	switch cfg.RecordSource {
	case "csv":
		logger.Info("[source] Reading policies from %s", cfg.CSVInputPath)
		return storage.NewCSVSource(cfg.CSVInputPath), nil
	case "postgres":
		src, err := storage.NewPostgresSource(ctx, cfg.DSN(), retryConfig())
		if err != nil {
			return nil, err
		}
		logger.Info("[source] Connected to PostgreSQL %s:%s/%s", cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB)
		return src, nil
	}
	return nil, fmt.Errorf("unknown record source %q", cfg.RecordSource)
}

func loadCatalog() (*config.Catalog, error) {
	cat, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("[catalog] %d registration types", len(cat.RegistrationTypes))
	return cat, nil
}

func policyQuery() storage.PolicyQuery {
	return storage.PolicyQuery{
		Status:        cfg.PolicyStatus,
		EffectiveFrom: cfg.EffectiveFrom,
		CoverageTo:    cfg.CoverageTo,
	}
}

func chartOptions(cat *config.Catalog) services.ChartOptions {
	return services.ChartOptions{
		Width:      cfg.ChartWidth,
		Height:     cfg.ChartHeight,
		LinesTitle: cat.LinesTitle,
		PieTitle:   cat.PieTitle,
		YAxisTitle: cat.YAxisTitle,
	}
}

// defaultFilters selects every registration type of the catalog.
func defaultFilters(cat *config.Catalog) models.FilterState {
	types := make([]string, 0, len(cat.RegistrationTypes))
	for _, rt := range cat.RegistrationTypes {
		types = append(types, rt.Value)
	}
	return models.FilterState{RegistrationTypes: types, Kind: models.ChartLines}
}

// filtersFromFlags builds the filter state of the one-shot commands. Without
// explicit types every catalog type is selected.
func filtersFromFlags(cat *config.Catalog, kind string, types []string, nextMonth bool) (models.FilterState, error) {
	k, err := models.ParseChartKind(kind)
	if err != nil {
		return models.FilterState{}, err
	}
	f := defaultFilters(cat)
	if len(types) > 0 {
		f.RegistrationTypes = types
	}
	f.Kind = k
	f.NextMonthOnly = nextMonth
	return f, nil
}

func sessionOptions(src storage.PolicySource, cat *config.Catalog, surface render.Surface, filters models.FilterState) controller.Options {
	return controller.Options{
		Source:       src,
		Query:        policyQuery(),
		Surface:      surface,
		Chart:        chartOptions(cat),
		Filters:      filters,
		FetchTimeout: cfg.FetchTimeout(),
		Logger:       logger,
		Metrics:      utils.DefaultMetrics(),
	}
}

// loadOnce runs a single session to completion for the offline commands. A
// failed fetch is an error here.
func loadOnce(ctx context.Context, src storage.PolicySource, cat *config.Catalog, surface render.Surface, filters models.FilterState) (*controller.Session, error) {
	s := controller.NewSession("cli", sessionOptions(src, cat, surface, filters))
	view := s.Load(ctx)
	if view.State == models.StateError {
		_ = s.Close()
		return nil, fmt.Errorf("could not fetch policies from %s source", cfg.RecordSource)
	}
	logger.Info("[cli] %s | %s", view.Stats.PoliciesLabel, view.Stats.ApplicantsLabel)
	return s, nil
}
