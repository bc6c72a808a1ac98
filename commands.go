package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"polizas-dashboard/api"
	"polizas-dashboard/controller"
	"polizas-dashboard/render"
	"polizas-dashboard/snapshot"
	"polizas-dashboard/storage"
)

var (
	chartKind    string
	chartTypes   []string
	nextMonth    bool
	renderOut    string
	exportOut    string
	snapshotPath string
	snapshotURL  string
	snapshotDir  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard over HTTP",
	RunE:  runServe,
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render one chart to a PNG file",
	Long: `Loads the policies once and draws the chart for the given filters.

Example:
  polizas render --kind pie --types individual,familiar --out torta.png`,
	RunE: runRender,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the monthly tally as CSV",
	RunE:  runExport,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Capture screenshots of a running dashboard for the default presets",
	RunE:  runSnapshot,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load a CSV export into PostgreSQL",
	Long: `Replaces the polizas and clientes tables with the rows of the CSV file
given by --csv-input (or CSV_INPUT_PATH).`,
	RunE: runImport,
}

func init() {
	for _, cmd := range []*cobra.Command{renderCmd, exportCmd} {
		cmd.Flags().StringSliceVar(&chartTypes, "types", nil, "registration types to include (default: all)")
		cmd.Flags().BoolVar(&nextMonth, "next-month", false, "only policies effective next month")
	}
	renderCmd.Flags().StringVar(&chartKind, "kind", "lines", "chart kind: lines or pie")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "chart.png", "output PNG file")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output CSV file (default CSV_OUTPUT_PATH)")
	exportCmd.Flags().StringVar(&snapshotPath, "policies", "", "also write the fetched policies to this CSV file")
	snapshotCmd.Flags().StringVar(&snapshotURL, "url", "", "dashboard URL (default http://localhost + HTTP_ADDR)")
	snapshotCmd.Flags().StringVar(&snapshotDir, "out-dir", "", "directory for the screenshots (default SNAPSHOT_DIR)")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	src, err := openSource(ctx)
	if err != nil {
		return err
	}
	defer src.Close()

	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	ttl := cfg.SessionIdleTTL()
	registry := controller.NewRegistry(func(id string) *controller.Session {
		return controller.NewSession(id, sessionOptions(src, cat, render.NewConfigSurface(), defaultFilters(cat)))
	}, controller.WithIdleTTL(ttl))
	defer registry.CloseAll()

	if ttl > 0 {
		go registry.RunJanitor(ctx, min(ttl/2, time.Minute), func(n int, err error) {
			if err != nil {
				logger.Warn("[serve] Closing idle sessions: %v", err)
			}
			logger.Info("[serve] Closed %d idle sessions", n)
		})
	}

	e := api.NewServer(api.NewHandler(registry, cat, logger), logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("[serve] Listening on %s", cfg.HTTPAddr)
		errCh <- e.Start(cfg.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("[serve] Shutting down, %d open sessions", registry.Len())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	filters, err := filtersFromFlags(cat, chartKind, chartTypes, nextMonth)
	if err != nil {
		return err
	}

	src, err := openSource(ctx)
	if err != nil {
		return err
	}
	defer src.Close()

	s, err := loadOnce(ctx, src, cat, render.NewPNGSurface(), filters)
	if err != nil {
		return err
	}
	defer s.Close()

	inst, err := s.Chart()
	if err != nil {
		return err
	}
	png, ok := inst.(*render.PNGInstance)
	if !ok {
		return fmt.Errorf("unexpected chart instance %T", inst)
	}

	if err := os.MkdirAll(filepath.Dir(renderOut), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(renderOut, png.PNG(), 0644); err != nil {
		return fmt.Errorf("write %q: %w", renderOut, err)
	}
	logger.Info("[render] %s chart (%s) saved to %s", filters.Kind, strings.Join(filters.RegistrationTypes, ","), renderOut)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	filters, err := filtersFromFlags(cat, "", chartTypes, nextMonth)
	if err != nil {
		return err
	}

	src, err := openSource(ctx)
	if err != nil {
		return err
	}
	defer src.Close()

	s, err := loadOnce(ctx, src, cat, render.NewConfigSurface(), filters)
	if err != nil {
		return err
	}
	defer s.Close()

	path := exportOut
	if path == "" {
		path = cfg.CSVOutputPath
	}
	var w storage.TallyWriter
	w, err = storage.NewCSVWriter(path)
	if err != nil {
		return err
	}
	if err := w.WriteTally(s.Aggregation()); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	logger.Info("[export] Monthly tally saved to %s", path)

	if snapshotPath != "" {
		pw, err := storage.NewCSVWriter(snapshotPath)
		if err != nil {
			return err
		}
		defer pw.Close()
		if err := pw.WritePolicies(s.Policies()); err != nil {
			return err
		}
		logger.Info("[export] Policies saved to %s", snapshotPath)
	}
	return nil
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	url := snapshotURL
	if url == "" {
		url = "http://localhost" + cfg.HTTPAddr
	}
	dir := snapshotDir
	if dir == "" {
		dir = cfg.SnapshotDir
	}

	c := snapshot.New(snapshot.Options{
		URL:            url,
		OutDir:         dir,
		ChromeBin:      cfg.ChromeBin,
		Width:          cfg.ChartWidth + 200,
		Height:         cfg.ChartHeight + 300,
		MaxRetries:     cfg.MaxRetries,
		MaxConcurrency: cfg.MaxConcurrency,
		RateLimitMs:    cfg.RateLimitMs,
	}, logger)

	paths, err := c.Capture(ctx, snapshot.DefaultPresets(cat))
	logger.Info("[snapshot] %d screenshots written to %s", len(paths), dir)
	return err
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	rows, err := storage.NewCSVSource(cfg.CSVInputPath).ReadAll(ctx)
	if err != nil {
		return err
	}
	logger.Info("[import] Read %d rows from %s", len(rows), cfg.CSVInputPath)

	pw, err := storage.NewPostgresWriter(ctx, cfg.DSN(), retryConfig())
	if err != nil {
		logger.Error("Make sure PostgreSQL is reachable at %s:%s", cfg.PostgresHost, cfg.PostgresPort)
		return err
	}
	defer pw.Close()

	if err := pw.Write(ctx, rows); err != nil {
		return err
	}
	logger.Info("[import] Policies stored in PostgreSQL (tables: polizas, clientes)")
	return nil
}
