package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"polizas-dashboard/config"
	"polizas-dashboard/models"
	"polizas-dashboard/utils"
)

const fixture = `id,fecha_efectividad,fecha_fin_cobertura,operadora,aplicantes,estado,cliente_id,cliente_nombre,tipo_registro
P1,2026-01-15,2026-12-01,Seguros A,2,Tramitada,C1,Ana,individual
P2,2026-02-01,2026-12-31,Seguros B,1,tramitada,C2,Luis,familiar
P3,2026-02-11,2026-12-31,Seguros A,1,tramitada,C3,Eva,corporativo
P4,2026-03-01,2026-12-31,Seguros C,4,pendiente,C4,Raúl,individual
`

// setupCSV points the globals at a temporary CSV export.
func setupCSV(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "polizas.csv")
	if err := os.WriteFile(input, []byte(fixture), 0o644); err != nil {
		t.Fatal(err)
	}

	logger = utils.NewNopLogger()
	cfg = &config.Config{
		RecordSource:    "csv",
		CSVInputPath:    input,
		PolicyStatus:    "tramitada",
		EffectiveFrom:   time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		CoverageTo:      time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC),
		FetchTimeoutSec: 5,
		ChartWidth:      600,
		ChartHeight:     300,
		CSVOutputPath:   filepath.Join(dir, "tally.csv"),
	}
	t.Cleanup(func() {
		chartKind, chartTypes, nextMonth = "lines", nil, false
		renderOut, exportOut, snapshotPath = "chart.png", "", ""
	})
	return dir
}

func TestRenderCommand(t *testing.T) {
	dir := setupCSV(t)
	chartKind = "pie"
	chartTypes = []string{"individual", "corporativo"}
	renderOut = filepath.Join(dir, "out", "torta.png")

	if err := runRender(&cobra.Command{}, nil); err != nil {
		t.Fatalf("runRender: %v", err)
	}
	data, err := os.ReadFile(renderOut)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.HasPrefix(string(data), "\x89PNG") {
		t.Error("output is not a PNG image")
	}
}

func TestRenderCommandRejectsUnknownKind(t *testing.T) {
	dir := setupCSV(t)
	chartKind = "bars"
	renderOut = filepath.Join(dir, "x.png")

	if err := runRender(&cobra.Command{}, nil); err == nil {
		t.Fatal("expected an error for an unknown chart kind")
	}
	if _, err := os.Stat(renderOut); !os.IsNotExist(err) {
		t.Error("no file should be written")
	}
}

func TestExportCommand(t *testing.T) {
	dir := setupCSV(t)
	snapshotPath = filepath.Join(dir, "policies.csv")

	if err := runExport(&cobra.Command{}, nil); err != nil {
		t.Fatalf("runExport: %v", err)
	}

	data, err := os.ReadFile(cfg.CSVOutputPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	want := []string{
		"operadora,Enero,Febrero,Marzo,Abril,Mayo,Junio,Julio,Agosto,Septiembre,Octubre,Noviembre,Diciembre,total",
		"Seguros A,1,1,0,0,0,0,0,0,0,0,0,0,2",
		"Seguros B,0,1,0,0,0,0,0,0,0,0,0,0,1",
	}
	if len(lines) != len(want) {
		t.Fatalf("lines: got %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}

	policies, err := os.ReadFile(snapshotPath)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(strings.TrimSpace(string(policies)), "\n"); got != 3 {
		t.Errorf("policy rows: got %d, want 3", got)
	}
}

func TestExportCommandFailsWhenSourceMissing(t *testing.T) {
	setupCSV(t)
	cfg.CSVInputPath = filepath.Join(t.TempDir(), "missing.csv")

	if err := runExport(&cobra.Command{}, nil); err == nil {
		t.Error("expected an error when the source cannot be read")
	}
}

func TestFiltersFromFlags(t *testing.T) {
	cat := config.DefaultCatalog()

	f, err := filtersFromFlags(cat, "", nil, true)
	if err != nil {
		t.Fatal(err)
	}
	if f.Kind != models.ChartLines || len(f.RegistrationTypes) != len(cat.RegistrationTypes) || !f.NextMonthOnly {
		t.Errorf("defaults: got %+v", f)
	}

	f, err = filtersFromFlags(cat, "pie", []string{"familiar"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if f.Kind != models.ChartPie || len(f.RegistrationTypes) != 1 {
		t.Errorf("explicit: got %+v", f)
	}
}

func TestOpenSourceUnknown(t *testing.T) {
	setupCSV(t)
	cfg.RecordSource = "ftp"
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if _, err := openSource(ctx); err == nil {
		t.Error("expected error for unknown source")
	}
}
