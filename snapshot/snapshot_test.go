package snapshot

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"polizas-dashboard/api"
	"polizas-dashboard/config"
	"polizas-dashboard/controller"
	"polizas-dashboard/models"
	"polizas-dashboard/storage"
	"polizas-dashboard/utils"
)

func TestDefaultPresets(t *testing.T) {
	cat := config.DefaultCatalog()
	presets := DefaultPresets(cat)

	if got, want := len(presets), 3+len(cat.RegistrationTypes); got != want {
		t.Fatalf("presets: got %d, want %d", got, want)
	}
	if presets[1].Filters.Kind != models.ChartPie {
		t.Errorf("second preset should be a pie, got %s", presets[1].Filters.Kind)
	}
	if !presets[2].Filters.NextMonthOnly {
		t.Error("third preset should be next-month only")
	}
	last := presets[len(presets)-1]
	if len(last.Filters.RegistrationTypes) != 1 || last.Name != "tipo-corporativo" {
		t.Errorf("last preset: got %+v", last)
	}
}

func TestPresetScript(t *testing.T) {
	script, err := presetScript(models.FilterState{
		RegistrationTypes: []string{"individual", "familiar"},
		Kind:              models.ChartPie,
		NextMonthOnly:     true,
	})
	if err != nil {
		t.Fatalf("presetScript: %v", err)
	}
	if !strings.Contains(script, `(["individual","familiar"], "pie", true)`) {
		t.Errorf("unexpected arguments in script:\n%s", script)
	}

	if _, err := presetScript(models.FilterState{Kind: "bars"}); !errors.Is(err, models.ErrUnknownChartKind) {
		t.Errorf("expected ErrUnknownChartKind, got %v", err)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"lineas", "lineas.png"},
		{"Tipo Individual", "tipo-individual.png"},
		{"../../etc", "etc.png"},
		{"", "snapshot.png"},
	}
	for _, tt := range tests {
		if got := fileName(tt.in); got != tt.want {
			t.Errorf("fileName(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFindChromeBinaryPrefersEnv(t *testing.T) {
	t.Setenv("CHROME_BIN", "/opt/custom/chrome")
	if got := findChromeBinary(); got != "/opt/custom/chrome" {
		t.Errorf("got %q, want /opt/custom/chrome", got)
	}
}

type stubSource struct{}

func (stubSource) FetchPolicies(context.Context, storage.PolicyQuery) ([]*models.RawPolicyRow, error) {
	s := func(v string) *string { return &v }
	return []*models.RawPolicyRow{
		{ID: "P1", EffectiveDate: s("2026-01-10"), Operator: s("A"), Applicants: s("1"),
			Status: s("tramitada"), ClientID: s("C1"), RegistrationType: s("individual")},
	}, nil
}

func (stubSource) Close() error { return nil }

// TestCaptureAgainstServer needs a local Chrome; set POLIZAS_BROWSER_TESTS=1
// to run it.
func TestCaptureAgainstServer(t *testing.T) {
	if os.Getenv("POLIZAS_BROWSER_TESTS") == "" || findChromeBinary() == "" {
		t.Skip("browser tests disabled")
	}

	registry := controller.NewRegistry(func(id string) *controller.Session {
		return controller.NewSession(id, controller.Options{
			Source:  stubSource{},
			Query:   storage.DefaultQuery(),
			Filters: models.FilterState{RegistrationTypes: []string{"individual"}},
		})
	})
	defer registry.CloseAll()
	h := api.NewHandler(registry, config.DefaultCatalog(), utils.NewNopLogger())
	srv := httptest.NewServer(api.NewServer(h, utils.NewNopLogger()))
	defer srv.Close()

	out := t.TempDir()
	c := New(Options{URL: srv.URL, OutDir: out, Settle: 500 * time.Millisecond, MaxConcurrency: 2}, utils.NewNopLogger())
	paths, err := c.Capture(context.Background(), DefaultPresets(config.DefaultCatalog())[:2])
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	want := []string{filepath.Join(out, "lineas.png"), filepath.Join(out, "torta.png")}
	if len(paths) != 2 || paths[0] != want[0] || paths[1] != want[1] {
		t.Errorf("paths: got %v, want %v", paths, want)
	}
}
