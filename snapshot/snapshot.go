// Package snapshot captures screenshots of the served dashboard page with a
// headless browser, one image per filter preset.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"polizas-dashboard/config"
	"polizas-dashboard/models"
	"polizas-dashboard/utils"
)

// Preset is one filter combination to capture.
type Preset struct {
	Name    string
	Filters models.FilterState
}

// Options configures a Capturer.
type Options struct {
	URL       string
	OutDir    string
	ChromeBin string
	Width     int
	Height    int
	// Settle is how long to wait after changing filters before capturing.
	Settle         time.Duration
	Timeout        time.Duration
	MaxRetries     int
	MaxConcurrency int
	RateLimitMs    int
}

// Capturer drives the browser.
type Capturer struct {
	opts   Options
	logger *utils.Logger
	pool   *utils.WorkerPool
	retry  *utils.RetryConfig
}

// New creates a ready-to-use Capturer.
func New(opts Options, logger *utils.Logger) *Capturer {
	if opts.Width <= 0 {
		opts.Width = 1280
	}
	if opts.Height <= 0 {
		opts.Height = 900
	}
	if opts.Settle <= 0 {
		opts.Settle = 2 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Capturer{
		opts:   opts,
		logger: logger,
		pool:   utils.NewWorkerPool(opts.MaxConcurrency, opts.RateLimitMs),
		retry: &utils.RetryConfig{
			MaxAttempts: opts.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// DefaultPresets covers every registration type as lines and as a pie, the
// next-month view and each registration type on its own.
func DefaultPresets(cat *config.Catalog) []Preset {
	all := make([]string, 0, len(cat.RegistrationTypes))
	for _, rt := range cat.RegistrationTypes {
		all = append(all, rt.Value)
	}

	presets := []Preset{
		{Name: "lineas", Filters: models.FilterState{RegistrationTypes: all, Kind: models.ChartLines}},
		{Name: "torta", Filters: models.FilterState{RegistrationTypes: all, Kind: models.ChartPie}},
		{Name: "proximo-mes", Filters: models.FilterState{RegistrationTypes: all, Kind: models.ChartLines, NextMonthOnly: true}},
	}
	for _, rt := range cat.RegistrationTypes {
		presets = append(presets, Preset{
			Name:    "tipo-" + rt.Value,
			Filters: models.FilterState{RegistrationTypes: []string{rt.Value}, Kind: models.ChartLines},
		})
	}
	return presets
}

// Capture writes one PNG per preset into the output directory and returns
// the written paths. A preset that keeps failing is logged and skipped; the
// joined errors are returned alongside the paths that succeeded.
func (c *Capturer) Capture(ctx context.Context, presets []Preset) ([]string, error) {
	if err := os.MkdirAll(c.opts.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("snapshot: create output dir: %w", err)
	}

	chromeBin := c.opts.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	c.logger.Info("[snapshot] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.WindowSize(c.opts.Width, c.opts.Height),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()
	if err := chromedp.Run(browserCtx); err != nil {
		return nil, fmt.Errorf("snapshot: start browser: %w", err)
	}

	var (
		mu    sync.Mutex
		paths []string
		errs  []error
	)
	for _, preset := range presets {
		p := preset
		c.pool.Submit(func() {
			path, err := c.capturePreset(browserCtx, p)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				c.logger.Warn("[snapshot] Preset %s failed: %v", p.Name, err)
				errs = append(errs, fmt.Errorf("preset %s: %w", p.Name, err))
				return
			}
			c.logger.Info("[snapshot] Saved %s", path)
			paths = append(paths, path)
		})
	}
	c.pool.Wait()

	slices.Sort(paths)
	return paths, errors.Join(errs...)
}

// capturePreset opens the page in a new tab, applies the preset and saves a
// screenshot of the chart area.
func (c *Capturer) capturePreset(browserCtx context.Context, p Preset) (string, error) {
	script, err := presetScript(p.Filters)
	if err != nil {
		return "", err
	}
	path := filepath.Join(c.opts.OutDir, fileName(p.Name))

	var img []byte
	err = c.retry.Do(browserCtx, "capture-"+p.Name, func() error {
		ctx, cancel := chromedp.NewContext(browserCtx)
		defer cancel()

		ctx, cancelTimeout := context.WithTimeout(ctx, c.opts.Timeout)
		defer cancelTimeout()

		var applied bool
		return chromedp.Run(ctx,
			chromedp.Navigate(c.opts.URL),
			chromedp.WaitVisible(`#filters`, chromedp.ByQuery),
			chromedp.Sleep(c.opts.Settle),
			chromedp.Evaluate(script, &applied),
			chromedp.Sleep(c.opts.Settle),
			chromedp.FullScreenshot(&img, 90),
		)
	})
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, img, 0644); err != nil {
		return "", fmt.Errorf("snapshot: write %q: %w", path, err)
	}
	return path, nil
}

// presetScript returns the JavaScript that sets the dashboard controls to f
// and fires their change event.
func presetScript(f models.FilterState) (string, error) {
	kind, err := models.ParseChartKind(string(f.Kind))
	if err != nil {
		return "", err
	}
	types := f.RegistrationTypes
	if types == nil {
		types = []string{}
	}
	typesJSON, err := json.Marshal(types)
	if err != nil {
		return "", fmt.Errorf("snapshot: encode types: %w", err)
	}

	return fmt.Sprintf(`
		(function(types, kind, nextMonth) {
			var form = document.getElementById('filters');
			form.querySelectorAll('input[name=tipo]').forEach(function(el) {
				el.checked = types.indexOf(el.value) >= 0;
			});
			form.querySelector('input[name=kind][value="' + kind + '"]').checked = true;
			form.querySelector('input[name=next_month]').checked = nextMonth;
			form.dispatchEvent(new Event('change'));
			return true;
		})(%s, %q, %t)`, typesJSON, string(kind), f.NextMonthOnly), nil
}

var unsafeName = regexp.MustCompile(`[^a-z0-9_-]+`)

func fileName(name string) string {
	slug := unsafeName.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "snapshot"
	}
	return slug + ".png"
}

// findChromeBinary looks for a Chrome/Chromium executable: CHROME_BIN first,
// then PATH, then well-known install locations.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
