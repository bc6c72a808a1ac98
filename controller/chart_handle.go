package controller

import (
	"errors"
	"fmt"
	"sync"

	"polizas-dashboard/models"
	"polizas-dashboard/render"
)

// ChartHandle owns the single live chart of a session.
type ChartHandle struct {
	mu      sync.Mutex
	surface render.Surface
	current render.Instance
}

// NewChartHandle returns a handle drawing on surface.
func NewChartHandle(surface render.Surface) *ChartHandle {
	return &ChartHandle{surface: surface}
}

// Replace destroys the live chart, if any, and then creates one from cfg.
// When creation fails no chart is live.
func (h *ChartHandle) Replace(cfg *models.ChartConfig) (render.Instance, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.releaseLocked(); err != nil {
		return nil, err
	}

	inst, err := h.surface.Create(cfg)
	if err != nil {
		return nil, fmt.Errorf("chart: create: %w", err)
	}
	h.current = inst
	return inst, nil
}

// Current returns the live chart, or nil.
func (h *ChartHandle) Current() render.Instance {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Release destroys the live chart, if any.
func (h *ChartHandle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.releaseLocked()
}

func (h *ChartHandle) releaseLocked() error {
	if h.current == nil {
		return nil
	}
	err := h.current.Destroy()
	h.current = nil
	if err != nil && !errors.Is(err, render.ErrDestroyed) {
		return fmt.Errorf("chart: destroy: %w", err)
	}
	return nil
}
