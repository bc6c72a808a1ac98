// Package render holds the chart surfaces a session draws on. A surface
// creates chart instances from a configuration; every instance must be
// destroyed before its replacement is created.
package render

import (
	"errors"
	"sync"

	"polizas-dashboard/models"
)

// ErrDestroyed is returned when a destroyed instance is used or destroyed again.
var ErrDestroyed = errors.New("chart instance already destroyed")

// Instance is one live chart.
type Instance interface {
	Config() *models.ChartConfig
	Destroy() error
}

// Surface creates chart instances.
type Surface interface {
	Create(cfg *models.ChartConfig) (Instance, error)
}

// liveCounter tracks how many instances a surface has alive.
type liveCounter struct {
	mu      sync.Mutex
	live    int
	created int
}

func (c *liveCounter) acquire() {
	c.mu.Lock()
	c.live++
	c.created++
	c.mu.Unlock()
}

func (c *liveCounter) release() {
	c.mu.Lock()
	c.live--
	c.mu.Unlock()
}

// Live returns the number of instances not yet destroyed.
func (c *liveCounter) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

// Created returns the number of instances ever created.
func (c *liveCounter) Created() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created
}

// ConfigSurface keeps the configuration for a client-side charting component.
type ConfigSurface struct {
	liveCounter
}

// NewConfigSurface returns an empty ConfigSurface.
func NewConfigSurface() *ConfigSurface { return &ConfigSurface{} }

func (s *ConfigSurface) Create(cfg *models.ChartConfig) (Instance, error) {
	if cfg == nil {
		return nil, errors.New("render: nil chart config")
	}
	s.acquire()
	return &configInstance{cfg: cfg, owner: &s.liveCounter}, nil
}

type configInstance struct {
	mu        sync.Mutex
	cfg       *models.ChartConfig
	owner     *liveCounter
	destroyed bool
}

func (i *configInstance) Config() *models.ChartConfig { return i.cfg }

func (i *configInstance) Destroy() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.destroyed {
		return ErrDestroyed
	}
	i.destroyed = true
	i.owner.release()
	return nil
}
