package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"polizas-dashboard/models"
)

// CSVWriter exports dashboard data to a CSV file for spreadsheet use.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path.
// Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	return &CSVWriter{file: f, writer: csv.NewWriter(f)}, nil
}

// WriteTally writes one row per operator: the twelve monthly counts followed
// by the operator total.
func (c *CSVWriter) WriteTally(agg *models.Aggregation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return writeTally(c.writer, agg)
}

// WritePolicies writes the fetched snapshot in the column layout the CSV
// source reads back.
func (c *CSVWriter) WritePolicies(policies []*models.PolicyRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writer.Write(csvColumns); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, p := range policies {
		var clientID, clientName, regType string
		if p.Client != nil {
			clientID, clientName, regType = p.Client.ID, p.Client.Name, p.Client.RegistrationType
		}
		row := []string{
			p.ID, p.EffectiveDate, p.CoverageEndDate, p.Operator, p.Applicants,
			p.Status, clientID, clientName, regType,
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file. A failed final flush is
// reported along with any close error.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	return errors.Join(c.writer.Error(), c.file.Close())
}

// WriteTallyCSV writes the tally export to any writer.
func WriteTallyCSV(w io.Writer, agg *models.Aggregation) error {
	return writeTally(csv.NewWriter(w), agg)
}

func writeTally(w *csv.Writer, agg *models.Aggregation) error {
	header := make([]string, 0, 14)
	header = append(header, "operadora")
	header = append(header, models.MonthNames[:]...)
	header = append(header, "total")
	if err := w.Write(header); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	for _, op := range agg.Tally.Operators() {
		months, _ := agg.Tally.Months(op)
		row := make([]string, 0, 14)
		row = append(row, op)
		for _, n := range months {
			row = append(row, strconv.Itoa(n))
		}
		row = append(row, strconv.Itoa(agg.Totals.Get(op)))
		if err := w.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}
