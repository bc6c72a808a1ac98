package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RegistrationType is one checkbox of the registration-type filter group.
type RegistrationType struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// Catalog describes the dashboard controls and chart wording.
type Catalog struct {
	RegistrationTypes []RegistrationType `yaml:"registration_types" json:"registration_types"`
	LinesTitle        string             `yaml:"lines_title" json:"lines_title"`
	PieTitle          string             `yaml:"pie_title" json:"pie_title"`
	YAxisTitle        string             `yaml:"y_axis_title" json:"y_axis_title"`
}

// DefaultCatalog is used when no catalog file is configured.
func DefaultCatalog() *Catalog {
	return &Catalog{
		RegistrationTypes: []RegistrationType{
			{Value: "individual", Label: "Individual"},
			{Value: "familiar", Label: "Familiar"},
			{Value: "corporativo", Label: "Corporativo"},
		},
		LinesTitle: "Pólizas procesadas por mes",
		PieTitle:   "Pólizas por operadora",
		YAxisTitle: "Pólizas",
	}
}

// LoadCatalog reads a YAML catalog. Missing fields keep their defaults; an
// empty path returns the default catalog.
func LoadCatalog(path string) (*Catalog, error) {
	cat := DefaultCatalog()
	if path == "" {
		return cat, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %q: %w", path, err)
	}

	var file Catalog
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("catalog: parse %q: %w", path, err)
	}

	if len(file.RegistrationTypes) > 0 {
		cat.RegistrationTypes = file.RegistrationTypes
	}
	if file.LinesTitle != "" {
		cat.LinesTitle = file.LinesTitle
	}
	if file.PieTitle != "" {
		cat.PieTitle = file.PieTitle
	}
	if file.YAxisTitle != "" {
		cat.YAxisTitle = file.YAxisTitle
	}
	for i, rt := range cat.RegistrationTypes {
		if rt.Value == "" {
			return nil, fmt.Errorf("catalog: registration type %d has no value", i)
		}
		if rt.Label == "" {
			cat.RegistrationTypes[i].Label = rt.Value
		}
	}
	return cat, nil
}
