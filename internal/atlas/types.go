// Package atlas stores rendered noise maps in a SQLite database keyed by
// recipe name and seed.
package atlas

import (
	"errors"
	"strconv"
	"strings"
)

// ErrNotFound is returned when a map is not present in the atlas.
var ErrNotFound = errors.New("map not found")

// Metadata describes the maps stored in an atlas.
type Metadata struct {
	Name        string   `json:"name,omitempty"` // Human-readable atlas identifier
	Format      string   `json:"format,omitempty"`
	Description string   `json:"description,omitempty"`
	Version     string   `json:"version,omitempty"`
	Width       int      `json:"width,omitempty"`   // Field width in cells
	Height      int      `json:"height,omitempty"`  // Field height in cells
	Upscale     int      `json:"upscale,omitempty"` // Pixels per cell in the stored images
	Recipes     []string `json:"recipes,omitempty"` // Set by Writer.Close
	Maps        int      `json:"maps,omitempty"`    // Set by Writer.Close
}

// ToMap converts Metadata to a map for database insertion.
func (m Metadata) ToMap() map[string]string {
	result := make(map[string]string)

	if m.Name != "" {
		result["name"] = m.Name
	}
	if m.Format != "" {
		result["format"] = m.Format
	}
	if m.Description != "" {
		result["description"] = m.Description
	}
	if m.Version != "" {
		result["version"] = m.Version
	}
	if m.Width > 0 {
		result["width"] = strconv.Itoa(m.Width)
	}
	if m.Height > 0 {
		result["height"] = strconv.Itoa(m.Height)
	}
	if m.Upscale > 0 {
		result["upscale"] = strconv.Itoa(m.Upscale)
	}
	if len(m.Recipes) > 0 {
		result["recipes"] = strings.Join(m.Recipes, ",")
	}
	if m.Maps > 0 {
		result["maps"] = strconv.Itoa(m.Maps)
	}

	return result
}

func metadataFromMap(values map[string]string) Metadata {
	meta := Metadata{
		Name:        values["name"],
		Format:      values["format"],
		Description: values["description"],
		Version:     values["version"],
	}
	meta.Width = atoiOrZero(values["width"])
	meta.Height = atoiOrZero(values["height"])
	meta.Upscale = atoiOrZero(values["upscale"])
	meta.Maps = atoiOrZero(values["maps"])
	if r := values["recipes"]; r != "" {
		meta.Recipes = strings.Split(r, ",")
	}
	return meta
}

func atoiOrZero(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}
