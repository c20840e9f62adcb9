// Package datasets loads the structured municipal datasets (RPE contacts, important places,
// tariff tables, schools) and renders the parts relevant to a question for the prompt.
package datasets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// RPE is one relais petite enfance with its contact details.
type RPE struct {
	Name    string   `json:"nom"`
	Sectors []string `json:"secteurs"`
	Address string   `json:"adresse"`
	Phone   string   `json:"telephone"`
	Email   string   `json:"email"`
}

// Place is a well-known municipal place.
type Place struct {
	Name        string `json:"nom"`
	Address     string `json:"adresse"`
	Description string `json:"description"`
}

// Tariffs holds the extracted tariff tables as HTML, grouped by type
// ("cantine", "periscolaire", "mercredi").
type Tariffs struct {
	TotalTables int                 `json:"total_tables"`
	ByType      map[string][]string `json:"tarifs_by_type"`
}

// Schools summarizes the schools dataset.
type Schools struct {
	Total int `json:"total"`
}

type rpeFile struct {
	List []RPE `json:"rpe_list"`
}

type placesFile struct {
	Places []Place `json:"lieux"`
}

// Paths locates the dataset files. An empty path disables the dataset.
type Paths struct {
	RPE     string
	Places  string
	Tariffs string
	Schools string
}

// Catalog is the read-only set of loaded datasets. A nil *Catalog has nothing loaded.
type Catalog struct {
	rpe     []RPE
	places  []Place
	tariffs *Tariffs
	schools *Schools

	hasRPE    bool
	hasPlaces bool
}

// New builds a catalog from in-memory datasets. A nil slice or pointer leaves the dataset
// unloaded.
func New(rpe []RPE, places []Place, tariffs *Tariffs, schools *Schools) *Catalog {
	return &Catalog{
		rpe:       rpe,
		places:    places,
		tariffs:   tariffs,
		schools:   schools,
		hasRPE:    rpe != nil,
		hasPlaces: places != nil,
	}
}

// Load reads every configured dataset. Datasets are optional: a missing file is skipped and
// a malformed one is logged and skipped, so Load never fails.
func Load(paths Paths, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Catalog{}

	var rf rpeFile
	if ok := loadJSON(paths.RPE, &rf, "rpe", logger); ok {
		c.rpe, c.hasRPE = rf.List, true
		logger.Info("RPE contacts loaded", zap.Int("count", len(rf.List)))
	}

	var pf placesFile
	if ok := loadJSON(paths.Places, &pf, "places", logger); ok {
		c.places, c.hasPlaces = pf.Places, true
		logger.Info("places loaded", zap.Int("count", len(pf.Places)))
	}

	var tf Tariffs
	if ok := loadJSON(paths.Tariffs, &tf, "tariffs", logger); ok {
		c.tariffs = &tf
		logger.Info("tariff tables loaded", zap.Int("tables", tf.TotalTables))
	}

	var sf Schools
	if ok := loadJSON(paths.Schools, &sf, "schools", logger); ok {
		c.schools = &sf
		logger.Info("schools loaded", zap.Int("total", sf.Total))
	}
	return c
}

func loadJSON(path string, v any, name string, logger *zap.Logger) bool {
	if path == "" {
		return false
	}
	if err := readJSON(path, v); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("dataset not found, skipping", zap.String("dataset", name), zap.String("path", path))
		} else {
			logger.Warn("failed to load dataset", zap.String("dataset", name), zap.Error(err))
		}
		return false
	}
	return true
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// HasTariffs reports whether the tariff tables are loaded.
func (c *Catalog) HasTariffs() bool { return c != nil && c.tariffs != nil }

// HasPlaces reports whether the places list is loaded.
func (c *Catalog) HasPlaces() bool { return c != nil && c.hasPlaces }

// HasRPE reports whether the RPE contacts are loaded.
func (c *Catalog) HasRPE() bool { return c != nil && c.hasRPE }

// HasSchools reports whether the schools summary is loaded.
func (c *Catalog) HasSchools() bool { return c != nil && c.schools != nil }

// Loaded returns the names of the loaded datasets, for health reporting.
func (c *Catalog) Loaded() []string {
	var out []string
	if c.HasRPE() {
		out = append(out, "rpe")
	}
	if c.HasPlaces() {
		out = append(out, "places")
	}
	if c.HasTariffs() {
		out = append(out, "tariffs")
	}
	if c.HasSchools() {
		out = append(out, "schools")
	}
	return out
}
