package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	mandel "github.com/marben/fractscan"
	"github.com/marben/fractscan/internal/formula"
	"github.com/marben/fractscan/internal/iterate"
	"github.com/marben/fractscan/internal/scan"
	"github.com/marben/fractscan/internal/symplot"
	"github.com/marben/fractscan/internal/worklist"
)

// Corner is a point of the complex plane in a parameter file.
type Corner struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Config describes one calculation. Begin copies it; changing a Config
// afterwards has no effect on a running calculation.
type Config struct {
	Fractal string `json:"fractal"`
	// Param is the formula parameter; nil uses the fractal's default.
	Param *Corner `json:"param,omitempty"`

	// Region is the unrotated view. The zero region uses the fractal's
	// default, fitted to the image.
	Region mandel.Region `json:"region"`
	// Corner3 is the bottom left corner of a rotated or skewed view.
	Corner3 *Corner `json:"corner3,omitempty"`

	Iterate  iterate.Config `json:"iterate"`
	Strategy scan.Kind      `json:"strategy"`
	Scan     scan.Options   `json:"scan"`

	// Symmetry forces a symmetry class instead of the fractal's own.
	Symmetry *symplot.Class `json:"symmetry,omitempty"`
	// FindAttractors searches the formula's finite attractors when none
	// are configured.
	FindAttractors bool `json:"findattractors"`

	QueueCapacity int `json:"queue,omitempty"`
	// KeyboardCheck is the number of iterations between interrupt polls.
	KeyboardCheck int `json:"keyboardcheck,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Fractal:       "mandel",
		Iterate:       iterate.DefaultConfig(),
		Strategy:      scan.SolidGuess,
		Scan:          scan.Options{FillColor: -1},
		QueueCapacity: worklist.DefaultCapacity,
	}
}

// Validate checks what can be checked without an image size.
func (c *Config) Validate() error {
	var errs []error
	if _, err := formula.New(c.Fractal, 0); err != nil {
		errs = append(errs, err)
	}
	if c.Strategy < scan.OnePass || c.Strategy > scan.Diffusion {
		errs = append(errs, fmt.Errorf("strategy %d", int(c.Strategy)))
	}
	if c.QueueCapacity < 0 {
		errs = append(errs, fmt.Errorf("queue capacity %d", c.QueueCapacity))
	}
	if r := c.Region; r != (mandel.Region{}) && (r.Width() == 0 || r.Height() == 0) {
		errs = append(errs, fmt.Errorf("region %v is empty", r))
	}
	if err := c.Iterate.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("engine: invalid config: %w", err)
	}
	return nil
}

// LoadConfig reads a JSON parameter file. Fields missing from the file keep
// their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read params: %w", err)
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse params %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func SaveConfig(path string, cfg Config) error {
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write params: %w", err)
	}
	return nil
}
