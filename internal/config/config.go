// Package config loads gridastar settings: defaults, then an optional YAML
// file, then GRIDASTAR_* environment variables, then validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full set of settings shared by every command.
type Config struct {
	Grid      GridConfig      `yaml:"grid"`
	Search    SearchConfig    `yaml:"search"`
	Randomize RandomizeConfig `yaml:"randomize"`
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
}

type Point struct {
	X int `yaml:"x" validate:"gte=0"`
	Y int `yaml:"y" validate:"gte=0"`
}

// GridConfig sizes the grid. A nil Target means the bottom-right corner.
type GridConfig struct {
	Width  int    `yaml:"width" validate:"gte=1,lte=1000"`
	Height int    `yaml:"height" validate:"gte=1,lte=1000"`
	Start  Point  `yaml:"start"`
	Target *Point `yaml:"target"`
}

type SearchConfig struct {
	StepDelay time.Duration `yaml:"step_delay" validate:"gte=0"`
	Frontier  string        `yaml:"frontier" validate:"oneof=scan heap"`
	Heuristic string        `yaml:"heuristic" validate:"oneof=euclidean octile"`
	Workers   int           `yaml:"workers" validate:"gte=0,lte=64"`
}

// RandomizeConfig controls random walls. Seed 0 seeds from the clock.
type RandomizeConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Probability float64 `yaml:"probability" validate:"gte=0,lte=1"`
	Seed        int64   `yaml:"seed"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required,hostname_port"`
}

// Default returns a 45x30 grid searched from the top-left to the bottom-right
// corner.
func Default() Config {
	return Config{
		Grid: GridConfig{
			Width:  45,
			Height: 30,
			Start:  Point{X: 0, Y: 0},
		},
		Search: SearchConfig{
			StepDelay: 10 * time.Millisecond,
			Frontier:  "scan",
			Heuristic: "euclidean",
			Workers:   0,
		},
		Randomize: RandomizeConfig{
			Enabled:     false,
			Probability: 0.25,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	if err := loadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("load config env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func loadEnv(cfg *Config) error {
	var errs []error
	intVar := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = i
		}
	}
	stringVar := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	intVar("GRIDASTAR_WIDTH", &cfg.Grid.Width)
	intVar("GRIDASTAR_HEIGHT", &cfg.Grid.Height)
	intVar("GRIDASTAR_WORKERS", &cfg.Search.Workers)
	stringVar("GRIDASTAR_FRONTIER", &cfg.Search.Frontier)
	stringVar("GRIDASTAR_HEURISTIC", &cfg.Search.Heuristic)
	stringVar("GRIDASTAR_LOG_LEVEL", &cfg.Log.Level)
	stringVar("GRIDASTAR_LOG_FORMAT", &cfg.Log.Format)
	stringVar("GRIDASTAR_ADDR", &cfg.Server.Addr)

	if v := os.Getenv("GRIDASTAR_STEP_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("GRIDASTAR_STEP_DELAY: %w", err))
		} else {
			cfg.Search.StepDelay = d
		}
	}
	if v := os.Getenv("GRIDASTAR_WALL_PROBABILITY"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("GRIDASTAR_WALL_PROBABILITY: %w", err))
		} else {
			cfg.Randomize.Probability = f
			cfg.Randomize.Enabled = true
		}
	}
	if v := os.Getenv("GRIDASTAR_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("GRIDASTAR_SEED: %w", err))
		} else {
			cfg.Randomize.Seed = seed
		}
	}
	return errors.Join(errs...)
}

// TargetPoint resolves the target, defaulting to the bottom-right corner.
func (c Config) TargetPoint() Point {
	if c.Grid.Target != nil {
		return *c.Grid.Target
	}
	return Point{X: c.Grid.Width - 1, Y: c.Grid.Height - 1}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(validateGridBounds, GridConfig{})
	return v
}

func validateGridBounds(sl validator.StructLevel) {
	grid := sl.Current().Interface().(GridConfig)
	inside := func(p Point) bool { return p.X < grid.Width && p.Y < grid.Height }
	if !inside(grid.Start) {
		sl.ReportError(grid.Start, "Start", "start", "inside_grid", "")
	}
	if grid.Target != nil && !inside(*grid.Target) {
		sl.ReportError(grid.Target, "Target", "target", "inside_grid", "")
	}
}

// Validate checks field ranges and that start and target lie on the grid.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
