package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultStepSize           = 0.01
	DefaultMinStepSize        = 1e-6
	DefaultMaxStepSize        = 0.1
	DefaultMaxSteps           = 300
	DefaultCorrectorSteps     = 10
	DefaultCorrectorTolerance = 1e-8
	DefaultStepTolerance      = 1e-6
)

// Settings control the predictor-corrector stepping performed by the
// engine. The field set mirrors the engine boundary exactly.
type Settings struct {
	StepSize           float64 `yaml:"step_size" json:"step_size"`
	MinStepSize        float64 `yaml:"min_step_size" json:"min_step_size"`
	MaxStepSize        float64 `yaml:"max_step_size" json:"max_step_size"`
	MaxSteps           int     `yaml:"max_steps" json:"max_steps"`
	CorrectorSteps     int     `yaml:"corrector_steps" json:"corrector_steps"`
	CorrectorTolerance float64 `yaml:"corrector_tolerance" json:"corrector_tolerance"`
	StepTolerance      float64 `yaml:"step_tolerance" json:"step_tolerance"`
}

func DefaultSettings() Settings {
	return Settings{
		StepSize:           DefaultStepSize,
		MinStepSize:        DefaultMinStepSize,
		MaxStepSize:        DefaultMaxStepSize,
		MaxSteps:           DefaultMaxSteps,
		CorrectorSteps:     DefaultCorrectorSteps,
		CorrectorTolerance: DefaultCorrectorTolerance,
		StepTolerance:      DefaultStepTolerance,
	}
}

func (s Settings) Validate() error {
	if s.StepSize <= 0 {
		return fmt.Errorf("step_size must be positive, got %g", s.StepSize)
	}
	if s.MinStepSize <= 0 || s.MinStepSize > s.MaxStepSize {
		return fmt.Errorf("min_step_size %g must be positive and at most max_step_size %g",
			s.MinStepSize, s.MaxStepSize)
	}
	if s.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive, got %d", s.MaxSteps)
	}
	if s.CorrectorSteps <= 0 {
		return fmt.Errorf("corrector_steps must be positive, got %d", s.CorrectorSteps)
	}
	if s.CorrectorTolerance <= 0 || s.StepTolerance <= 0 {
		return fmt.Errorf("tolerances must be positive")
	}
	return nil
}

func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}
	cfg := DefaultSettings()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Settings{}, err
	}
	return cfg, nil
}

func Save(path string, cfg Settings) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
