// Package mhtconfig loads tracker tuning from JSON, mirroring the
// optional-pointer-field configuration style used elsewhere in this
// codebase: fields omitted from the file fall back to documented
// defaults rather than zero values.
package mhtconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/laser-mht/internal/mht"
)

// TuningConfig is the root JSON configuration for one MultiTracker
// instance. Every field is optional; Get* methods supply the default
// used when a field is omitted.
type TuningConfig struct {
	TimeStep               *float64 `json:"time_step,omitempty"`
	MaxMahalanobisDistance *float64 `json:"max_mahalanobis_distance,omitempty"`
	SkipDecayRate          *float64 `json:"skip_decay_rate,omitempty"`
	StartLikelihood        *float64 `json:"start_likelihood,omitempty"`
	DetectLikelihood       *float64 `json:"detect_likelihood,omitempty"`
	FalseAlarmLikelihood   *float64 `json:"false_alarm_likelihood,omitempty"`

	MaxDepth                 *int     `json:"max_depth,omitempty"`
	MinGlobalHypothesisRatio *float64 `json:"min_g_hypo_ratio,omitempty"`
	MaxGlobalHypotheses      *int     `json:"max_g_hypos,omitempty"`

	MeasurementNoiseCovariance *[4]float64  `json:"measurement_noise_covariance,omitempty"`
	InitialStateCovariance     *[16]float64 `json:"initial_state_covariance,omitempty"`
	ProcessNoiseCovariance     *[16]float64 `json:"process_noise_covariance,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with every field nil; Get*
// methods will report the package defaults until fields are populated.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig reads and validates a TuningConfig from a JSON file.
// Fields omitted from the file keep their defaults, so partial configs
// are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	const maxFileSize = 1 * 1024 * 1024
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate rejects values that are present but out of range. Fields left
// nil are not checked here; the Get* defaults they fall back to are
// already in range.
func (c *TuningConfig) Validate() error {
	if c.TimeStep != nil && *c.TimeStep <= 0 {
		return fmt.Errorf("time_step must be > 0, got %v", *c.TimeStep)
	}
	if c.MaxMahalanobisDistance != nil && *c.MaxMahalanobisDistance <= 0 {
		return fmt.Errorf("max_mahalanobis_distance must be > 0, got %v", *c.MaxMahalanobisDistance)
	}
	if c.SkipDecayRate != nil && *c.SkipDecayRate <= 0 {
		return fmt.Errorf("skip_decay_rate must be > 0, got %v", *c.SkipDecayRate)
	}
	if c.StartLikelihood != nil && (*c.StartLikelihood <= 0 || *c.StartLikelihood >= 1) {
		return fmt.Errorf("start_likelihood must be in (0,1), got %v", *c.StartLikelihood)
	}
	if c.DetectLikelihood != nil && (*c.DetectLikelihood <= 0 || *c.DetectLikelihood >= 1) {
		return fmt.Errorf("detect_likelihood must be in (0,1), got %v", *c.DetectLikelihood)
	}
	if c.FalseAlarmLikelihood != nil && (*c.FalseAlarmLikelihood <= 0 || *c.FalseAlarmLikelihood >= 1) {
		return fmt.Errorf("false_alarm_likelihood must be in (0,1), got %v", *c.FalseAlarmLikelihood)
	}
	if c.MaxDepth != nil && *c.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be >= 1, got %v", *c.MaxDepth)
	}
	if c.MinGlobalHypothesisRatio != nil && (*c.MinGlobalHypothesisRatio <= 0 || *c.MinGlobalHypothesisRatio > 1) {
		return fmt.Errorf("min_g_hypo_ratio must be in (0,1], got %v", *c.MinGlobalHypothesisRatio)
	}
	if c.MaxGlobalHypotheses != nil && *c.MaxGlobalHypotheses < 1 {
		return fmt.Errorf("max_g_hypos must be >= 1, got %v", *c.MaxGlobalHypotheses)
	}
	return nil
}

func (c *TuningConfig) GetTimeStep() float64 {
	if c.TimeStep == nil {
		return 0.1
	}
	return *c.TimeStep
}

func (c *TuningConfig) GetMaxMahalanobisDistance() float64 {
	if c.MaxMahalanobisDistance == nil {
		return 3.0
	}
	return *c.MaxMahalanobisDistance
}

func (c *TuningConfig) GetSkipDecayRate() float64 {
	if c.SkipDecayRate == nil {
		return 3.0
	}
	return *c.SkipDecayRate
}

func (c *TuningConfig) GetStartLikelihood() float64 {
	if c.StartLikelihood == nil {
		return 0.1
	}
	return *c.StartLikelihood
}

func (c *TuningConfig) GetDetectLikelihood() float64 {
	if c.DetectLikelihood == nil {
		return 0.9
	}
	return *c.DetectLikelihood
}

func (c *TuningConfig) GetFalseAlarmLikelihood() float64 {
	if c.FalseAlarmLikelihood == nil {
		return 0.05
	}
	return *c.FalseAlarmLikelihood
}

func (c *TuningConfig) GetMaxDepth() int {
	if c.MaxDepth == nil {
		return 3
	}
	return *c.MaxDepth
}

func (c *TuningConfig) GetMinGlobalHypothesisRatio() float64 {
	if c.MinGlobalHypothesisRatio == nil {
		return 0.01
	}
	return *c.MinGlobalHypothesisRatio
}

func (c *TuningConfig) GetMaxGlobalHypotheses() int {
	if c.MaxGlobalHypotheses == nil {
		return 8
	}
	return *c.MaxGlobalHypotheses
}

func (c *TuningConfig) GetMeasurementNoiseCovariance() [4]float64 {
	if c.MeasurementNoiseCovariance == nil {
		return [4]float64{0.01, 0, 0, 0.01}
	}
	return *c.MeasurementNoiseCovariance
}

func (c *TuningConfig) GetInitialStateCovariance() [16]float64 {
	if c.InitialStateCovariance == nil {
		return [16]float64{
			1, 0, 0, 0,
			0, 1, 0, 0,
			0, 0, 4, 0,
			0, 0, 0, 4,
		}
	}
	return *c.InitialStateCovariance
}

func (c *TuningConfig) GetProcessNoiseCovariance() [16]float64 {
	if c.ProcessNoiseCovariance == nil {
		return [16]float64{
			0.01, 0, 0, 0,
			0, 0.01, 0, 0,
			0, 0, 0.1, 0,
			0, 0, 0, 0.1,
		}
	}
	return *c.ProcessNoiseCovariance
}

// TrackerConfig translates the JSON tuning document into the mht
// package's TrackerConfig, filling every field from its Get* default.
func (c *TuningConfig) TrackerConfig() mht.TrackerConfig {
	return mht.TrackerConfig{
		ModelConfig: mht.ModelConfig{
			TimeStep:               c.GetTimeStep(),
			MaxMahalanobisDistance: c.GetMaxMahalanobisDistance(),
			SkipDecayRate:          c.GetSkipDecayRate(),
			StartLikelihood:        c.GetStartLikelihood(),
			DetectLikelihood:       c.GetDetectLikelihood(),
			MeasurementNoiseCov:    c.GetMeasurementNoiseCovariance(),
			InitialStateCov:        c.GetInitialStateCovariance(),
			ProcessNoiseCov:        c.GetProcessNoiseCovariance(),
		},
		MaxDepth:                 c.GetMaxDepth(),
		MaxGlobalHypotheses:      c.GetMaxGlobalHypotheses(),
		MinGlobalHypothesisRatio: c.GetMinGlobalHypothesisRatio(),
		FalseAlarmLikelihood:     c.GetFalseAlarmLikelihood(),
	}
}
