package mht

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// TrackerConfig is the full configuration of one MultiTracker instance:
// the motion model of ModelConfig plus the hypothesis-forest tuning of
// EngineConfig plus the false-alarm prior used to build ObjectReports.
type TrackerConfig struct {
	ModelConfig

	MaxDepth                 int
	MaxGlobalHypotheses      int
	MinGlobalHypothesisRatio float64
	FalseAlarmLikelihood     float64
}

func (c TrackerConfig) engineConfig() EngineConfig {
	return EngineConfig{
		MaxDepth:                 c.MaxDepth,
		MaxGlobalHypotheses:      c.MaxGlobalHypotheses,
		MinGlobalHypothesisRatio: c.MinGlobalHypothesisRatio,
	}
}

func validateTrackerConfig(c TrackerConfig) error {
	if c.FalseAlarmLikelihood <= 0 || c.FalseAlarmLikelihood >= 1 {
		return fmt.Errorf("false_alarm_likelihood must be in (0,1), got %v", c.FalseAlarmLikelihood)
	}
	return nil
}

// MultiTracker is the per-frame predict()/update(objects) → tracks
// contract: a single-threaded, non-reentrant facade over the object
// model, the hypothesis forest engine, and a TrackRegistry.
type MultiTracker struct {
	model    *ObjectModel
	engine   *engine
	registry *TrackRegistry

	runID                   string
	falseAlarmLogLikelihood float64
	frameNumber             int
}

// NewMultiTracker validates cfg and wires a model, an engine, and a fresh
// TrackRegistry together. Any extra HookSubscribers (for example an
// mhtstore.Sink) are fanned out alongside the registry, so external
// persistence sees exactly the same committed event stream the registry
// does. A validation failure is %w-wrapped ErrConfigurationInvalid and
// fatal to the caller.
func NewMultiTracker(cfg TrackerConfig, extra ...HookSubscriber) (*MultiTracker, error) {
	if err := validateTrackerConfig(cfg); err != nil {
		return nil, fmt.Errorf("tracker: %w: %w", ErrConfigurationInvalid, err)
	}

	model, err := NewObjectModel(cfg.ModelConfig)
	if err != nil {
		return nil, err
	}

	registry := NewTrackRegistry()
	hooks := FanOut(append([]HookSubscriber{registry}, extra...)...)
	eng, err := newEngine(model, cfg.engineConfig(), hooks)
	if err != nil {
		return nil, fmt.Errorf("tracker: %w: %w", ErrConfigurationInvalid, err)
	}

	return &MultiTracker{
		model:                   model,
		engine:                  eng,
		registry:                registry,
		runID:                   uuid.NewString(),
		falseAlarmLogLikelihood: math.Log(cfg.FalseAlarmLikelihood),
	}, nil
}

// RunID identifies this MultiTracker instance for correlation with
// external logs or stores. It has no bearing on tracking semantics and is
// generated once at construction.
func (t *MultiTracker) RunID() string { return t.runID }

// Predict advances every active track's Kalman filter by one Δt without
// consuming any report.
func (t *MultiTracker) Predict() {
	t.engine.predict()
}

// Update builds an ObjectReport for each supplied Object against the
// current frame number, feeds them through the hypothesis forest, and
// returns the active tracks after this frame's N-scan commit. Each call
// increments the frame counter.
func (t *MultiTracker) Update(objects []Object) []*Track {
	t.frameNumber++

	reports := make([]ObjectReport, len(objects))
	for i, obj := range objects {
		reports[i] = NewObjectReport(obj, t.frameNumber, t.falseAlarmLogLikelihood)
	}

	t.engine.update(t.frameNumber, reports)
	return t.registry.ActiveTracks()
}

// Registry exposes the tracker's TrackRegistry for callers that need
// ended tracks or the false-alarm log, not just the active snapshot
// Update returns.
func (t *MultiTracker) Registry() *TrackRegistry { return t.registry }

// FrameNumber returns the number of the most recent frame passed to
// Update, or 0 before the first call.
func (t *MultiTracker) FrameNumber() int { return t.frameNumber }
