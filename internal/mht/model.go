package mht

import (
	"fmt"
	"math"
)

// ModelConfig is the immutable configuration shared by every hypothesis
// of one object class: motion parameters, gating, and transition
// likelihoods.
type ModelConfig struct {
	TimeStep                float64 // dt between frames, seconds
	MaxMahalanobisDistance  float64 // gate radius
	SkipDecayRate           float64 // end-probability shape
	StartLikelihood         float64 // P(new track present), (0,1)
	DetectLikelihood        float64 // P(detect | present), (0,1)
	MeasurementNoiseCov     [4]float64  // R, 2x2 row-major, PSD
	InitialStateCov         [16]float64 // P0, 4x4 row-major, PSD
	ProcessNoiseCov         [16]float64 // Q, 4x4 row-major, PSD
}

// ObjectModel computes transition likelihoods and spawns successor
// states by gating and Kalman update. One ObjectModel is shared by every
// hypothesis branch of a given object class; it holds no per-branch
// state itself.
type ObjectModel struct {
	timeStep               float64
	maxMahalanobisDistance float64
	skipDecayRate          float64

	startLogLikelihood  float64
	skipLogLikelihood   float64 // log(1 - detect_p)
	detectLogLikelihood float64

	measurementNoise       [4]float64
	initialStateCovariance [16]float64
	processNoiseCovariance [16]float64
}

// NewObjectModel validates cfg and constructs the model. A validation
// failure is %w-wrapped ErrConfigurationInvalid and fatal to the caller.
func NewObjectModel(cfg ModelConfig) (*ObjectModel, error) {
	if err := validateModelConfig(cfg); err != nil {
		return nil, fmt.Errorf("object model: %w: %w", ErrConfigurationInvalid, err)
	}

	return &ObjectModel{
		timeStep:               cfg.TimeStep,
		maxMahalanobisDistance: cfg.MaxMahalanobisDistance,
		skipDecayRate:          cfg.SkipDecayRate,
		startLogLikelihood:     math.Log(cfg.StartLikelihood),
		skipLogLikelihood:      math.Log(1 - cfg.DetectLikelihood),
		detectLogLikelihood:    math.Log(cfg.DetectLikelihood),
		measurementNoise:       cfg.MeasurementNoiseCov,
		initialStateCovariance: cfg.InitialStateCov,
		processNoiseCovariance: cfg.ProcessNoiseCov,
	}, nil
}

func validateModelConfig(cfg ModelConfig) error {
	if cfg.TimeStep <= 0 {
		return fmt.Errorf("time_step must be > 0, got %v", cfg.TimeStep)
	}
	if cfg.MaxMahalanobisDistance <= 0 {
		return fmt.Errorf("max_mahalanobis_distance must be > 0, got %v", cfg.MaxMahalanobisDistance)
	}
	if cfg.SkipDecayRate <= 0 {
		return fmt.Errorf("skip_decay_rate must be > 0, got %v", cfg.SkipDecayRate)
	}
	if cfg.StartLikelihood <= 0 || cfg.StartLikelihood >= 1 {
		return fmt.Errorf("start_likelihood must be in (0,1), got %v", cfg.StartLikelihood)
	}
	if cfg.DetectLikelihood <= 0 || cfg.DetectLikelihood >= 1 {
		return fmt.Errorf("detect_likelihood must be in (0,1), got %v", cfg.DetectLikelihood)
	}
	if !isPSD2(cfg.MeasurementNoiseCov) {
		return fmt.Errorf("measurement_noise_covariance is not positive semi-definite")
	}
	if !isPSD4(cfg.InitialStateCov) {
		return fmt.Errorf("initial_state_covariance is not positive semi-definite")
	}
	if !isPSD4(cfg.ProcessNoiseCov) {
		return fmt.Errorf("process_noise_covariance is not positive semi-definite")
	}
	if isZero4(cfg.ProcessNoiseCov) {
		return fmt.Errorf("process_noise_covariance must have rank >= 1, got the zero matrix")
	}
	return nil
}

// beginNewStates returns the number of successor states
// getNewStateContinue / getNewStateSkip should be asked to build. Fixed at one motion model; a multi-model
// extension (e.g. IMM) would return more than one here.
func (m *ObjectModel) beginNewStates(ObjectState, *ObjectReport) int {
	return 1
}

// getNewStateContinue builds the continuation successor: deep-copies the
// parent filter, resolves the measurement via the reference-point policy,
// gates it by Mahalanobis distance, and — if admissible — runs predict +
// update. ok is false if the report is outside the gate or the
// innovation covariance is singular (ErrNumericalDegeneracy), in which
// case the caller must discard this candidate and fall back to a skip.
//
// skipPredict is true when the caller already advanced parent's filter
// by one time step itself (a bare predict() call ahead of update(), per
// the engine's framePredicted bookkeeping); getNewStateContinue then
// consumes that advance instead of applying its own, so predict()
// followed by update() with no further measurement never double-advances
// the filter.
func (m *ObjectModel) getNewStateContinue(parent ObjectState, report ObjectReport, skipPredict bool) (ObjectState, Point2D, bool, error) {
	child := parent.deepCopy()

	measurement, err := child.refPoint.resolveMeasurement(report.Object())
	if err != nil {
		return ObjectState{}, Point2D{}, false, err
	}

	if !skipPredict {
		child.filter.predict(m.timeStep, m.processNoiseCovariance)
	}

	inv := child.filter.innovation(measurement.X, measurement.Y, m.measurementNoise)
	if inv.singular {
		return ObjectState{}, Point2D{}, false, ErrNumericalDegeneracy
	}

	d2 := inv.mahalanobisDistanceSquared()
	if math.Sqrt(d2) > m.maxMahalanobisDistance {
		return ObjectState{}, Point2D{}, false, nil
	}

	child.filter.update(inv)
	child.logLikelihood = parent.logLikelihood + m.getContinueLogLikelihood(parent) + m.detectLogLikelihood + inv.measurementLogLikelihood(d2)
	child.timesSkipped = 0

	return child, measurement, true, nil
}

// getNewStateSkip builds the skip successor: predict only, no
// measurement update, times_skipped incremented. skipPredict has the same
// meaning as in getNewStateContinue.
func (m *ObjectModel) getNewStateSkip(parent ObjectState, skipPredict bool) ObjectState {
	child := parent.deepCopy()
	if !skipPredict {
		child.filter.predict(m.timeStep, m.processNoiseCovariance)
	}
	child.logLikelihood = parent.logLikelihood + m.getContinueLogLikelihood(parent) + m.skipLogLikelihood
	child.timesSkipped = parent.timesSkipped + 1
	return child
}

// advanceFilter runs the motion-model predict step on state's filter in
// place, with no measurement, no likelihood change, and no hypothesis
// tree node created — the bare, undoable advance a caller's predict()
// performs ahead of the frame's real update().
func (m *ObjectModel) advanceFilter(state *ObjectState) {
	state.filter.predict(m.timeStep, m.processNoiseCovariance)
}

// getStartLogLikelihood returns log(start_p).
func (m *ObjectModel) getStartLogLikelihood() float64 { return m.startLogLikelihood }

// getDetectLogLikelihood returns log(detect_p).
func (m *ObjectModel) getDetectLogLikelihood() float64 { return m.detectLogLikelihood }

// getSkipLogLikelihood returns log(1 - detect_p).
func (m *ObjectModel) getSkipLogLikelihood() float64 { return m.skipLogLikelihood }

// getContinueLogLikelihood returns log(1 - end_probability(state)).
func (m *ObjectModel) getContinueLogLikelihood(state ObjectState) float64 {
	return math.Log(1 - m.endProbability(state))
}

// getEndLogLikelihood returns log(end_probability(state)).
func (m *ObjectModel) getEndLogLikelihood(state ObjectState) float64 {
	return math.Log(m.endProbability(state))
}

// endProbability is a monotone function of times_skipped: end_prob(0) = 0,
// end_prob(∞) = 1, shaped by skip_decay_rate (higher rate, slower decay).
func (m *ObjectModel) endProbability(state ObjectState) float64 {
	return 1 - math.Exp(-float64(state.timesSkipped)/m.skipDecayRate)
}

// isPSD2 checks a 2x2 symmetric matrix (row-major [a b; c d]) is positive
// semi-definite via its eigenvalue signs (trace/determinant test).
func isPSD2(m [4]float64) bool {
	a, b, c, d := m[0], m[1], m[2], m[3]
	if math.Abs(b-c) > 1e-6 {
		return false // not symmetric
	}
	trace := a + d
	det := a*d - b*c
	return trace >= -1e-9 && det >= -1e-9
}

// isPSD4 checks a 4x4 symmetric matrix is positive semi-definite via
// attempted Cholesky decomposition with a small negative-pivot tolerance.
func isPSD4(m [16]float64) bool {
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if math.Abs(m[i*4+j]-m[j*4+i]) > 1e-6 {
				return false
			}
		}
	}

	var l [16]float64
	for i := 0; i < 4; i++ {
		for j := 0; j <= i; j++ {
			sum := m[i*4+j]
			for k := 0; k < j; k++ {
				sum -= l[i*4+k] * l[j*4+k]
			}
			if i == j {
				if sum < -1e-9 {
					return false
				}
				if sum < 0 {
					sum = 0
				}
				l[i*4+j] = math.Sqrt(sum)
			} else {
				if l[j*4+j] == 0 {
					if math.Abs(sum) > 1e-9 {
						return false
					}
					l[i*4+j] = 0
				} else {
					l[i*4+j] = sum / l[j*4+j]
				}
			}
		}
	}
	return true
}

func isZero4(m [16]float64) bool {
	for _, v := range m {
		if v != 0 {
			return false
		}
	}
	return true
}
