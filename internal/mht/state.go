package mht

// ObjectState is the mutable per-hypothesis state carried by one branch
// of the hypothesis forest: a 4-state Kalman filter plus the bookkeeping
// the object model and the engine need to score and extend the branch.
type ObjectState struct {
	filter kalmanFilter

	logLikelihood float64
	timesSkipped  int

	refPoint referencePointMemory
}

// newRootState constructs the initial state for a brand-new track from
// its first report: position seeded from the measurement, velocity zero,
// covariance the model's configured initial-state covariance.
func newRootState(model *ObjectModel, report ObjectReport) (ObjectState, error) {
	s := ObjectState{}
	measurement, err := s.refPoint.resolveMeasurement(report.Object())
	if err != nil {
		return ObjectState{}, err
	}

	s.filter = newKalmanFilter(measurement.X, measurement.Y, model.initialStateCovariance)
	s.logLikelihood = model.startLogLikelihood + model.detectLogLikelihood
	s.timesSkipped = 0
	return s, nil
}

// deepCopy returns an independent copy of s — required whenever the same
// parent state must live on more than one hypothesis child, since the
// Kalman filter and segment memory must diverge independently per branch.
func (s ObjectState) deepCopy() ObjectState {
	return ObjectState{
		filter:        s.filter.copy(),
		logLikelihood: s.logLikelihood,
		timesSkipped:  s.timesSkipped,
		refPoint:      s.refPoint,
	}
}

func (s ObjectState) X() float64  { return s.filter.positionX() }
func (s ObjectState) Y() float64  { return s.filter.positionY() }
func (s ObjectState) VX() float64 { return s.filter.velocityX() }
func (s ObjectState) VY() float64 { return s.filter.velocityY() }

func (s ObjectState) LogLikelihood() float64 { return s.logLikelihood }
func (s ObjectState) TimesSkipped() int      { return s.timesSkipped }
func (s ObjectState) ReferencePointType() ReferencePointType {
	return s.refPoint.refType
}
