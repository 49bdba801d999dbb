package mht

// ReferencePointType identifies which geometric feature of an observed
// L-shape the reference point names.
type ReferencePointType int

const (
	// ReferencePointCorner is the vertex where two segments meet.
	ReferencePointCorner ReferencePointType = iota
	// ReferencePointCentroid is the object's estimated centroid.
	ReferencePointCentroid
	// ReferencePointVisibleEndpoint is the visible endpoint of a single
	// observed edge (no corner in view).
	ReferencePointVisibleEndpoint
)

func (t ReferencePointType) String() string {
	switch t {
	case ReferencePointCorner:
		return "corner"
	case ReferencePointCentroid:
		return "centroid"
	case ReferencePointVisibleEndpoint:
		return "visible_endpoint"
	default:
		return "unknown"
	}
}

// ReferencePointSource carries the one or two segments that define the
// observed corner. A single-edge observation (VISIBLE_ENDPOINT) supplies
// one segment; an L-shape observation (CORNER) supplies two.
type ReferencePointSource struct {
	Segments []Segment2D
}

// Object is a single geometric observation of one object in one frame,
// as produced by the (out-of-scope) segmentation/feature-extraction
// pipeline. It is the only input the tracking core accepts.
type Object struct {
	ReferencePoint       Point2D
	ReferencePointType   ReferencePointType
	ReferencePointSource ReferencePointSource
	CornerIndex          int
}

// validate enforces the Object invariant from the data model: a CORNER
// reference point must be backed by at least one segment.
func (o Object) validate() error {
	if o.ReferencePointType == ReferencePointCorner && len(o.ReferencePointSource.Segments) == 0 {
		return ErrEmptyReferenceSource
	}
	return nil
}

// ObjectReport wraps an Object with the frame it was observed on and the
// false-alarm log-likelihood configured for the model that will consider
// it. Immutable after construction.
type ObjectReport struct {
	object               Object
	frameNumber          int
	falseAlarmLogLikelihood float64
}

// NewObjectReport constructs a report for the given frame. falseAlarmLogLikelihood
// is supplied by the engine configuration (log of false_alarm_likelihood),
// not recomputed per report.
func NewObjectReport(object Object, frameNumber int, falseAlarmLogLikelihood float64) ObjectReport {
	return ObjectReport{
		object:                  object,
		frameNumber:             frameNumber,
		falseAlarmLogLikelihood: falseAlarmLogLikelihood,
	}
}

func (r ObjectReport) Object() Object            { return r.object }
func (r ObjectReport) FrameNumber() int          { return r.frameNumber }
func (r ObjectReport) FalseAlarmLogLikelihood() float64 { return r.falseAlarmLogLikelihood }
func (r ObjectReport) CornerIndex() int          { return r.object.CornerIndex }
