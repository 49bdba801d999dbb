package mht

import "math"

// Point2D is a position in the tracker's fixed planar frame, in metres.
type Point2D struct {
	X, Y float64
}

// Segment2D is a line segment defined by its two endpoints, as extracted
// from a laser scan's L-shape feature. Orientation and midpoint are the
// only derived quantities the reference-point policy needs, so they are
// computed on demand rather than cached on the value.
type Segment2D struct {
	A, B Point2D
}

// orientation returns the segment's angle normalized to [0, π), so that a
// segment and its reverse compare equal.
func (s Segment2D) orientation() float64 {
	dx := s.B.X - s.A.X
	dy := s.B.Y - s.A.Y
	theta := math.Atan2(dy, dx)
	if theta < 0 {
		theta += math.Pi
	}
	if theta >= math.Pi {
		theta -= math.Pi
	}
	return theta
}

func (s Segment2D) midpoint() Point2D {
	return Point2D{
		X: (s.A.X + s.B.X) / 2,
		Y: (s.A.Y + s.B.Y) / 2,
	}
}

func (s Segment2D) length() float64 {
	dx := s.B.X - s.A.X
	dy := s.B.Y - s.A.Y
	return math.Hypot(dx, dy)
}

// angleBetweenAngles returns the minimal signed difference between two
// angles already normalized to [0, π), wrapping at the π boundary so a
// segment's two endpoint orderings never look 180° apart.
func angleBetweenAngles(target, source float64) float64 {
	diff := target - source
	for diff > math.Pi/2 {
		diff -= math.Pi
	}
	for diff < -math.Pi/2 {
		diff += math.Pi
	}
	return diff
}

func absAngleBetweenAngles(target, source float64) float64 {
	return math.Abs(angleBetweenAngles(target, source))
}

// assignmentCost scores how likely rhs is a re-observation of lhs: the
// weighted sum of the orientation difference and the midpoint distance.
// Lower is better. This is the criterion the reference-point policy
// (refpoint.go) uses to decide which of a new object's two candidate
// segments is the continuation of a previously tracked one.
func assignmentCost(lhs, rhs Segment2D) float64 {
	const orientationWeight = 1.0
	const midpointWeight = 1.0

	orientationDelta := absAngleBetweenAngles(rhs.orientation(), lhs.orientation())

	lm, rm := lhs.midpoint(), rhs.midpoint()
	midpointDelta := math.Hypot(rm.X-lm.X, rm.Y-lm.Y)

	return orientationWeight*orientationDelta + midpointWeight*midpointDelta
}
