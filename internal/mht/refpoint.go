package mht

import "math"

// referencePointMemory is the per-state bookkeeping the reference-point
// policy carries across frames: the two segments most recently believed
// to define the tracked corner. It lives on ObjectState, not on Track —
// different hypothesis branches may disagree about which corner they are
// following, and that disagreement is itself part of the branch's
// evidence.
type referencePointMemory struct {
	refType         ReferencePointType
	seg1, seg2      Segment2D
	seg2Initialized bool
}

// resolveMeasurement updates the segment memory against a newly observed
// object and returns the (x, y) measurement the Kalman filter should be
// updated with.
//
// For CORNER objects the policy re-identifies which of the new object's
// candidate segments continues seg1 and which continues seg2 by minimum
// assignment cost (geometry.go), then reports the shared endpoint of the
// (possibly newly relabeled) seg1/seg2 pair — "the endpoint at the
// remembered corner" — rather than trusting the object's own corner index,
// since segment order in the upstream feature extractor is not stable
// across frames.
//
// For CENTROID and VISIBLE_ENDPOINT objects the reference point is used
// as-is; no segment memory is needed or updated.
func (m *referencePointMemory) resolveMeasurement(obj Object) (Point2D, error) {
	if obj.ReferencePointType != ReferencePointCorner {
		m.refType = obj.ReferencePointType
		return obj.ReferencePoint, nil
	}

	if err := obj.validate(); err != nil {
		return Point2D{}, err
	}
	m.refType = ReferencePointCorner

	segs := obj.ReferencePointSource.Segments

	if !m.hasMemory() {
		m.seg1 = segs[0]
		if len(segs) > 1 {
			m.seg2 = segs[1]
			m.seg2Initialized = true
			return cornerEndpoint(m.seg1, m.seg2), nil
		}
		m.seg2Initialized = false
		return m.seg1.midpoint(), nil
	}

	switch len(segs) {
	case 1:
		// Single edge observed: decide whether it continues seg1 or seg2,
		// leaving the other's memory untouched.
		costTo1 := assignmentCost(m.seg1, segs[0])
		if m.seg2Initialized {
			costTo2 := assignmentCost(m.seg2, segs[0])
			if costTo2 < costTo1-tieBreakEpsilon {
				m.seg2 = segs[0]
			} else {
				m.seg1 = segs[0]
			}
		} else {
			m.seg1 = segs[0]
		}
		if m.seg2Initialized {
			return cornerEndpoint(m.seg1, m.seg2), nil
		}
		return m.seg1.midpoint(), nil

	default:
		// Two candidates: whichever is cheaper against the remembered
		// seg1 keeps the seg1 identity; the other becomes seg2. Tie
		// (within epsilon) keeps the previous ordering.
		costA := assignmentCost(m.seg1, segs[0])
		costB := assignmentCost(m.seg1, segs[1])

		if costB < costA-tieBreakEpsilon {
			m.seg1, m.seg2 = segs[1], segs[0]
		} else {
			m.seg1, m.seg2 = segs[0], segs[1]
		}
		m.seg2Initialized = true
		return cornerEndpoint(m.seg1, m.seg2), nil
	}
}

func (m referencePointMemory) hasMemory() bool {
	return m.seg1 != (Segment2D{}) || m.seg2Initialized
}

const tieBreakEpsilon = 1e-9

// cornerEndpoint returns the point where two adjacent segments meet: the
// midpoint of whichever pair of endpoints (one from each segment) is
// closest together.
func cornerEndpoint(seg1, seg2 Segment2D) Point2D {
	candidates := [4][2]Point2D{
		{seg1.A, seg2.A},
		{seg1.A, seg2.B},
		{seg1.B, seg2.A},
		{seg1.B, seg2.B},
	}

	best := candidates[0]
	bestDist := math.MaxFloat64
	for _, c := range candidates {
		d := math.Hypot(c[0].X-c[1].X, c[0].Y-c[1].Y)
		if d < bestDist {
			bestDist = d
			best = c
		}
	}

	return Point2D{
		X: (best[0].X + best[1].X) / 2,
		Y: (best[0].Y + best[1].Y) / 2,
	}
}
