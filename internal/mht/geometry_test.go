package mht

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegment2D_Orientation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		seg  Segment2D
		want float64
	}{
		{
			name: "horizontal",
			seg:  Segment2D{A: Point2D{X: 0, Y: 0}, B: Point2D{X: 1, Y: 0}},
			want: 0,
		},
		{
			name: "vertical",
			seg:  Segment2D{A: Point2D{X: 0, Y: 0}, B: Point2D{X: 0, Y: 1}},
			want: math.Pi / 2,
		},
		{
			name: "reversed endpoints match forward orientation",
			seg:  Segment2D{A: Point2D{X: 1, Y: 0}, B: Point2D{X: 0, Y: 0}},
			want: 0,
		},
		{
			name: "45 degrees",
			seg:  Segment2D{A: Point2D{X: 0, Y: 0}, B: Point2D{X: 1, Y: 1}},
			want: math.Pi / 4,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, tt.seg.orientation(), 1e-9)
		})
	}
}

func TestSegment2D_OrientationIsNormalizedRange(t *testing.T) {
	t.Parallel()

	for i := 0; i < 16; i++ {
		angle := float64(i) * math.Pi / 8
		seg := Segment2D{
			A: Point2D{X: 0, Y: 0},
			B: Point2D{X: math.Cos(angle), Y: math.Sin(angle)},
		}
		theta := seg.orientation()
		require.GreaterOrEqual(t, theta, 0.0)
		require.Less(t, theta, math.Pi)
	}
}

func TestSegment2D_Midpoint(t *testing.T) {
	t.Parallel()
	seg := Segment2D{A: Point2D{X: 2, Y: 4}, B: Point2D{X: 6, Y: 8}}
	mid := seg.midpoint()
	assert.Equal(t, Point2D{X: 4, Y: 6}, mid)
}

func TestSegment2D_Length(t *testing.T) {
	t.Parallel()
	seg := Segment2D{A: Point2D{X: 0, Y: 0}, B: Point2D{X: 3, Y: 4}}
	assert.InDelta(t, 5.0, seg.length(), 1e-9)
}

func TestAngleBetweenAngles_WrapsAtPiBoundary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		target, source float64
		want           float64
	}{
		{name: "no difference", target: 0.1, source: 0.1, want: 0},
		{name: "small positive", target: 0.3, source: 0.1, want: 0.2},
		{
			name:   "wraps down across pi",
			target: 0.1,
			source: math.Pi - 0.1,
			want:   0.2,
		},
		{
			name:   "wraps up across pi",
			target: math.Pi - 0.1,
			source: 0.1,
			want:   -0.2,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, angleBetweenAngles(tt.target, tt.source), 1e-9)
		})
	}
}

func TestAbsAngleBetweenAngles(t *testing.T) {
	t.Parallel()
	got := absAngleBetweenAngles(0.1, math.Pi-0.1)
	assert.InDelta(t, 0.2, got, 1e-9)
}

func TestAssignmentCost_IdenticalSegmentsAreFree(t *testing.T) {
	t.Parallel()
	seg := Segment2D{A: Point2D{X: 0, Y: 0}, B: Point2D{X: 1, Y: 0}}
	assert.InDelta(t, 0, assignmentCost(seg, seg), 1e-9)
}

func TestAssignmentCost_ReversedEndpointsStillFree(t *testing.T) {
	t.Parallel()
	lhs := Segment2D{A: Point2D{X: 0, Y: 0}, B: Point2D{X: 1, Y: 0}}
	rhs := Segment2D{A: Point2D{X: 1, Y: 0}, B: Point2D{X: 0, Y: 0}}
	assert.InDelta(t, 0, assignmentCost(lhs, rhs), 1e-9)
}

func TestAssignmentCost_TranslatedSegmentCostsMidpointDistance(t *testing.T) {
	t.Parallel()
	lhs := Segment2D{A: Point2D{X: 0, Y: 0}, B: Point2D{X: 1, Y: 0}}
	rhs := Segment2D{A: Point2D{X: 3, Y: 0}, B: Point2D{X: 4, Y: 0}}
	assert.InDelta(t, 3.0, assignmentCost(lhs, rhs), 1e-9)
}

func TestAssignmentCost_PrefersClosestOfTwoCandidates(t *testing.T) {
	t.Parallel()
	prior := Segment2D{A: Point2D{X: 0, Y: 0}, B: Point2D{X: 1, Y: 0}}
	near := Segment2D{A: Point2D{X: 0.4, Y: 0}, B: Point2D{X: 1.4, Y: 0}}
	far := Segment2D{A: Point2D{X: 5, Y: 5}, B: Point2D{X: 6, Y: 5}}

	assert.Less(t, assignmentCost(prior, near), assignmentCost(prior, far))
}
