package mht

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Sample is one committed frame of a track's history: the filtered state,
// and — when the frame matched a report rather than a skip — the
// measurement that produced it.
type Sample struct {
	FrameNumber int

	X, Y   float64
	VX, VY float64

	Measured   bool
	MeasuredX  float64
	MeasuredY  float64

	LogLikelihood float64
}

// Speed returns the sample's instantaneous speed from its filtered
// velocity.
func (s Sample) Speed() float64 { return math.Hypot(s.VX, s.VY) }

// Track is the durable, append-only record of one committed lineage:
// every N-scan hook fires exactly once per frame, in frame order, and
// once a track ends it is never reopened.
type Track struct {
	ID      uint64
	Samples []Sample
	Ended   bool
	EndedAt int
}

// SpeedPercentiles returns the 50th, 85th, and 95th percentile speeds
// across the track's history, computed as empirical quantiles (no
// interpolation between samples).
func (t *Track) SpeedPercentiles() (p50, p85, p95 float64) {
	if len(t.Samples) == 0 {
		return 0, 0, 0
	}
	speeds := make([]float64, len(t.Samples))
	for i, s := range t.Samples {
		speeds[i] = s.Speed()
	}
	sort.Float64s(speeds)
	return stat.Quantile(0.50, stat.Empirical, speeds, nil),
		stat.Quantile(0.85, stat.Empirical, speeds, nil),
		stat.Quantile(0.95, stat.Empirical, speeds, nil)
}

// FalseAlarm is one report the engine attributed to clutter rather than
// any track, committed immediately since a false alarm never grows a
// lineage to prune.
type FalseAlarm struct {
	FrameNumber int
	X, Y        float64
	CornerIndex int
}

// HookSubscriber receives the engine's N-scan-committed events in frame
// order. Implementations must not block the engine for long; the
// TrackRegistry implementation below only appends to in-memory slices.
type HookSubscriber interface {
	StartTrack(id uint64, sample Sample)
	ContinueTrack(id uint64, sample Sample)
	SkipTrack(id uint64, sample Sample)
	EndTrack(id uint64, frameNumber int)
	FalseAlarmReported(fa FalseAlarm)
}

// TrackRegistry is the default HookSubscriber: an in-memory index of
// every track and false alarm the engine has committed so far, kept for
// the lifetime of the MultiTracker that owns it.
type TrackRegistry struct {
	tracks      map[uint64]*Track
	order       []uint64
	falseAlarms []FalseAlarm
}

// NewTrackRegistry returns an empty registry.
func NewTrackRegistry() *TrackRegistry {
	return &TrackRegistry{tracks: make(map[uint64]*Track)}
}

func (r *TrackRegistry) StartTrack(id uint64, sample Sample) {
	t := &Track{ID: id}
	t.Samples = append(t.Samples, sample)
	r.tracks[id] = t
	r.order = append(r.order, id)
}

func (r *TrackRegistry) ContinueTrack(id uint64, sample Sample) {
	t := r.tracks[id]
	t.Samples = append(t.Samples, sample)
}

func (r *TrackRegistry) SkipTrack(id uint64, sample Sample) {
	t := r.tracks[id]
	t.Samples = append(t.Samples, sample)
}

func (r *TrackRegistry) EndTrack(id uint64, frameNumber int) {
	t := r.tracks[id]
	t.Ended = true
	t.EndedAt = frameNumber
}

func (r *TrackRegistry) FalseAlarmReported(fa FalseAlarm) {
	r.falseAlarms = append(r.falseAlarms, fa)
}

// Track returns the track with the given id, or nil if none exists.
func (r *TrackRegistry) Track(id uint64) *Track { return r.tracks[id] }

// Tracks returns every track the registry has ever seen, in the order
// their Start event committed.
func (r *TrackRegistry) Tracks() []*Track {
	result := make([]*Track, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.tracks[id])
	}
	return result
}

// ActiveTracks returns tracks that have not yet received an EndTrack
// hook.
func (r *TrackRegistry) ActiveTracks() []*Track {
	var result []*Track
	for _, id := range r.order {
		if t := r.tracks[id]; !t.Ended {
			result = append(result, t)
		}
	}
	return result
}

// FalseAlarms returns every committed false alarm, in frame order.
func (r *TrackRegistry) FalseAlarms() []FalseAlarm { return r.falseAlarms }

// multiHook fans one engine's hook calls out to several subscribers, in
// order, so a MultiTracker can keep an in-memory TrackRegistry and feed
// an external sink (mhtstore.Sink) from the same commit stream.
type multiHook []HookSubscriber

// FanOut combines several HookSubscribers into one.
func FanOut(subs ...HookSubscriber) HookSubscriber { return multiHook(subs) }

func (m multiHook) StartTrack(id uint64, sample Sample) {
	for _, sub := range m {
		sub.StartTrack(id, sample)
	}
}

func (m multiHook) ContinueTrack(id uint64, sample Sample) {
	for _, sub := range m {
		sub.ContinueTrack(id, sample)
	}
}

func (m multiHook) SkipTrack(id uint64, sample Sample) {
	for _, sub := range m {
		sub.SkipTrack(id, sample)
	}
}

func (m multiHook) EndTrack(id uint64, frameNumber int) {
	for _, sub := range m {
		sub.EndTrack(id, frameNumber)
	}
}

func (m multiHook) FalseAlarmReported(fa FalseAlarm) {
	for _, sub := range m {
		sub.FalseAlarmReported(fa)
	}
}
