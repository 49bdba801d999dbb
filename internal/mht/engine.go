package mht

import (
	"log"
	"math"
)

// EngineConfig is the N-scan and global-hypothesis tuning, independent of
// the motion model itself.
type EngineConfig struct {
	MaxDepth                 int     // N-scan window, frames
	MaxGlobalHypotheses      int     // max_g_hypos
	MinGlobalHypothesisRatio float64 // min_g_hypo_ratio, (0,1]
}

func validateEngineConfig(cfg EngineConfig) error {
	if cfg.MaxDepth < 1 {
		return ErrConfigurationInvalid
	}
	if cfg.MaxGlobalHypotheses < 1 {
		return ErrConfigurationInvalid
	}
	if cfg.MinGlobalHypothesisRatio <= 0 || cfg.MinGlobalHypothesisRatio > 1 {
		return ErrConfigurationInvalid
	}
	return nil
}

// engine is the hypothesis forest: one trackLineage per candidate track,
// each pruned and committed independently, tied together each frame by a
// shared assignment problem over that frame's reports.
type engine struct {
	model *ObjectModel
	cfg   EngineConfig
	hooks HookSubscriber

	lineages       []*trackLineage
	nextTrackID    uint64
	framePredicted bool
}

func newEngine(model *ObjectModel, cfg EngineConfig, hooks HookSubscriber) (*engine, error) {
	if err := validateEngineConfig(cfg); err != nil {
		return nil, err
	}
	return &engine{model: model, cfg: cfg, hooks: hooks}, nil
}

// predict advances every live lineage's leaf state by one Δt into a
// working copy, with no measurement and no hypothesis-tree mutation. The
// leaf node itself is left untouched — it is that node's committed
// history once folded into the committed path. update consumes the
// advance instead of applying its own when it runs in the same frame
// boundary, so predict() followed by update(nil) is equivalent to
// update(nil) alone.
func (e *engine) predict() {
	for _, l := range e.lineages {
		if l.ended {
			continue
		}
		l.predictLeaf(e.model)
	}
	e.framePredicted = true
}

// update runs one measure cycle: gate every report against every live
// lineage, rank the top global hypotheses with Murty's algorithm,
// extend/skip/end each lineage per the best one, commit N-scan windows,
// and record discarded alternates as pruning evidence.
func (e *engine) update(frameNumber int, reports []ObjectReport) {
	skipPredict := e.framePredicted
	e.framePredicted = false

	reports = e.rejectInvalid(frameNumber, reports)

	active := make([]*trackLineage, 0, len(e.lineages))
	for _, l := range e.lineages {
		if !l.ended {
			active = append(active, l)
		}
	}

	L, R := len(active), len(reports)
	candidates := make([][]continueCandidate, R)
	loggedDegenerate := false
	for ri, rep := range reports {
		candidates[ri] = make([]continueCandidate, L)
		for li, l := range active {
			parent := l.currentState()
			state, measured, ok, err := e.model.getNewStateContinue(parent, rep, skipPredict)
			if err != nil {
				ok = false
				if !loggedDegenerate {
					log.Printf("mht: discarding continuation at frame %d: %v", frameNumber, err)
					loggedDegenerate = true
				}
			}
			candidates[ri][li] = continueCandidate{state: state, measured: measured, ok: ok}
		}
	}

	cost := e.buildCostMatrix(active, reports, candidates)

	// Murty's algorithm wants a square matrix. Columns already number
	// L+2R; pad with zero-cost dummy report-rows so real rows are never
	// forced to give up a favourable column just to fill out a dummy's
	// assignment (a constant-cost row never outbids a row with a more
	// negative one).
	dim := L + 2*R
	padded := make([][]float64, dim)
	copy(padded, cost)
	for i := R; i < dim; i++ {
		padded[i] = make([]float64, dim)
	}

	hypotheses, truncated := kBestAssignments(padded, e.cfg.MaxGlobalHypotheses)
	if truncated {
		log.Printf("mht: %v at frame %d: kept top %d global hypotheses", ErrLimitExceeded, frameNumber, e.cfg.MaxGlobalHypotheses)
	}
	hypotheses = filterByRatio(hypotheses, e.cfg.MinGlobalHypothesisRatio)
	for hi := range hypotheses {
		hypotheses[hi].columns = hypotheses[hi].columns[:R]
	}

	outcomes := make([]map[int]int, len(hypotheses)) // lineage index -> report index, per hypothesis
	for hi, hyp := range hypotheses {
		outcomes[hi] = matchedLineages(hyp.columns, L, R)
	}

	var best map[int]int
	if len(hypotheses) > 0 {
		best = outcomes[0]
	} else {
		best = map[int]int{}
	}

	newTrackReports, falseAlarmReports := reportOutcomes(hypotheses, L, R)

	for li, l := range active {
		leafBefore := l.leaf
		if ri, ok := best[li]; ok {
			cand := candidates[ri][li]
			l.extendContinue(cand.state, reports[ri], cand.measured, frameNumber)
		} else {
			e.extendUnmatched(l, skipPredict, frameNumber)
		}

		for hi := 1; hi < len(outcomes); hi++ {
			altRi, altMatched := outcomes[hi][li]
			_, bestMatched := best[li]
			if altMatched && (!bestMatched || altRi != best[li]) {
				cand := candidates[altRi][li]
				if cand.ok {
					l.addAlternateContinue(leafBefore, cand.state, reports[altRi], cand.measured, frameNumber)
				}
			} else if !altMatched && bestMatched {
				parent := l.arenaState(leafBefore)
				l.addAlternateSkip(leafBefore, e.model.getNewStateSkip(parent, skipPredict), frameNumber)
			}
		}

		if !l.ended {
			l.commit(e.cfg.MaxDepth, e.commitCallback(l))
		}
		l.clearPredicted()
	}

	for _, ri := range newTrackReports {
		e.startLineage(reports[ri], frameNumber)
	}
	for _, ri := range falseAlarmReports {
		e.reportFalseAlarm(reports[ri])
	}

	live := e.lineages[:0]
	for _, l := range e.lineages {
		if !l.ended {
			live = append(live, l)
		}
	}
	e.lineages = live
}

// extendUnmatched decides, for a lineage no global hypothesis matched to
// a report this frame, whether it survives as a skip or terminates: the
// two candidate deltas (continue+skip vs end) compete exactly as any
// other pair of transition log-likelihoods, and exactly one outcome is
// applied per active lineage.
func (e *engine) extendUnmatched(l *trackLineage, skipPredict bool, frameNumber int) {
	parent := l.currentState()
	skipDelta := e.model.getContinueLogLikelihood(parent) + e.model.getSkipLogLikelihood()
	endDelta := e.model.getEndLogLikelihood(parent)

	if endDelta > skipDelta {
		l.ended = true
		l.commitAll(e.commitCallback(l))
		if l.trackID != 0 {
			e.hooks.EndTrack(l.trackID, frameNumber)
		}
		return
	}

	child := e.model.getNewStateSkip(parent, skipPredict)
	l.extendSkip(child, frameNumber)
}

func (e *engine) startLineage(report ObjectReport, frameNumber int) {
	root, err := newRootState(e.model, report)
	if err != nil {
		log.Printf("mht: discarding new-track report at frame %d: %v", frameNumber, err)
		e.reportFalseAlarm(report)
		return
	}
	e.lineages = append(e.lineages, newTrackLineage(root, frameNumber))
}

func (e *engine) reportFalseAlarm(report ObjectReport) {
	obj := report.Object()
	e.hooks.FalseAlarmReported(FalseAlarm{
		FrameNumber: report.FrameNumber(),
		X:           obj.ReferencePoint.X,
		Y:           obj.ReferencePoint.Y,
		CornerIndex: obj.CornerIndex,
	})
}

// rejectInvalid drops reports whose Object fails validation (CORNER type
// with zero segments), reporting each as a false alarm and logging once
// per frame regardless of how many were rejected.
func (e *engine) rejectInvalid(frameNumber int, reports []ObjectReport) []ObjectReport {
	kept := make([]ObjectReport, 0, len(reports))
	logged := false
	for _, rep := range reports {
		if err := rep.Object().validate(); err != nil {
			e.reportFalseAlarm(rep)
			if !logged {
				log.Printf("mht: rejecting report with empty reference source at frame %d: %v", frameNumber, err)
				logged = true
			}
			continue
		}
		kept = append(kept, rep)
	}
	return kept
}

// continueCandidate is the per-(report, lineage) continuation attempt
// computed once per frame and reused across cost-matrix construction and
// alternate-sibling bookkeeping.
type continueCandidate struct {
	state    ObjectState
	measured Point2D
	ok       bool
}

// buildCostMatrix lays out reports as rows and, per column block:
// existing lineages (continue), one new-track slot per report, one
// false-alarm slot per report. Continue-column costs are expressed as
// the log-likelihood delta relative to the lineage's skip alternative, so
// that lineages a hypothesis leaves unmatched contribute a uniform
// baseline Murty's ranking can ignore.
func (e *engine) buildCostMatrix(active []*trackLineage, reports []ObjectReport, candidates [][]continueCandidate) [][]float64 {
	L, R := len(active), len(reports)
	cols := L + R + R
	cost := make([][]float64, R)

	for ri, rep := range reports {
		row := make([]float64, cols)
		for c := range row {
			row[c] = math.Inf(1)
		}

		for li, l := range active {
			cand := candidates[ri][li]
			if !cand.ok {
				continue
			}
			parent := l.currentState()
			deltaContinue := cand.state.LogLikelihood() - parent.LogLikelihood()
			deltaSkip := e.model.getContinueLogLikelihood(parent) + e.model.getSkipLogLikelihood()
			row[li] = -(deltaContinue - deltaSkip)
		}

		row[L+ri] = -(e.model.getStartLogLikelihood() + e.model.getDetectLogLikelihood())
		row[L+R+ri] = -rep.FalseAlarmLogLikelihood()

		cost[ri] = row
	}
	return cost
}

// matchedLineages inverts a Murty column assignment into lineage index ->
// report index, dropping new-track and false-alarm columns.
func matchedLineages(columns []int, l, r int) map[int]int {
	m := make(map[int]int)
	for ri, col := range columns {
		if col < l {
			m[col] = ri
		}
	}
	return m
}

func reportOutcomes(hypotheses []globalAssignment, l, r int) (newTrack, falseAlarm []int) {
	if len(hypotheses) == 0 {
		return nil, nil
	}
	for ri, col := range hypotheses[0].columns {
		switch {
		case col < l:
			// consumed by an existing lineage; handled via best map.
		case col < l+r:
			newTrack = append(newTrack, ri)
		default:
			falseAlarm = append(falseAlarm, ri)
		}
	}
	return newTrack, falseAlarm
}

// filterByRatio drops hypotheses whose likelihood ratio to the best
// (already-sorted-by-cost) hypothesis falls below minRatio. Costs are
// negative log-likelihoods, so the ratio test is a fixed additive
// threshold in cost space: keep h iff cost(h) - cost(best) <=
// -log(minRatio).
func filterByRatio(hypotheses []globalAssignment, minRatio float64) []globalAssignment {
	if len(hypotheses) == 0 {
		return hypotheses
	}
	threshold := -math.Log(minRatio)
	best := hypotheses[0].cost
	kept := hypotheses[:1]
	for _, h := range hypotheses[1:] {
		if h.cost-best <= threshold {
			kept = append(kept, h)
		}
	}
	return kept
}

// commitCallback returns the onCommit hook lineage.commit/commitAll call
// for each node newly folded into l's committed path: it lazily assigns
// l's track id on the Start node and dispatches the matching hook in
// frame order.
func (e *engine) commitCallback(l *trackLineage) func(*hypothesisNode) {
	return func(node *hypothesisNode) {
		if node.kind == eventStart {
			e.nextTrackID++
			l.trackID = e.nextTrackID
		}
		sample := sampleFromNode(node)
		switch node.kind {
		case eventStart:
			e.hooks.StartTrack(l.trackID, sample)
		case eventContinue:
			e.hooks.ContinueTrack(l.trackID, sample)
		case eventSkip:
			e.hooks.SkipTrack(l.trackID, sample)
		}
	}
}

func sampleFromNode(node *hypothesisNode) Sample {
	s := Sample{
		FrameNumber:   node.frameNumber,
		X:             node.state.X(),
		Y:             node.state.Y(),
		VX:            node.state.VX(),
		VY:            node.state.VY(),
		LogLikelihood: node.state.LogLikelihood(),
	}
	if node.kind == eventContinue {
		s.Measured = true
		s.MeasuredX = node.measured.X
		s.MeasuredY = node.measured.Y
	}
	return s
}

// arenaState reads the state at a specific handle, independent of which
// node is currently the lineage's live leaf — used when building an
// alternate sibling off a handle other than l.leaf. If h is the handle
// predictLeaf most recently advanced, its working copy is returned
// instead of the node's own (unadvanced) state.
func (l *trackLineage) arenaState(h nodeHandle) ObjectState {
	if l.hasPredicted && l.predictedHandle == h {
		return l.predictedState
	}
	node, _ := l.arena.get(h)
	return node.state
}
