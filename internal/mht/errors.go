package mht

import "errors"

// ErrConfigurationInvalid is returned when a tracker or object model is
// constructed with a covariance that is not positive semi-definite, a
// likelihood outside (0,1), or a non-positive integer bound. Fatal to the
// tracker instance being constructed.
var ErrConfigurationInvalid = errors.New("mht: configuration invalid")

// ErrEmptyReferenceSource is returned when an Object claims a CORNER
// reference-point type but carries zero segments. The offending report is
// rejected and treated as a false alarm rather than propagated.
var ErrEmptyReferenceSource = errors.New("mht: object has corner reference type with no segments")

// ErrNumericalDegeneracy is returned when the innovation covariance is
// singular during gating. The candidate child branch is discarded; the
// parent branch continues with a skip.
var ErrNumericalDegeneracy = errors.New("mht: innovation covariance is singular")

// ErrLimitExceeded is informational: an observation burst produced more
// feasible global hypotheses than max_g_hypos, so kBestAssignments cut the
// search off with candidates still unexplored. It is never returned to a
// caller — retained globals are simply the top-K by score — but engine.update
// logs it once per frame when that truncation occurs.
var ErrLimitExceeded = errors.New("mht: global hypothesis count exceeds max_g_hypos")
