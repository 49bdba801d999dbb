package mht

import "math"

// kalmanFilter is a 4-state constant-velocity Kalman filter over
// (x, y, vx, vy), measuring position only. Fixed-size arrays are used
// throughout instead of a general matrix type so predict/update never pay
// for runtime dimension checks in the hypothesis forest's hot loop —
// every hypothesis branch owns one of these and the forest can hold
// thousands of them per frame.
//
// State transition (constant velocity, step dt):
//
//	F = [1 0 dt 0]
//	    [0 1 0  dt]
//	    [0 0 1  0]
//	    [0 0 0  1]
//
// Measurement matrix (position only):
//
//	H = [1 0 0 0]
//	    [0 1 0 0]
type kalmanFilter struct {
	x [4]float64    // state: x, y, vx, vy
	p [16]float64   // covariance, row-major 4x4
}

// newKalmanFilter initializes a filter at the given position with zero
// velocity and the configured initial-state covariance.
func newKalmanFilter(x, y float64, initialCovariance [16]float64) kalmanFilter {
	return kalmanFilter{
		x: [4]float64{x, y, 0, 0},
		p: initialCovariance,
	}
}

func (k kalmanFilter) copy() kalmanFilter {
	return kalmanFilter{x: k.x, p: k.p}
}

func (k kalmanFilter) positionX() float64  { return k.x[0] }
func (k kalmanFilter) positionY() float64  { return k.x[1] }
func (k kalmanFilter) velocityX() float64  { return k.x[2] }
func (k kalmanFilter) velocityY() float64  { return k.x[3] }

// predict advances the filter by dt under the constant-velocity model,
// in place: x' = F*x, P' = F*P*F^T + Q.
func (k *kalmanFilter) predict(dt float64, processNoise [16]float64) {
	k.x[0] += k.x[2] * dt
	k.x[1] += k.x[3] * dt
	// vx, vy unchanged under constant velocity.

	P := k.p
	var fp [16]float64
	for j := 0; j < 4; j++ {
		fp[0*4+j] = P[0*4+j] + dt*P[2*4+j]
		fp[1*4+j] = P[1*4+j] + dt*P[3*4+j]
		fp[2*4+j] = P[2*4+j]
		fp[3*4+j] = P[3*4+j]
	}

	var newP [16]float64
	for i := 0; i < 4; i++ {
		newP[i*4+0] = fp[i*4+0] + dt*fp[i*4+2]
		newP[i*4+1] = fp[i*4+1] + dt*fp[i*4+3]
		newP[i*4+2] = fp[i*4+2]
		newP[i*4+3] = fp[i*4+3]
	}

	for i := 0; i < 16; i++ {
		newP[i] += processNoise[i]
	}
	k.p = newP
}

// innovation computes the measurement residual and innovation covariance
// S = H*P*H^T + R for a position measurement, without mutating the
// filter. Both gating and update need S; computing it once and sharing
// the result avoids recomputing it per candidate.
type innovationResult struct {
	yx, yy         float64
	s00, s01, s10, s11 float64
	det            float64
	singular       bool
}

func (k kalmanFilter) innovation(measX, measY float64, measurementNoise [4]float64) innovationResult {
	yx := measX - k.x[0]
	yy := measY - k.x[1]

	s00 := k.p[0*4+0] + measurementNoise[0]
	s01 := k.p[0*4+1] + measurementNoise[1]
	s10 := k.p[1*4+0] + measurementNoise[2]
	s11 := k.p[1*4+1] + measurementNoise[3]

	det := s00*s11 - s01*s10

	return innovationResult{
		yx: yx, yy: yy,
		s00: s00, s01: s01, s10: s10, s11: s11,
		det:      det,
		singular: det < minDeterminantThreshold,
	}
}

// mahalanobisDistanceSquared returns d² = ν^T S^-1 ν for the residual
// carried in inv. Callers must have already checked inv.singular.
func (inv innovationResult) mahalanobisDistanceSquared() float64 {
	invS00 := inv.s11 / inv.det
	invS01 := -inv.s01 / inv.det
	invS10 := -inv.s10 / inv.det
	invS11 := inv.s00 / inv.det

	return inv.yx*inv.yx*invS00 + inv.yx*inv.yy*(invS01+invS10) + inv.yy*inv.yy*invS11
}

// measurementLogLikelihood returns -0.5*(d² + log det(2πS)), the Gaussian
// log-likelihood of the measurement under this innovation.
func (inv innovationResult) measurementLogLikelihood(d2 float64) float64 {
	logDet2piS := math.Log(4 * math.Pi * math.Pi * inv.det)
	return -0.5 * (d2 + logDet2piS)
}

// update applies the Kalman correction in place given a precomputed
// innovation, returning nothing — the innovation is discarded by the
// caller if gating already rejected it.
func (k *kalmanFilter) update(inv innovationResult) {
	invS00 := inv.s11 / inv.det
	invS01 := -inv.s01 / inv.det
	invS10 := -inv.s10 / inv.det
	invS11 := inv.s00 / inv.det

	var K [8]float64 // 4x2 Kalman gain
	for i := 0; i < 4; i++ {
		K[i*2+0] = k.p[i*4+0]*invS00 + k.p[i*4+1]*invS10
		K[i*2+1] = k.p[i*4+0]*invS01 + k.p[i*4+1]*invS11
	}

	k.x[0] += K[0*2+0]*inv.yx + K[0*2+1]*inv.yy
	k.x[1] += K[1*2+0]*inv.yx + K[1*2+1]*inv.yy
	k.x[2] += K[2*2+0]*inv.yx + K[2*2+1]*inv.yy
	k.x[3] += K[3*2+0]*inv.yx + K[3*2+1]*inv.yy

	// P' = (I - K*H) * P, where (K*H)[i][j] = K[i][0] if j==0, K[i][1] if j==1, 0 otherwise.
	var iMinusKH [16]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			identity := 0.0
			if i == j {
				identity = 1
			}
			var kh float64
			switch j {
			case 0:
				kh = K[i*2+0]
			case 1:
				kh = K[i*2+1]
			}
			iMinusKH[i*4+j] = identity - kh
		}
	}

	var newP [16]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float64
			for kk := 0; kk < 4; kk++ {
				sum += iMinusKH[i*4+kk] * k.p[kk*4+j]
			}
			newP[i*4+j] = sum
		}
	}
	k.p = newP
}

const minDeterminantThreshold = 1e-9
