/*
NAME
  interp.go

DESCRIPTION
  interp.go implements the linear-interpolation sample engine shared by
  Downsample's inner averaging loop and by the Sync and Align sample
  engines. Rather than re-deriving the two-point
  lerp by hand, each local window is fitted through gonum's piecewise
  linear predictor, degenerating to the ordinary lerp formula for exactly
  two points but keeping the interpolation math in one well-tested place.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pcm

import "gonum.org/v1/gonum/interp"

// SampleInterpolator computes a linearly interpolated 16-bit PCM value
// between two known samples at arbitrary offsets. It keeps its scratch
// slices so that a stream of many interpolated samples allocates nothing
// per call.
type SampleInterpolator struct {
	pl     interp.PiecewiseLinear
	xs, ys []float64
}

// NewSampleInterpolator returns a ready-to-use interpolator.
func NewSampleInterpolator() *SampleInterpolator {
	return &SampleInterpolator{xs: make([]float64, 2), ys: make([]float64, 2)}
}

// At returns the interpolated sample at offset x, given that prev occurs
// at x0 and next occurs at x1 (x0 < x1, x0 <= x <= x1). The result is
// rounded and clamped to the 16-bit PCM range.
func (s *SampleInterpolator) At(x0, prev, x1, next, x float64) int16 {
	if x1 <= x0 {
		return ClampSample(prev)
	}
	s.xs[0], s.xs[1] = x0, x1
	s.ys[0], s.ys[1] = prev, next
	if err := s.pl.Fit(s.xs, s.ys); err != nil {
		// A two-strictly-increasing-point fit cannot fail in practice;
		// fall back to a direct lerp so a transient error never aborts
		// an otherwise healthy stream.
		frac := (x - x0) / (x1 - x0)
		return ClampSample(prev + frac*(next-prev))
	}
	return ClampSample(s.pl.Predict(x))
}
