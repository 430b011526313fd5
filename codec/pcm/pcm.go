/*
NAME
  pcm.go

DESCRIPTION
  pcm.go contains the small numeric building blocks -- gcd, sample
  clamping and the Downsample output-length formula -- shared by the
  resampling and interpolation engines in this package. It is adapted
  from the original ausocean Resample/gcd helpers, generalised from a
  byte-oriented, multi-format, decimate-only resampler to the mono
  16-bit, fractional-ratio, interpolating engine the logger toolkit
  requires.

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package pcm provides the integer-ratio resampler and linear-interpolation
// sample engine shared by the Downsample, Sync and Align operations.
package pcm

import "math"

// gcd is used for calculating the greatest common divisor of two positive
// integers, a and b.
func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// ClampSample rounds v to the nearest integer and clamps it to the range
// representable by a signed 16-bit PCM sample.
func ClampSample(v float64) int16 {
	r := math.Round(v)
	switch {
	case r > math.MaxInt16:
		return math.MaxInt16
	case r < math.MinInt16:
		return math.MinInt16
	default:
		return int16(r)
	}
}

// OutputLength returns the number of output samples produced by resampling
// inputSamples from sourceRate to requestedRate, using the kHz/gcd
// normalised integer-ratio formula shared by Downsample and, when
// resampling, Sync.
func OutputLength(inputSamples int64, sourceRate, requestedRate uint32) int64 {
	srcK := int64(sourceRate) / 1000
	reqK := int64(requestedRate) / 1000
	if srcK == 0 || reqK == 0 {
		return 0
	}
	g := gcd(srcK, reqK)
	return inputSamples * (reqK / g) / (srcK / g)
}
