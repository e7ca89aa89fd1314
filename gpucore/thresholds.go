// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpucore

import "encoding/binary"

// Default threshold window.
const (
	DefaultThresholdLow  uint32 = 0
	DefaultThresholdHigh uint32 = 100
)

// ThresholdsSize is the size in bytes of the threshold uniform block.
// Two u32 values padded to the 16-byte uniform alignment.
const ThresholdsSize = 16

// Thresholds is the parameter block consumed by the fragment shader.
type Thresholds struct {
	Low  uint32
	High uint32
}

// DefaultThresholds returns the (0, 100) window restored on stop.
func DefaultThresholds() Thresholds {
	return Thresholds{Low: DefaultThresholdLow, High: DefaultThresholdHigh}
}

// Bytes encodes t in the uniform buffer layout:
//
//	struct Thresholds { low: u32, high: u32, _pad: vec2<u32> }
func (t Thresholds) Bytes() []byte {
	buf := make([]byte, ThresholdsSize)
	binary.LittleEndian.PutUint32(buf[0:], t.Low)
	binary.LittleEndian.PutUint32(buf[4:], t.High)
	return buf
}

// ThresholdsFromBytes decodes a uniform block written by [Thresholds.Bytes].
// Returns false if b is too short.
func ThresholdsFromBytes(b []byte) (Thresholds, bool) {
	if len(b) < 8 {
		return Thresholds{}, false
	}
	return Thresholds{
		Low:  binary.LittleEndian.Uint32(b[0:]),
		High: binary.LittleEndian.Uint32(b[4:]),
	}, true
}
