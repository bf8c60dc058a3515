package audio

// Sample normalization. Input devices report frames in whatever encoding the
// host negotiates (floating point, signed or unsigned integers); everything
// is normalized to float32 in [-1, 1] before buffering, and converted to
// 16-bit signed PCM only at finalize.

// Float32FromInt16 converts signed 16-bit samples to normalized float32.
func Float32FromInt16(src []int16) []float32 {
	out := make([]float32, len(src))
	for i, s := range src {
		out[i] = float32(s) / 32768.0
	}
	return out
}

// Float32FromInt32 converts signed 32-bit samples to normalized float32.
func Float32FromInt32(src []int32) []float32 {
	out := make([]float32, len(src))
	for i, s := range src {
		out[i] = float32(float64(s) / 2147483648.0)
	}
	return out
}

// Float32FromUint16 converts unsigned 16-bit samples (midpoint 32768) to
// normalized float32.
func Float32FromUint16(src []uint16) []float32 {
	out := make([]float32, len(src))
	for i, s := range src {
		out[i] = float32(int32(s)-32768) / 32768.0
	}
	return out
}

// PCM16FromFloat32 converts normalized samples to 16-bit signed PCM.
// Out-of-range values are clamped to [-1.0, 1.0] before scaling, never
// wrapped: 1.0 maps to 32767, -1.0 to -32768.
func PCM16FromFloat32(src []float32) []int16 {
	out := make([]int16, len(src))
	for i, s := range src {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		v := int32(s * 32768.0)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out[i] = int16(v)
	}
	return out
}
