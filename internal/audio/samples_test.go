package audio

import (
	"reflect"
	"testing"
)

func TestPCM16FromFloat32_ClampsOutOfRange(t *testing.T) {
	got := PCM16FromFloat32([]float32{1.5, -2.0, 0.3})
	want := []int16{32767, -32768, 9830}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PCM16FromFloat32 = %v, want %v", got, want)
	}
}

func TestPCM16FromFloat32_Boundaries(t *testing.T) {
	tests := []struct {
		name string
		in   float32
		want int16
	}{
		{"exact positive full scale", 1.0, 32767},
		{"exact negative full scale", -1.0, -32768},
		{"silence", 0.0, 0},
		{"half scale", 0.5, 16384},
		{"negative half scale", -0.5, -16384},
		{"just above full scale", 1.0001, 32767},
		{"just below negative full scale", -1.0001, -32768},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PCM16FromFloat32([]float32{tt.in})
			if got[0] != tt.want {
				t.Errorf("PCM16FromFloat32(%v) = %d, want %d", tt.in, got[0], tt.want)
			}
		})
	}
}

func TestFloat32FromInt16(t *testing.T) {
	got := Float32FromInt16([]int16{-32768, 0, 16384, 32767})
	want := []float32{-1.0, 0.0, 0.5, 32767.0 / 32768.0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Float32FromInt16 = %v, want %v", got, want)
	}
}

func TestFloat32FromInt32_Range(t *testing.T) {
	got := Float32FromInt32([]int32{-2147483648, 0, 1073741824})
	if got[0] != -1.0 || got[1] != 0.0 || got[2] != 0.5 {
		t.Errorf("Float32FromInt32 = %v, want [-1 0 0.5]", got)
	}
}

func TestFloat32FromUint16_MidpointIsSilence(t *testing.T) {
	got := Float32FromUint16([]uint16{0, 32768, 65535})
	if got[0] != -1.0 {
		t.Errorf("min sample = %v, want -1", got[0])
	}
	if got[1] != 0.0 {
		t.Errorf("midpoint sample = %v, want 0", got[1])
	}
	if got[2] >= 1.0 || got[2] < 0.999 {
		t.Errorf("max sample = %v, want just under 1", got[2])
	}
}

// Round trip through int16 and back stays within one quantization step.
func TestNormalizationRoundTrip(t *testing.T) {
	in := []float32{-0.75, -0.1, 0.0, 0.25, 0.9}
	back := Float32FromInt16(PCM16FromFloat32(in))
	for i := range in {
		diff := in[i] - back[i]
		if diff < 0 {
			diff = -diff
		}
		if diff > 1.0/32768.0 {
			t.Errorf("sample %d: %v -> %v, drift %v exceeds one step", i, in[i], back[i], diff)
		}
	}
}
