package scenes

import (
	"testing"
)

func TestMergePointers(t *testing.T) {
	touches := []Pointer{{X: 10, Y: 20, IsTouch: true}, {X: 30, Y: 40, IsTouch: true}}

	tests := []struct {
		name    string
		touches []Pointer
		mouse   bool
		want    []Pointer
	}{
		{"nothing", nil, false, nil},
		{"mouse only", nil, true, []Pointer{{X: 5, Y: 6}}},
		{"touches only", touches, false, touches},
		{"touch suppresses synthesized mouse", touches, true, touches},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergePointers(nil, tt.touches, tt.mouse, 5, 6)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMergePointersAppends(t *testing.T) {
	dst := []Pointer{{X: 1, Y: 1}}
	got := mergePointers(dst, nil, true, 2, 2)
	if len(got) != 2 || got[0] != (Pointer{X: 1, Y: 1}) {
		t.Errorf("existing entries should be kept: %v", got)
	}
}
