package vad

import "testing"

func TestEnergyDetectorHysteresis(t *testing.T) {
	d := NewEnergyDetector(0.1, 0.05)

	tests := []struct {
		level float32
		want  bool
	}{
		{0.01, false},
		{0.07, false}, // below speech threshold while idle
		{0.2, true},
		{0.07, true}, // above silence threshold while speaking
		{0.01, false},
		{0.07, false},
	}
	for i, tt := range tests {
		if got := d.IsSpeech(frame(160, tt.level)); got != tt.want {
			t.Errorf("step %d level %.2f: got %v, want %v", i, tt.level, got, tt.want)
		}
	}
}

func TestEnergyDetectorReset(t *testing.T) {
	d := NewEnergyDetector(0.1, 0.05)
	d.IsSpeech(frame(160, 0.5))
	d.Reset()
	if d.IsSpeech(frame(160, 0.07)) {
		t.Error("reset detector should use the speech threshold")
	}
}

func TestEnergyDetectorNoHysteresis(t *testing.T) {
	d := NewEnergyDetector(0.1, 0)
	d.IsSpeech(frame(160, 0.5))
	if d.IsSpeech(frame(160, 0.07)) {
		t.Error("without hysteresis the single threshold applies")
	}
}
