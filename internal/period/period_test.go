/**
 * Periodicity Analyser Tests.
 *
 * Unit tests for the activity binarisation, FFT candidate nomination,
 * autocorrelation scoring, and best-period selection.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package period

import (
	"math"
	"testing"

	"github.com/kleaSCM/iotscope/internal/models"
)

func TestBinarize(t *testing.T) {
	tests := []struct {
		name  string
		times []float64
		want  []float64
	}{
		{
			name:  "one bit per active second",
			times: []float64{100.0, 100.2, 100.9, 103.5},
			// d = ceil(3.5)+1 = 5
			want: []float64{1, 0, 0, 1, 0},
		},
		{
			name:  "single packet",
			times: []float64{42.0},
			want:  []float64{1},
		},
		{
			name:  "all packets in one second",
			times: []float64{7.1, 7.2, 7.3},
			want:  []float64{1, 0}, // d = ceil(0.2)+1 = 2
		},
		{
			name:  "empty",
			times: nil,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Binarize(tt.times)
			if len(got) != len(tt.want) {
				t.Fatalf("length = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("bit %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// A clean 30-second beacon over 1000 seconds nominates exactly one
// scoreable candidate and selects it.
func TestAnalyzeBeacon(t *testing.T) {
	x := make([]float64, 1001)
	for i := 0; i <= 1000; i += 30 {
		x[i] = 1
	}

	result := Analyze(x)
	if result.Best == nil {
		t.Fatal("expected a period for the beacon series")
	}
	if result.Best.Period != 30 {
		t.Errorf("best period = %d, want 30", result.Best.Period)
	}
	// 30 * (33/1001 lag-30 products over 34 beacons): both scores sit
	// just under 1 and equal each other (the ±1 lags are empty).
	if math.Abs(result.Best.Score.R-0.989010989) > 1e-6 {
		t.Errorf("r = %v, want ≈0.989011", result.Best.Score.R)
	}
	if result.Best.Score.R != result.Best.Score.RN {
		t.Errorf("rn = %v, want equal to r", result.Best.Score.RN)
	}
	if _, ok := result.Candidates[30]; !ok {
		t.Errorf("candidate set %v missing 30", result.Candidates)
	}
}

func TestAnalyzeNoPeriod(t *testing.T) {
	tests := []struct {
		name  string
		times []float64
	}{
		{"empty", nil},
		{"one packet", []float64{5}},
		{"all one timestamp", []float64{5, 5, 5, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Analyze(Binarize(tt.times))
			if result.Best != nil {
				t.Errorf("expected no period, got %d", result.Best.Period)
			}
		})
	}
}

func TestScoreRequiresLocalMaximum(t *testing.T) {
	// Constant activity: every lag has monotonically decreasing overlap,
	// so no lag is a strict local maximum.
	x := []float64{1, 1, 1, 1, 1, 1, 1, 1}
	for i := 1; i < len(x)-1; i++ {
		if _, ok := Score(x, i); ok {
			t.Errorf("lag %d accepted on constant series", i)
		}
	}
}

func TestScoreOutOfRange(t *testing.T) {
	x := []float64{1, 0, 1, 0}
	if _, ok := Score(x, 0); ok {
		t.Error("lag 0 must be rejected")
	}
	if _, ok := Score(x, len(x)-1); ok {
		t.Error("lag d-1 must be rejected")
	}
}

func TestChooseBestPrefersStable(t *testing.T) {
	candidates := map[int]models.PeriodScore{
		7:  {R: 0.9, RN: 0.95},
		14: {R: 1.02, RN: 1.01},
		21: {R: 1.5, RN: 1.6},
	}
	best := ChooseBest(candidates)
	if best == nil {
		t.Fatal("expected a choice")
	}
	if best.Period != 14 {
		t.Errorf("best = %d, want 14 (smallest |r-1|+|rn-1| among r >= 1)", best.Period)
	}
}

func TestChooseBestRelaxesWhenNothingStable(t *testing.T) {
	candidates := map[int]models.PeriodScore{
		10: {R: 0.95, RN: 0.97},
		20: {R: 0.5, RN: 0.6},
	}
	best := ChooseBest(candidates)
	if best == nil {
		t.Fatal("expected the relaxed pass to choose")
	}
	if best.Period != 10 {
		t.Errorf("best = %d, want 10", best.Period)
	}
}

func TestChooseBestRejectsUnstable(t *testing.T) {
	// r < 1 and r < 0.1·rn: clearly unstable, never chosen.
	candidates := map[int]models.PeriodScore{
		5: {R: 0.05, RN: 1.0},
	}
	if best := ChooseBest(candidates); best != nil {
		t.Errorf("unstable candidate chosen: %+v", best)
	}
}

func TestChooseBestEmpty(t *testing.T) {
	if best := ChooseBest(nil); best != nil {
		t.Errorf("expected nil on empty candidates, got %+v", best)
	}
}

func TestCandidatePeriodsDeterministic(t *testing.T) {
	x := make([]float64, 300)
	for i := 0; i < 300; i += 12 {
		x[i] = 1
	}
	first := CandidatePeriods(x)
	for run := 0; run < 3; run++ {
		again := CandidatePeriods(x)
		if len(again) != len(first) {
			t.Fatalf("candidate count changed between runs: %d vs %d", len(again), len(first))
		}
		for i := range first {
			if first[i] != again[i] {
				t.Fatalf("candidate set changed between runs: %v vs %v", first, again)
			}
		}
	}
}
