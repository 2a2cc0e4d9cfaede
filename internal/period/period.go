/**
 * Periodicity Analyser.
 *
 * Discovers the dominant repetition period of a session: the per-second
 * activity vector is pushed through an FFT to nominate candidate
 * periods, each candidate is scored by lag autocorrelation, and the
 * most stable candidate is chosen. Identical input always yields the
 * identical candidate set and choice.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package period

import (
	"errors"
	"math"
	"math/cmplx"
	"sort"

	"github.com/kleaSCM/iotscope/internal/models"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Peaks below this fraction of the spectrum maximum are ignored.
const amplitudeThreshold = 0.1

// Candidate periods are widened to all integers in [0.9t, 1.1t).
const (
	widenLower = 0.9
	widenUpper = 1.1
)

// A candidate with r < 1 and r < 0.1·r_n is rejected as unstable.
const unstableRatio = 0.1

// Names the no-acceptable-period condition. Analyze does not return it;
// it leaves Best nil, and the caller deletes the session and continues.
var ErrMissingPeriod = errors.New("session has no acceptable period")

// Builds the per-second activity vector of a session: bit i is set iff
// at least one packet falls in the half-open second [start+i, start+i+1).
// Timestamps are epoch seconds ordered non-decreasing.
func Binarize(times []float64) []float64 {
	if len(times) == 0 {
		return nil
	}
	start := times[0]
	end := times[len(times)-1]
	d := int(math.Ceil(end-start)) + 1
	x := make([]float64, d)
	for _, t := range times {
		i := int(t - start)
		if i < 0 {
			i = 0
		}
		if i >= d {
			i = d - 1
		}
		x[i] = 1
	}
	return x
}

// Nominates candidate integer periods from the activity spectrum.
//
// The full FFT magnitude array is scanned for strict local maxima at or
// above 0.1 of the spectrum maximum; each peak frequency f maps to the
// period t = d/f, widened to every integer in [⌈0.9t⌉, ⌊1.1t⌋). Peaks
// are visited in ascending frequency index, and the union of all
// widened ranges is returned sorted ascending.
func CandidatePeriods(x []float64) []int {
	n := len(x)
	if n < 3 {
		return nil
	}

	amps := spectrum(x)
	max := 0.0
	for _, a := range amps {
		if a > max {
			max = a
		}
	}
	threshold := max * amplitudeThreshold

	seen := make(map[int]struct{})
	for i := 1; i < n-1; i++ {
		if amps[i] >= threshold && amps[i] > amps[i-1] && amps[i] > amps[i+1] {
			t := float64(n) / float64(i)
			lo := int(math.Ceil(widenLower * t))
			hi := int(widenUpper * t)
			for j := lo; j < hi; j++ {
				seen[j] = struct{}{}
			}
		}
	}

	candidates := make([]int, 0, len(seen))
	for p := range seen {
		candidates = append(candidates, p)
	}
	sort.Ints(candidates)
	return candidates
}

// Full-length FFT magnitudes of a real sequence. The real transform
// yields n/2+1 coefficients; the upper half is their mirror.
func spectrum(x []float64) []float64 {
	n := len(x)
	ft := fourier.NewFFT(n)
	coeffs := ft.Coefficients(nil, x)

	amps := make([]float64, n)
	for i, c := range coeffs {
		amps[i] = cmplx.Abs(c)
	}
	for i := len(coeffs); i < n; i++ {
		amps[i] = amps[n-i]
	}
	return amps
}

// Scores candidate period i by lag autocorrelation. ok is false when i
// is out of range or the lag is not a strict local maximum of the
// autocorrelation (A(i) must exceed both neighbours).
func Score(x []float64, i int) (models.PeriodScore, bool) {
	n := len(x)
	if i < 1 || i >= n-1 {
		return models.PeriodScore{}, false
	}

	a := lagDot(x, i)
	al := lagDot(x, i-1)
	au := lagDot(x, i+1)
	if a <= al || a <= au {
		return models.PeriodScore{}, false
	}

	return models.PeriodScore{
		R:  float64(i) * a / float64(n),
		RN: float64(i) * (a + al + au) / float64(n),
	}, true
}

// Inner product of x with itself at the given lag.
func lagDot(x []float64, lag int) float64 {
	sum := 0.0
	for j := 0; j < len(x)-lag; j++ {
		sum += x[j+lag] * x[j]
	}
	return sum
}

// Analyses a session's activity vector: nominates candidates, scores
// them, and chooses the best. Best is nil when nothing qualifies.
func Analyze(x []float64) models.Periodicity {
	result := models.Periodicity{Candidates: make(map[int]models.PeriodScore)}
	for _, i := range CandidatePeriods(x) {
		if score, ok := Score(x, i); ok {
			result.Candidates[i] = score
		}
	}
	result.Best = ChooseBest(result.Candidates)
	return result
}

// Selects the most stable candidate: periods with r ≥ 1 are preferred,
// minimising |r−1| + |rn−1|; when none qualifies the same score is
// minimised over all candidates that are not clearly unstable
// (r < 1 ∧ r < 0.1·rn is rejected outright). Candidates are visited in
// ascending period order, so ties resolve to the smallest period.
func ChooseBest(candidates map[int]models.PeriodScore) *models.PeriodChoice {
	periods := make([]int, 0, len(candidates))
	for p := range candidates {
		periods = append(periods, p)
	}
	sort.Ints(periods)

	best := pickMinDiff(periods, candidates, true)
	if best == nil {
		best = pickMinDiff(periods, candidates, false)
	}
	return best
}

// One selection pass. With stableOnly, only candidates with r ≥ 1 are
// considered.
func pickMinDiff(periods []int, candidates map[int]models.PeriodScore, stableOnly bool) *models.PeriodChoice {
	bestDiff := math.Inf(1)
	var best *models.PeriodChoice

	for _, p := range periods {
		score := candidates[p]
		if score.R < 1 && score.R < unstableRatio*score.RN {
			continue
		}
		if stableOnly && score.R < 1 {
			continue
		}
		diff := math.Abs(score.R-1) + math.Abs(score.RN-1)
		if diff < bestDiff {
			bestDiff = diff
			best = &models.PeriodChoice{Period: p, Score: score}
		}
	}
	return best
}
