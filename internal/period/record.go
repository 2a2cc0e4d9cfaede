/**
 * Period Record File.
 *
 * Reads and writes the two-line record.txt stored next to each periodic
 * session: the candidate periods and the chosen one with its scores.
 * The field labels are kept byte-compatible with the historical
 * artifacts.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package period

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/kleaSCM/iotscope/internal/models"
)

// RecordFileName is the per-session period record artifact.
const RecordFileName = "record.txt"

// Historical field labels of record.txt.
const (
	labelCandidates = "候选周期:"
	labelChosen     = "选择周期:"
)

// Writes record.txt for one session: candidates ascending on the first
// line, the chosen period with [r, r_n] on the second.
func WriteRecord(path string, result models.Periodicity) error {
	if result.Best == nil {
		return fmt.Errorf("refusing to record a session without a chosen period")
	}

	periods := make([]int, 0, len(result.Candidates))
	for p := range result.Candidates {
		periods = append(periods, p)
	}
	sort.Ints(periods)

	parts := make([]string, len(periods))
	for i, p := range periods {
		parts[i] = fmt.Sprintf("%d", p)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s[%s]\n", labelCandidates, strings.Join(parts, ", "))
	fmt.Fprintf(&b, "%s(%d, [%g, %g])", labelChosen,
		result.Best.Period, result.Best.Score.R, result.Best.Score.RN)

	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// Returns the last line of a record.txt, used by the period roll-up.
func ReadRecordLastLine(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 0 {
		return "", nil
	}
	return strings.TrimSpace(lines[len(lines)-1]), nil
}
