/**
 * Signature Extractor.
 *
 * Finds, among the feature samples of a session, one whose packets
 * exactly realise the mined key-packet multiset, and emits the matched
 * rows, ordered by timestamp, as the session's signature.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package signature

import (
	"errors"
	"sort"

	"github.com/kleaSCM/iotscope/internal/models"
)

// Reported when no sample of a session realises the key multiset.
var ErrUnmatchedKeyMultiset = errors.New("no sample realises the key-packet multiset")

// Reports whether a sample's (len, direction) counts match every key of
// the multiset exactly.
func ValidateSample(rows []models.SignatureRow, keys models.KeyPacketSet) bool {
	counts := make(map[string]int, len(rows))
	for i := range rows {
		counts[DistributionKey(rows[i].Length, rows[i].Direction)]++
	}
	for key, want := range keys {
		if counts[key] != want {
			return false
		}
	}
	return true
}

// Extracts the signature rows from one validated sample: rows are
// sorted by timestamp, then walked front to back, taking each row whose
// key still has budget until every budget reaches zero. Returns the
// matched rows in time order, or false when the budgets cannot be
// exhausted.
func ExtractFromSample(rows []models.SignatureRow, keys models.KeyPacketSet) ([]models.SignatureRow, bool) {
	sorted := append([]models.SignatureRow(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	budget := make(models.KeyPacketSet, len(keys))
	remaining := 0
	for k, v := range keys {
		budget[k] = v
		remaining += v
	}

	matched := make([]models.SignatureRow, 0, remaining)
	for i := range sorted {
		if remaining == 0 {
			break
		}
		key := DistributionKey(sorted[i].Length, sorted[i].Direction)
		if budget[key] > 0 {
			matched = append(matched, sorted[i])
			budget[key]--
			remaining--
		}
	}

	return matched, remaining == 0
}

// Runs the extraction over a session's samples in ascending file order.
// sampleNames lists the samples and load reads one sample's rows; names
// are visited sorted. The first sample that validates and exhausts the budgets
// yields the signature.
func ExtractSignature(sampleNames []string, load func(name string) ([]models.SignatureRow, error),
	keys models.KeyPacketSet) ([]models.SignatureRow, error) {

	names := append([]string(nil), sampleNames...)
	sort.Strings(names)

	for _, name := range names {
		rows, err := load(name)
		if err != nil {
			return nil, err
		}
		if !ValidateSample(rows, keys) {
			continue
		}
		if matched, ok := ExtractFromSample(rows, keys); ok {
			return matched, nil
		}
	}
	return nil, ErrUnmatchedKeyMultiset
}
