/**
 * Key-Packet Statistics Artifacts.
 *
 * Per-device key-packet distribution CSVs and the run-wide merge. The
 * packet_distribution column is a JSON object keyed "<len>_<direction>"
 * with per-sample multiplicities, an explicit schema parsed typed on
 * the way back in.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package signature

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kleaSCM/iotscope/internal/features"
	"github.com/kleaSCM/iotscope/internal/models"
)

// Formats the distribution key of a key packet.
func DistributionKey(length, direction int) string {
	return fmt.Sprintf("%d_%d", length, direction)
}

// One mined session in a per-device statistics CSV.
type SessionStats struct {
	Session      string
	Distribution models.KeyPacketSet
}

// Writes one device's statistics CSV: (session_name,
// packet_distribution) rows, sessions sorted by name.
func WriteDeviceStats(path string, sessions []SessionStats) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sorted := append([]SessionStats(nil), sessions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Session < sorted[j].Session })

	w := csv.NewWriter(f)
	if err := w.Write([]string{"session_name", "packet_distribution"}); err != nil {
		return err
	}
	for _, s := range sorted {
		blob, err := json.Marshal(s.Distribution)
		if err != nil {
			return err
		}
		if err := w.Write([]string{s.Session, string(blob)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// One row of the merged statistics CSV.
type MergedStats struct {
	Device       string
	Session      string
	Distribution models.KeyPacketSet
}

// Merges every per-device statistics CSV under statsDir into one
// run-wide CSV with a device_name column. Devices are visited in
// sorted file order.
func MergeStats(statsDir, outPath string) (int, error) {
	entries, err := os.ReadDir(statsDir)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return 0, err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write([]string{"device_name", "session_name", "packet_distribution"}); err != nil {
		return 0, err
	}

	merged := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".csv" {
			continue
		}
		device := e.Name()[:len(e.Name())-len(".csv")]
		rows, err := readStatsCSV(filepath.Join(statsDir, e.Name()))
		if err != nil {
			return merged, err
		}
		for _, s := range rows {
			blob, err := json.Marshal(s.Distribution)
			if err != nil {
				return merged, err
			}
			if err := w.Write([]string{device, s.Session, string(blob)}); err != nil {
				return merged, err
			}
			merged++
		}
	}

	w.Flush()
	return merged, w.Error()
}

// Loads the merged statistics CSV as (device, session, distribution)
// rows for the signature extractor; session names keep their ___<N>
// sample-count suffix.
func LoadMergedStats(path string) ([]MergedStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 3
	raw, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", features.ErrMalformedCSV, path, err)
	}

	var rows []MergedStats
	for i, rec := range raw {
		if i == 0 {
			continue // header
		}
		var dist models.KeyPacketSet
		if err := json.Unmarshal([]byte(rec[2]), &dist); err != nil {
			return nil, fmt.Errorf("%w: %s: bad packet_distribution: %v", features.ErrMalformedCSV, path, err)
		}
		rows = append(rows, MergedStats{Device: rec[0], Session: rec[1], Distribution: dist})
	}
	return rows, nil
}

// Reads one per-device statistics CSV.
func readStatsCSV(path string) ([]SessionStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2
	raw, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", features.ErrMalformedCSV, path, err)
	}

	var rows []SessionStats
	for i, rec := range raw {
		if i == 0 {
			continue
		}
		var dist models.KeyPacketSet
		if err := json.Unmarshal([]byte(rec[1]), &dist); err != nil {
			return nil, fmt.Errorf("%w: %s: bad packet_distribution: %v", features.ErrMalformedCSV, path, err)
		}
		rows = append(rows, SessionStats{Session: rec[0], Distribution: dist})
	}
	return rows, nil
}
