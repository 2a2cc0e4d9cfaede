/**
 * Cluster Artifact Codec.
 *
 * CSV files of clustered rows: one file per cluster plus
 * noise_samples.csv, each row prefixed with its merged-table index and
 * suffixed with its cluster label.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package cluster

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kleaSCM/iotscope/internal/features"
)

// File name holding the rows DBSCAN marked as noise.
const NoiseFileName = "noise_samples.csv"

// Returns the artifact file name for a cluster label.
func FileNameFor(label int) string {
	if label == Noise {
		return NoiseFileName
	}
	return fmt.Sprintf("cluster_%d_samples.csv", label)
}

// Writes one cluster's rows. Column order: original_index, the seven
// feature columns, cluster.
func WriteClusterCSV(path string, rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"original_index"}, features.FeatureColumns...)
	header = append(header, "cluster")
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range rows {
		r := &rows[i]
		cells := []string{
			strconv.Itoa(r.OriginalIndex),
			strconv.FormatFloat(r.Time, 'f', 9, 64),
			strconv.Itoa(r.Length),
			strconv.Itoa(r.Direction),
			strconv.FormatFloat(r.TimeInterval, 'f', 6, 64),
			r.ProtocolType,
			r.Payload,
			r.Label,
			strconv.Itoa(r.Cluster),
		}
		if err := w.Write(cells); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Reads a cluster artifact back. Only the feature columns and the
// cluster label are needed downstream.
func ReadClusterCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	raw, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", features.ErrMalformedCSV, path, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	col := make(map[string]int, len(raw[0]))
	for i, name := range raw[0] {
		col[name] = i
	}
	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	rows := make([]Row, 0, len(raw)-1)
	for _, rec := range raw[1:] {
		var row Row
		row.OriginalIndex, _ = strconv.Atoi(cell(rec, "original_index"))
		row.Cluster, _ = strconv.Atoi(cell(rec, "cluster"))
		if row.Time, err = strconv.ParseFloat(cell(rec, "frame.time_epoch"), 64); err != nil {
			return nil, fmt.Errorf("%w: %s: bad frame.time_epoch", features.ErrMalformedCSV, path)
		}
		if row.Length, err = strconv.Atoi(cell(rec, "frame.len")); err != nil {
			return nil, fmt.Errorf("%w: %s: bad frame.len", features.ErrMalformedCSV, path)
		}
		if row.Direction, err = strconv.Atoi(cell(rec, "direction")); err != nil {
			return nil, fmt.Errorf("%w: %s: bad direction", features.ErrMalformedCSV, path)
		}
		row.TimeInterval, _ = strconv.ParseFloat(cell(rec, "time_interval"), 64)
		row.ProtocolType = cell(rec, "protocol_type")
		row.Payload = cell(rec, "payload")
		row.Label = cell(rec, "label")
		rows = append(rows, row)
	}
	return rows, nil
}
