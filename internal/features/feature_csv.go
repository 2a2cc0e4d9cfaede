/**
 * Feature Row Codec.
 *
 * The 7-column feature vector files: projection from full records, CSV
 * reading and writing. Feature rows double as signature rows; the
 * signature extractor selects a subset of them verbatim.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package features

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kleaSCM/iotscope/internal/models"
)

// Column order of feature and signature CSVs.
var FeatureColumns = []string{
	"frame.time_epoch", "frame.len", "direction", "time_interval",
	"protocol_type", "payload", "label",
}

// Projects full records onto 7-column feature rows. The transport class
// picks the matching payload column; label is the owning session name.
func ProjectRecords(records []models.Record, label string) []models.SignatureRow {
	rows := make([]models.SignatureRow, 0, len(records))
	for i := range records {
		rec := &records[i]
		rows = append(rows, models.SignatureRow{
			Time:         rec.Time,
			Length:       rec.Length,
			Direction:    rec.Direction,
			TimeInterval: rec.TimeInterval,
			ProtocolType: rec.ProtocolType(),
			Payload:      rec.Payload(),
			Label:        label,
		})
	}
	return rows
}

// Reads a 7-column feature or signature CSV.
func ReadFeatureCSV(path string) ([]models.SignatureRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	raw, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedCSV, path, err)
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

	rows := make([]models.SignatureRow, 0, len(raw)-1)
	for _, rec := range raw[1:] {
		var row models.SignatureRow
		if row.Time, err = parseFloatCell(cell(rec, "frame.time_epoch")); err != nil {
			return nil, fmt.Errorf("%w: %s: bad frame.time_epoch: %v", ErrMalformedCSV, path, err)
		}
		if row.Length, err = parseIntCell(cell(rec, "frame.len")); err != nil {
			return nil, fmt.Errorf("%w: %s: bad frame.len: %v", ErrMalformedCSV, path, err)
		}
		if row.Direction, err = parseIntCell(cell(rec, "direction")); err != nil {
			return nil, fmt.Errorf("%w: %s: bad direction: %v", ErrMalformedCSV, path, err)
		}
		row.TimeInterval, _ = parseFloatCell(cell(rec, "time_interval"))
		row.ProtocolType = cell(rec, "protocol_type")
		row.Payload = cell(rec, "payload")
		row.Label = cell(rec, "label")
		rows = append(rows, row)
	}
	return rows, nil
}

// Writes feature rows in canonical column order.
func WriteFeatureCSV(path string, rows []models.SignatureRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(FeatureColumns); err != nil {
		return err
	}
	for i := range rows {
		if err := w.Write(featureCells(&rows[i])); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// CSV cells of one feature row, column order of FeatureColumns.
func featureCells(row *models.SignatureRow) []string {
	return []string{
		strconv.FormatFloat(row.Time, 'f', 9, 64),
		strconv.Itoa(row.Length),
		strconv.Itoa(row.Direction),
		strconv.FormatFloat(row.TimeInterval, 'f', 6, 64),
		row.ProtocolType,
		row.Payload,
		row.Label,
	}
}
