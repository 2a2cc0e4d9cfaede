/**
 * Record CSV Codec.
 *
 * Reads 22-column feature CSVs back into typed records. Header-driven:
 * columns are located by name so files produced under a degraded field
 * table still parse. A file whose header or typed cells cannot be
 * parsed is a MalformedCSV file-level failure.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package features

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kleaSCM/iotscope/internal/models"
)

// Reported when a downstream reader cannot parse an upstream artifact.
var ErrMalformedCSV = errors.New("malformed csv artifact")

// Reads a feature CSV into records. Rows keep file order (the capture's
// time order).
func ReadRecordCSV(path string) ([]models.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedCSV, path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[name] = i
	}
	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	records := make([]models.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		var rec models.Record
		rec.Time, err = parseFloatCell(cell(row, "frame.time_epoch"))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: bad frame.time_epoch: %v", ErrMalformedCSV, path, err)
		}
		rec.Length, err = parseIntCell(cell(row, "frame.len"))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: bad frame.len: %v", ErrMalformedCSV, path, err)
		}
		rec.Direction, err = parseIntCell(cell(row, "direction"))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: bad direction: %v", ErrMalformedCSV, path, err)
		}
		rec.TimeInterval, _ = parseFloatCell(cell(row, "time_interval"))

		rec.Protocols = cell(row, "frame.protocols")
		rec.EthSrc = cell(row, "eth.src")
		rec.EthDst = cell(row, "eth.dst")
		rec.IPSrc = cell(row, "ip.src")
		rec.IPDst = cell(row, "ip.dst")
		rec.IPLen = cell(row, "ip.len")
		rec.TCPLen = cell(row, "tcp.len")
		rec.UDPLen = cell(row, "udp.length")
		rec.IPTTL = cell(row, "ip.ttl")
		rec.TCPSrcPort = cell(row, "tcp.srcport")
		rec.TCPDstPort = cell(row, "tcp.dstport")
		rec.UDPSrcPort = cell(row, "udp.srcport")
		rec.UDPDstPort = cell(row, "udp.dstport")
		rec.TCPFlags = cell(row, "tcp.flags")
		rec.TLSContentType = normalizeNumericCell(cell(row, "tls.record.content_type"))
		rec.TCPWindowSize = cell(row, "tcp.window_size")
		rec.TCPPayload = cell(row, "tcp.payload")
		rec.UDPPayload = cell(row, "udp.payload")

		records = append(records, rec)
	}
	return records, nil
}

// Writes records back out in the canonical 22-column order.
func WriteRecordCSV(path string, records []models.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := make([]string, 0, 22)
	for _, fld := range DecoderFields() {
		header = append(header, fld.Name)
	}
	header = append(header, "direction", "time_interval")
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range records {
		rec := &records[i]
		row := []string{
			strconv.FormatFloat(rec.Time, 'f', 9, 64),
			rec.Protocols,
			strconv.Itoa(rec.Length),
			rec.EthSrc,
			rec.EthDst,
			rec.IPSrc,
			rec.IPDst,
			rec.IPLen,
			rec.TCPLen,
			rec.UDPLen,
			rec.IPTTL,
			rec.TCPSrcPort,
			rec.TCPDstPort,
			rec.UDPSrcPort,
			rec.UDPDstPort,
			rec.TCPFlags,
			rec.TLSContentType,
			rec.TCPWindowSize,
			rec.TCPPayload,
			rec.UDPPayload,
			strconv.Itoa(rec.Direction),
			strconv.FormatFloat(rec.TimeInterval, 'f', 6, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// Parses a possibly empty numeric cell; empty parses to 0.
func parseFloatCell(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseIntCell(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	// Tolerate float-formatted integers from older artifacts.
	if strings.Contains(s, ".") {
		v, err := strconv.ParseFloat(s, 64)
		return int(v), err
	}
	return strconv.Atoi(s)
}

// Normalises numeric cells that older artifacts stored float-formatted
// ("23.0" → "23").
func normalizeNumericCell(s string) string {
	return strings.TrimSuffix(s, ".0")
}
