/**
 * Feature Extraction.
 *
 * Turns one sample capture into one feature CSV: every frame becomes a
 * 22-column record: the decoder field table plus the derived direction
 * (from the device ↔ MAC table) and time_interval columns. Implements
 * the degrade-and-retry protocol for refused fields.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package features

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kleaSCM/iotscope/internal/capture"
	"github.com/kleaSCM/iotscope/internal/enricher"
	"github.com/kleaSCM/iotscope/internal/parser"
)

// Reported when a file still fails after MaxDecodeAttempts degradations.
var ErrDecoderRejection = errors.New("decoder refused the file")

// Extracts one capture into one feature CSV. Fields the decoder refuses
// are removed (their cells left empty) and the file re-extracted, up to
// MaxDecodeAttempts times.
func ExtractFile(pcapPath, csvPath string, devices *enricher.DeviceTable, log *slog.Logger) error {
	fields := DecoderFields()
	disabled := make(map[string]bool)

	for attempt := 1; attempt <= MaxDecodeAttempts; attempt++ {
		offending, err := extractOnce(pcapPath, csvPath, fields, disabled, devices, log)
		if err != nil {
			return err
		}
		if offending == "" {
			return nil
		}
		log.Warn("decoder refused field, retrying without it",
			"file", pcapPath, "field", offending, "attempt", attempt)
		disabled[offending] = true
	}

	os.Remove(csvPath) // no stale partial artifact on failure
	return fmt.Errorf("%w after %d attempts: %s", ErrDecoderRejection, MaxDecodeAttempts, pcapPath)
}

// One extraction pass. Returns the name of the first refused field, or
// "" on success.
func extractOnce(pcapPath, csvPath string, fields []Field, disabled map[string]bool,
	devices *enricher.DeviceTable, log *slog.Logger) (string, error) {

	src, err := capture.OpenFile(pcapPath)
	if err != nil {
		return "", err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(csvPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create csv directory: %w", err)
	}
	out, err := os.Create(csvPath)
	if err != nil {
		return "", fmt.Errorf("failed to create csv: %w", err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	header := make([]string, 0, len(fields)+2)
	for _, f := range fields {
		header = append(header, f.Name)
	}
	header = append(header, "direction", "time_interval")
	if err := w.Write(header); err != nil {
		return "", err
	}

	var (
		prevTime float64
		first    = true
	)
	for {
		pkt, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", pcapPath, err)
		}

		d, err := parser.Decode(pkt, src.LinkType())
		if err != nil {
			log.Warn("skipping malformed frame", "file", pcapPath, "error", err)
			continue
		}

		row := make([]string, 0, len(fields)+2)
		for _, f := range fields {
			if disabled[f.Name] {
				row = append(row, "")
				continue
			}
			value, err := extractField(f, d)
			if err != nil {
				return f.Name, nil
			}
			row = append(row, value)
		}

		direction := 0
		if d.Eth != nil {
			direction = devices.Direction(d.Eth.SrcMAC.String(), d.Eth.DstMAC.String())
		}

		t := epoch(d)
		interval := 0.0
		if !first {
			interval = t - prevTime
		}
		prevTime = t
		first = false

		row = append(row, strconv.Itoa(direction), strconv.FormatFloat(interval, 'f', 6, 64))
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	return "", w.Error()
}
