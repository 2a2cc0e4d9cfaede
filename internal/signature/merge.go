/**
 * Signature Merge Artifact.
 *
 * Collects every per-session signature CSV into the run-wide merged
 * file the matcher consumes: device_name, session_name, and the
 * signature rows serialised as a JSON array.
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

// Merges every <device>/<session>.csv under sigDir into outPath.
// Devices and sessions are visited in sorted order, which fixes the
// bank's device insertion order. Returns the number of merged
// signatures.
func MergeSignatures(sigDir, outPath string) (int, error) {
	devices, err := os.ReadDir(sigDir)
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
	if err := w.Write([]string{"device_name", "session_name", "signature"}); err != nil {
		return 0, err
	}

	merged := 0
	for _, dev := range devices {
		if !dev.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(sigDir, dev.Name()))
		if err != nil {
			return merged, err
		}
		names := make([]string, 0, len(files))
		for _, f := range files {
			if !f.IsDir() && filepath.Ext(f.Name()) == ".csv" {
				names = append(names, f.Name())
			}
		}
		sort.Strings(names)

		for _, name := range names {
			rows, err := features.ReadFeatureCSV(filepath.Join(sigDir, dev.Name(), name))
			if err != nil {
				return merged, err
			}
			blob, err := json.Marshal(rows)
			if err != nil {
				return merged, err
			}
			if err := w.Write([]string{dev.Name(), name, string(blob)}); err != nil {
				return merged, err
			}
			merged++
		}
	}

	w.Flush()
	return merged, w.Error()
}

// Loads the merged signature CSV into a bank. Row order in the file
// fixes device insertion order. Signatures with no rows are rejected.
func LoadBank(path string) (*models.SignatureBank, error) {
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

	bank := models.NewSignatureBank()
	for i, rec := range raw {
		if i == 0 {
			continue
		}
		var rows []models.SignatureRow
		if err := json.Unmarshal([]byte(rec[2]), &rows); err != nil {
			return nil, fmt.Errorf("%w: %s: bad signature cell: %v", features.ErrMalformedCSV, path, err)
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("%w: %s: empty signature for %s/%s", features.ErrMalformedCSV, path, rec[0], rec[1])
		}
		bank.Add(&models.Signature{Device: rec[0], Session: rec[1], Rows: rows})
	}
	return bank, nil
}
