/**
 * Signature Stages.
 *
 * Signature extraction against the mined key multisets
 * (→ 15_keyPacketSignature), the payload LSH rewrite
 * (→ 16_keyPacketSignatureWithLSH), and the run-wide signature merge
 * (→ 17_signatureMerge) with optional SQLite persistence.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/kleaSCM/iotscope/internal/features"
	"github.com/kleaSCM/iotscope/internal/models"
	"github.com/kleaSCM/iotscope/internal/signature"
)

// Extracts one signature per mined session: the first sample (ascending
// file order) whose packets exactly realise the key multiset.
func (p *Pipeline) ExtractSignatures() (*Report, error) {
	started := time.Now()
	report := NewReport("sign")

	mergedPath := filepath.Join(p.dir(DirKeyPacketMerge), p.runID+"_merged_results.csv")
	stats, err := signature.LoadMergedStats(mergedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return p.finishStage(report, started), nil
		}
		return report, err
	}

	for _, entry := range stats {
		sessionName, _ := splitSessionSuffix(entry.Session)
		sessionDir, err := p.findSessionDir(entry.Device, sessionName)
		if err != nil {
			report.Failed(sessionName, err)
			continue
		}
		if sessionDir == "" {
			p.log.Warn("no feature directory for mined session",
				"device", entry.Device, "session", sessionName)
			continue
		}

		names, err := dirFileNames(sessionDir, ".csv")
		if err != nil {
			report.Failed(sessionDir, err)
			continue
		}

		rows, err := signature.ExtractSignature(names, func(name string) ([]models.SignatureRow, error) {
			return features.ReadFeatureCSV(filepath.Join(sessionDir, name))
		}, entry.Distribution)
		if errors.Is(err, signature.ErrUnmatchedKeyMultiset) {
			p.log.Warn("no sample realises the key multiset",
				"device", entry.Device, "session", sessionName)
			continue
		}
		if err != nil {
			report.Failed(sessionDir, err)
			continue
		}

		out := filepath.Join(p.dir(DirSignature), entry.Device, sessionName+".csv")
		if err := features.WriteFeatureCSV(out, rows); err != nil {
			report.Failed(out, err)
			continue
		}
		report.Ok()
	}

	return p.finishStage(report, started), nil
}

// Locates the feature directory of a session by its base name under the
// device's 9_feature subtree.
func (p *Pipeline) findSessionDir(device, sessionName string) (string, error) {
	root := filepath.Join(p.dir(DirFeature), device)
	found := ""
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == sessionName {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	return found, err
}

// Rewrites every signature's payload column with its 256-bit Nilsimsa
// hash: 15_keyPacketSignature → 16_keyPacketSignatureWithLSH.
func (p *Pipeline) ApplyLSH() (*Report, error) {
	started := time.Now()
	report := NewReport("lsh")

	files, err := listFiles(p.dir(DirSignature), ".csv")
	if err != nil {
		return report, err
	}

	for _, path := range files {
		rel, err := filepath.Rel(p.dir(DirSignature), path)
		if err != nil {
			report.Failed(path, err)
			continue
		}
		rows, err := features.ReadFeatureCSV(path)
		if err != nil {
			report.Failed(path, err)
			continue
		}
		signature.ApplyLSH(rows, p.cfg.Signature.ZeroRunLength)
		if err := features.WriteFeatureCSV(filepath.Join(p.dir(DirSignatureLSH), rel), rows); err != nil {
			report.Failed(path, err)
			continue
		}
		report.Ok()
	}

	return p.finishStage(report, started), nil
}

// Merges the hashed signatures into the matcher's bank file and, when a
// store is configured, persists them.
func (p *Pipeline) MergeSignatureBank() (*Report, error) {
	started := time.Now()
	report := NewReport("mergesig")

	out := filepath.Join(p.dir(DirSignatureMerge), p.runID+"_merged_signatures.csv")
	merged, err := signature.MergeSignatures(p.dir(DirSignatureLSH), out)
	if err != nil {
		if os.IsNotExist(err) {
			return p.finishStage(report, started), nil
		}
		report.Failed(out, err)
		return p.finishStage(report, started), nil
	}
	if p.metrics != nil {
		p.metrics.Signatures.Set(float64(merged))
	}
	p.log.Info("signatures merged", "signatures", merged, "file", out)
	report.Ok()

	if p.store != nil {
		bank, err := signature.LoadBank(out)
		if err != nil {
			report.Failed(out, err)
			return p.finishStage(report, started), nil
		}
		for _, device := range bank.Devices {
			for _, sig := range bank.Entries[device] {
				if err := p.store.SaveSignature(sig); err != nil {
					report.Failed(fmt.Sprintf("%s/%s", sig.Device, sig.Session), err)
				}
			}
		}
	}

	return p.finishStage(report, started), nil
}

// The merged signature file of this run.
func (p *Pipeline) MergedSignaturePath() string {
	return filepath.Join(p.dir(DirSignatureMerge), p.runID+"_merged_signatures.csv")
}

// Finds the newest merged signature file under 17_signatureMerge when
// no explicit bank path is given.
func (p *Pipeline) LatestSignaturePath() (string, error) {
	files, err := listFiles(p.dir(DirSignatureMerge), "_merged_signatures.csv")
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no merged signature file under %s", p.dir(DirSignatureMerge))
	}

	newest := files[0]
	newestTime := time.Time{}
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			return "", err
		}
		if info.ModTime().After(newestTime) {
			newestTime = info.ModTime()
			newest = f
		}
	}
	return newest, nil
}

