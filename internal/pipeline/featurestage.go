/**
 * Feature Stages.
 *
 * S4 extraction (sample pcap → 22-column record CSV, worker pool per
 * file), the S6 content filter, the deterministic sample cap, and the
 * 7-column feature projection.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package pipeline

import (
	"context"
	"hash/fnv"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kleaSCM/iotscope/internal/features"
	"golang.org/x/sync/errgroup"
)

// Extracts feature CSVs from every sample capture under 4_suitableDir.
func (p *Pipeline) ExtractFeatures(ctx context.Context) (*Report, error) {
	started := time.Now()
	report := NewReport("features")

	samples, err := listFiles(p.dir(DirSuitable), ".pcap")
	if err != nil {
		return report, err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for _, pcapPath := range samples {
		pcapPath := pcapPath
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rel, err := filepath.Rel(p.dir(DirSuitable), pcapPath)
			if err != nil {
				report.Failed(pcapPath, err)
				return nil
			}
			csvPath := filepath.Join(p.dir(DirCSV), strings.TrimSuffix(rel, ".pcap")+".csv")
			if err := features.ExtractFile(pcapPath, csvPath, p.devices, p.log); err != nil {
				report.Failed(pcapPath, err)
				return nil
			}
			report.Ok()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}
	return p.finishStage(report, started), nil
}

// Applies the per-sample content filter: 5_csv → 7_csvFilter. Empty
// filtered samples are dropped; sessions falling below the sample
// minimum are dropped entirely.
func (p *Pipeline) FilterCSV() (*Report, error) {
	started := time.Now()
	report := NewReport("csvfilter")

	sessionDirs, err := listDirsContaining(p.dir(DirCSV), ".csv")
	if err != nil {
		return report, err
	}

	for _, dir := range sessionDirs {
		rel, err := filepath.Rel(p.dir(DirCSV), dir)
		if err != nil {
			report.Failed(dir, err)
			continue
		}
		outDir := filepath.Join(p.dir(DirCSVFilter), rel)

		names, err := dirFileNames(dir, ".csv")
		if err != nil {
			report.Failed(dir, err)
			continue
		}

		kept := 0
		failed := false
		for _, name := range names {
			records, err := features.ReadRecordCSV(filepath.Join(dir, name))
			if err != nil {
				report.Failed(filepath.Join(dir, name), err)
				failed = true
				continue
			}
			filtered := features.FilterRecords(records)
			if len(filtered) == 0 {
				continue // empty artifact: dropped, not an error
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				report.Failed(outDir, err)
				failed = true
				break
			}
			if err := features.WriteRecordCSV(filepath.Join(outDir, name), filtered); err != nil {
				report.Failed(filepath.Join(outDir, name), err)
				failed = true
				continue
			}
			kept++
		}

		if kept > 0 && kept < p.cfg.Samples.Min {
			if err := os.RemoveAll(outDir); err != nil {
				report.Failed(outDir, err)
				continue
			}
			p.log.Info("session below sample minimum after filtering, deleted",
				"session", outDir, "samples", kept, "min", p.cfg.Samples.Min)
		}
		if !failed {
			report.Ok()
		}
	}

	return p.finishStage(report, started), nil
}

// Caps every session at the configured number of samples:
// 7_csvFilter → 8_csvSelect. Selection is a deterministic shuffle
// seeded from the session name, so reruns pick the same subset.
func (p *Pipeline) SelectSamples() (*Report, error) {
	started := time.Now()
	report := NewReport("csvselect")

	sessionDirs, err := listDirsContaining(p.dir(DirCSVFilter), ".csv")
	if err != nil {
		return report, err
	}

	for _, dir := range sessionDirs {
		rel, err := filepath.Rel(p.dir(DirCSVFilter), dir)
		if err != nil {
			report.Failed(dir, err)
			continue
		}
		names, err := dirFileNames(dir, ".csv")
		if err != nil {
			report.Failed(dir, err)
			continue
		}

		selected := names
		if len(names) > p.cfg.Samples.Cap {
			selected = sampleNames(names, p.cfg.Samples.Cap, filepath.Base(dir))
		}

		outDir := filepath.Join(p.dir(DirCSVSelect), rel)
		ok := true
		for _, name := range selected {
			if err := copyFile(filepath.Join(dir, name), filepath.Join(outDir, name)); err != nil {
				report.Failed(filepath.Join(dir, name), err)
				ok = false
			}
		}
		if ok {
			report.Ok()
		}
	}

	return p.finishStage(report, started), nil
}

// Picks n names with a shuffle seeded from the session name.
func sampleNames(names []string, n int, seedName string) []string {
	h := fnv.New64a()
	h.Write([]byte(seedName))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	shuffled := append([]string(nil), names...)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:n]
}

// Projects the selected 22-column samples onto 7-column feature rows:
// 8_csvSelect → 9_feature. The owning session directory name becomes
// the label column.
func (p *Pipeline) ProjectFeatures() (*Report, error) {
	started := time.Now()
	report := NewReport("project")

	csvs, err := listFiles(p.dir(DirCSVSelect), ".csv")
	if err != nil {
		return report, err
	}

	for _, path := range csvs {
		rel, err := filepath.Rel(p.dir(DirCSVSelect), path)
		if err != nil {
			report.Failed(path, err)
			continue
		}
		records, err := features.ReadRecordCSV(path)
		if err != nil {
			report.Failed(path, err)
			continue
		}
		label := filepath.Base(filepath.Dir(path))
		rows := features.ProjectRecords(records, label)
		if err := features.WriteFeatureCSV(filepath.Join(p.dir(DirFeature), rel), rows); err != nil {
			report.Failed(path, err)
			continue
		}
		report.Ok()
	}

	return p.finishStage(report, started), nil
}
