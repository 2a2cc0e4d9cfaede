/**
 * Pipeline Core.
 *
 * Holds the shared run state (configuration, logger, device table,
 * optional GeoIP / metrics / storage) plus the artifact directory
 * layout, the per-stage report bookkeeping, and the filesystem walking
 * helpers every stage uses. Each stage reads the previous stage's
 * artifact directory and writes its own; a failing file never aborts a
 * stage.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kleaSCM/iotscope/internal/config"
	"github.com/kleaSCM/iotscope/internal/enricher"
	"github.com/kleaSCM/iotscope/internal/metrics"
	"github.com/kleaSCM/iotscope/internal/storage"
)

// Artifact directories, relative to the run root. Numbering is the
// historical stage order; gaps mark stages folded into their
// predecessor.
const (
	DirInput             = "1_input"
	DirOutput            = "2_output"
	DirSelect            = "3_selectDir"
	DirSuitable          = "4_suitableDir"
	DirCSV               = "5_csv"
	DirCSVFilter         = "7_csvFilter"
	DirCSVSelect         = "8_csvSelect"
	DirFeature           = "9_feature"
	DirFeatureMerge      = "10_featureMerge"
	DirFeatureCluster    = "11_featureCluster"
	DirClusterFilter     = "12_featureClusterFilter"
	DirKeyPacketStats    = "13_keyPacketStatistics"
	DirKeyPacketMerge    = "14_keyPacketMerge"
	DirSignature         = "15_keyPacketSignature"
	DirSignatureLSH      = "16_keyPacketSignatureWithLSH"
	DirSignatureMerge    = "17_signatureMerge"
	PeriodRecordFileName = "period_record.txt"
	MatchResultsFileName = "matching_results.csv"
)

// Names the empty-artifact condition. No stage returns it: empty derived
// artifacts are skipped or deleted, and that is not an error.
var ErrEmptyArtifact = errors.New("derived artifact is empty")

// Coordinates a pipeline run over one artifact root.
type Pipeline struct {
	cfg     *config.Config
	log     *slog.Logger
	devices *enricher.DeviceTable
	geo     *enricher.GeoIPService
	metrics *metrics.Collector
	store   storage.Storage
	runID   string
}

// Creates a pipeline. geo, collector, and store are optional and may be
// nil.
func New(cfg *config.Config, log *slog.Logger, geo *enricher.GeoIPService,
	collector *metrics.Collector, store storage.Storage) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		log:     log,
		devices: enricher.NewDeviceTable(cfg.Devices),
		geo:     geo,
		metrics: collector,
		store:   store,
		runID:   uuid.NewString()[:8],
	}
}

// Identifier of this run, used as the merged-artifact prefix.
func (p *Pipeline) RunID() string {
	return p.runID
}

// Absolute path of an artifact directory.
func (p *Pipeline) dir(name string) string {
	return filepath.Join(p.cfg.RunRoot, name)
}

// One file-level failure of a stage.
type FileFailure struct {
	Path string
	Err  error
}

// Per-stage outcome summary: total, ok, fail, plus the collected
// failures for pipeline-global reporting.
type Report struct {
	Stage    string
	Total    int
	OK       int
	Fail     int
	Failures []FileFailure

	mu sync.Mutex
}

// Creates an empty report for a stage.
func NewReport(stage string) *Report {
	return &Report{Stage: stage}
}

// Records one successful file.
func (r *Report) Ok() {
	r.mu.Lock()
	r.Total++
	r.OK++
	r.mu.Unlock()
}

// Records one failed file.
func (r *Report) Failed(path string, err error) {
	r.mu.Lock()
	r.Total++
	r.Fail++
	r.Failures = append(r.Failures, FileFailure{Path: path, Err: err})
	r.mu.Unlock()
}

// Logs the stage summary and feeds the metrics collector.
func (p *Pipeline) finishStage(report *Report, started time.Time) *Report {
	elapsed := time.Since(started)
	p.metrics.ObserveStage(report.Stage, elapsed.Seconds())
	for range report.Failures {
		p.metrics.ObserveFile(report.Stage, false)
	}
	for i := 0; i < report.OK; i++ {
		p.metrics.ObserveFile(report.Stage, true)
	}

	p.log.Info("stage complete",
		"stage", report.Stage,
		"total", report.Total,
		"ok", report.OK,
		"fail", report.Fail,
		"elapsed", elapsed.String())
	for _, f := range report.Failures {
		p.log.Warn("stage file failure", "stage", report.Stage, "file", f.Path, "error", f.Err)
	}
	return report
}

// Lists every file under root whose name has the given extension,
// sorted by path. A missing root yields an empty list.
func listFiles(root, ext string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ext) {
			files = append(files, path)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Lists every directory under root that directly contains at least one
// file with the given extension, sorted by path.
func listDirsContaining(root, ext string) ([]string, error) {
	seen := make(map[string]struct{})
	files, err := listFiles(root, ext)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		seen[filepath.Dir(f)] = struct{}{}
	}
	dirs := make([]string, 0, len(seen))
	for d := range seen {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// Names of the files directly inside dir with the given extension,
// sorted.
func dirFileNames(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ext) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Copies one file preserving contents.
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

// Copies a directory tree.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

// First path element of path relative to root: the device directory
// name in every artifact tree.
func deviceOf(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) == 0 || parts[0] == "." {
		return "", fmt.Errorf("path %s has no device component under %s", path, root)
	}
	return parts[0], nil
}

// Splits a merged-session name "<session>___<N>" into the session name
// and its sample count.
func splitSessionSuffix(name string) (string, int) {
	idx := strings.LastIndex(name, "___")
	if idx < 0 {
		return name, 0
	}
	var n int
	fmt.Sscanf(name[idx+3:], "%d", &n)
	return name[:idx], n
}
