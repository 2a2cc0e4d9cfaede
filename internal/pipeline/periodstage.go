/**
 * Periodicity Stage.
 *
 * Runs the periodicity analyser over every session capture under
 * 3_selectDir, in place: a periodic session becomes a directory of
 * period-aligned sample captures plus record.txt; a session without an
 * acceptable period is deleted.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kleaSCM/iotscope/internal/capture"
	"github.com/kleaSCM/iotscope/internal/period"
	"golang.org/x/sync/errgroup"
)

// Analyses and slices every session capture. Each session is one unit
// of sequential work; sessions run concurrently.
func (p *Pipeline) AnalyzePeriods(ctx context.Context) (*Report, error) {
	started := time.Now()
	report := NewReport("period")

	sessions, err := listFiles(p.dir(DirSelect), ".pcap")
	if err != nil {
		return report, err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for _, sessionPath := range sessions {
		sessionPath := sessionPath
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := p.analyzeSession(sessionPath); err != nil {
				report.Failed(sessionPath, err)
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

// Analyses one session capture: binarise, score, choose, slice. The
// source capture is always removed, replaced by its sample directory
// when periodic, discarded otherwise.
func (p *Pipeline) analyzeSession(sessionPath string) error {
	packets, link, err := capture.ReadAll(sessionPath)
	if err != nil {
		return err
	}

	times := make([]float64, len(packets))
	for i, pkt := range packets {
		times[i] = float64(pkt.Info.Timestamp.UnixNano()) / 1e9
	}

	result := period.Analyze(period.Binarize(times))
	if result.Best == nil {
		p.log.Info("session has no acceptable period, deleting", "session", sessionPath)
		return os.Remove(sessionPath)
	}

	sessionDir := strings.TrimSuffix(sessionPath, ".pcap")
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return err
	}
	if err := period.WriteRecord(filepath.Join(sessionDir, period.RecordFileName), result); err != nil {
		return err
	}

	samples, err := period.SplitByPeriod(packets, link, result.Best.Period, sessionDir)
	if err != nil {
		return err
	}
	p.log.Debug("session sliced",
		"session", sessionPath,
		"period", result.Best.Period,
		"r", result.Best.Score.R,
		"rn", result.Best.Score.RN,
		"samples", samples)

	return os.Remove(sessionPath)
}
