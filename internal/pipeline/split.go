/**
 * Session Split Stage.
 *
 * Runs the session splitter over every input capture with a worker
 * pool: 1_input/<device>/<day>/*.pcap becomes
 * 2_output/<device>/<day>/<capname>/*.pcap plus a sessions.csv summary.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/kleaSCM/iotscope/internal/splitter"
	"golang.org/x/sync/errgroup"
)

// Splits every input capture into duration-filtered sessions. File
// failures are collected, never fatal.
func (p *Pipeline) SplitSessions(ctx context.Context) (*Report, error) {
	started := time.Now()
	report := NewReport("split")

	captures, err := listFiles(p.dir(DirInput), ".pcap")
	if err != nil {
		return report, err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for _, pcapPath := range captures {
		pcapPath := pcapPath
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			rel, err := filepath.Rel(p.dir(DirInput), pcapPath)
			if err != nil {
				report.Failed(pcapPath, err)
				return nil
			}
			stem := strings.TrimSuffix(rel, ".pcap")
			outDir := filepath.Join(p.dir(DirOutput), stem)

			emitted, err := splitter.SplitCapture(pcapPath, outDir, p.cfg.Split.DurationFraction, p.geo, p.log)
			if err != nil {
				report.Failed(pcapPath, err)
				return nil
			}
			if p.metrics != nil {
				p.metrics.SessionsEmitted.Add(float64(emitted))
			}
			p.log.Debug("capture split", "capture", pcapPath, "sessions", emitted)
			report.Ok()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}
	return p.finishStage(report, started), nil
}
