/**
 * Match Stage.
 *
 * Streams test captures against the signature bank: one matcher
 * instance per test capture (worker pool), verdicts gathered into
 * matching_results.csv and optionally persisted.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package pipeline

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/kleaSCM/iotscope/internal/capture"
	"github.com/kleaSCM/iotscope/internal/matcher"
	"github.com/kleaSCM/iotscope/internal/models"
	"github.com/kleaSCM/iotscope/internal/parser"
	"github.com/kleaSCM/iotscope/internal/signature"
	"golang.org/x/sync/errgroup"
)

// Verdicts of one test capture.
type captureVerdicts struct {
	capture  string
	verdicts []matcher.Verdict
}

// Matches every test capture under testDir against the bank at
// bankPath and writes the verdict CSV to outPath.
func (p *Pipeline) Match(ctx context.Context, bankPath, testDir, outPath string) (*Report, error) {
	started := time.Now()
	report := NewReport("match")

	bank, err := signature.LoadBank(bankPath)
	if err != nil {
		return report, err
	}
	p.log.Info("signature bank loaded", "devices", len(bank.Devices), "file", bankPath)

	captures, err := listFiles(testDir, ".pcap")
	if err != nil {
		return report, err
	}

	var (
		mu      sync.Mutex
		results []captureVerdicts
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for _, pcapPath := range captures {
		pcapPath := pcapPath
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			verdicts, err := p.matchCapture(pcapPath, bank)
			if err != nil {
				report.Failed(pcapPath, err)
				return nil
			}
			mu.Lock()
			results = append(results, captureVerdicts{capture: pcapPath, verdicts: verdicts})
			mu.Unlock()
			report.Ok()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].capture < results[j].capture })
	if err := p.writeMatchResults(outPath, results); err != nil {
		return report, err
	}
	return p.finishStage(report, started), nil
}

// Streams one capture through a fresh matcher. Matcher state lives for
// exactly this capture.
func (p *Pipeline) matchCapture(pcapPath string, bank *models.SignatureBank) ([]matcher.Verdict, error) {
	src, err := capture.OpenFile(pcapPath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	m := matcher.New(bank)
	for {
		pkt, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		d, err := parser.Decode(pkt, src.LinkType())
		if err != nil {
			p.log.Warn("skipping malformed frame", "file", pcapPath, "error", err)
			continue
		}

		direction := 0
		if d.Eth != nil {
			direction = p.devices.Direction(d.Eth.SrcMAC.String(), d.Eth.DstMAC.String())
		}
		m.Feed(matcher.TestPacket{
			Length:    len(pkt.Data),
			Direction: direction,
			Proto:     protocolOf(d),
		})
	}

	verdicts := m.Verdicts()
	if p.metrics != nil {
		for _, v := range verdicts {
			if v.Matched {
				p.metrics.DevicesMatched.Inc()
			}
		}
	}
	return verdicts, nil
}

// Transport class of a decoded test frame.
func protocolOf(d *parser.Decoded) string {
	switch {
	case d.TCP != nil:
		return models.ProtoTCP
	case d.UDP != nil:
		return models.ProtoUDP
	}
	return models.ProtoUnknown
}

// Writes the verdict CSV: capture, device_name, match_result. Devices
// keep bank order within each capture.
func (p *Pipeline) writeMatchResults(outPath string, results []captureVerdicts) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"capture", "device_name", "match_result"}); err != nil {
		return err
	}
	for _, res := range results {
		name := filepath.Base(res.capture)
		for _, v := range res.verdicts {
			if err := w.Write([]string{name, v.Device, strconv.FormatBool(v.Matched)}); err != nil {
				return err
			}
			if p.store != nil {
				if err := p.store.SaveMatchResult(p.runID, name, v.Device, v.Matched); err != nil {
					return err
				}
			}
		}
	}
	w.Flush()
	return w.Error()
}
