/**
 * Test Capture Preparation.
 *
 * Splits a mixed test capture into one capture per registered device by
 * matching either MAC address against the device table, so each device
 * stream can be matched independently.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package pipeline

import (
	"io"
	"path/filepath"
	"time"

	"github.com/kleaSCM/iotscope/internal/capture"
	"github.com/kleaSCM/iotscope/internal/parser"
)

// Splits one mixed capture into per-device captures under outDir, named
// <device>.pcap. Frames whose MACs match no registered device are
// dropped.
func (p *Pipeline) SplitTestCapture(pcapPath, outDir string) (*Report, error) {
	started := time.Now()
	report := NewReport("testsplit")

	src, err := capture.OpenFile(pcapPath)
	if err != nil {
		return report, err
	}
	defer src.Close()

	writers := make(map[string]*capture.FileWriter)
	defer func() {
		for _, w := range writers {
			w.Close()
		}
	}()

	for {
		pkt, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			report.Failed(pcapPath, err)
			return p.finishStage(report, started), nil
		}

		d, err := parser.Decode(pkt, src.LinkType())
		if err != nil || d.Eth == nil {
			continue
		}

		device, ok := p.devices.DeviceFor(d.Eth.SrcMAC.String())
		if !ok {
			device, ok = p.devices.DeviceFor(d.Eth.DstMAC.String())
		}
		if !ok {
			continue
		}

		w, exists := writers[device]
		if !exists {
			w, err = capture.NewFileWriter(filepath.Join(outDir, device+".pcap"), src.LinkType())
			if err != nil {
				report.Failed(pcapPath, err)
				return p.finishStage(report, started), nil
			}
			writers[device] = w
		}
		if err := w.Write(pkt); err != nil {
			report.Failed(pcapPath, err)
			return p.finishStage(report, started), nil
		}
	}

	p.log.Info("test capture split", "capture", pcapPath, "devices", len(writers))
	report.Ok()
	return p.finishStage(report, started), nil
}
