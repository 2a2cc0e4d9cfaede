/**
 * Sample Sufficiency Stage.
 *
 * Copies the periodic sessions from 3_selectDir to 4_suitableDir and
 * removes every session directory holding fewer sample captures than
 * the configured minimum. Afterwards the per-session period records are
 * rolled up into one period_record.txt.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kleaSCM/iotscope/internal/period"
)

// Keeps only sessions with enough period samples.
func (p *Pipeline) FilterSuitable() (*Report, error) {
	started := time.Now()
	report := NewReport("suitable")

	src := p.dir(DirSelect)
	dst := p.dir(DirSuitable)
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return p.finishStage(report, started), nil
		}
		return report, err
	}

	if err := os.RemoveAll(dst); err != nil {
		return report, err
	}
	if err := copyTree(src, dst); err != nil {
		return report, err
	}

	sessionDirs, err := listDirsContaining(dst, ".pcap")
	if err != nil {
		return report, err
	}
	for _, dir := range sessionDirs {
		names, err := dirFileNames(dir, ".pcap")
		if err != nil {
			report.Failed(dir, err)
			continue
		}
		if len(names) < p.cfg.Samples.Min {
			if err := os.RemoveAll(dir); err != nil {
				report.Failed(dir, err)
				continue
			}
			p.log.Info("session below sample minimum, deleted",
				"session", dir, "samples", len(names), "min", p.cfg.Samples.Min)
			continue
		}
		report.Ok()
	}

	if err := p.rollUpPeriods(dst); err != nil {
		return report, err
	}
	return p.finishStage(report, started), nil
}

// Aggregates the last line of every record.txt under root into
// period_record.txt, devices separated by a blank line.
func (p *Pipeline) rollUpPeriods(root string) error {
	records, err := listFiles(root, period.RecordFileName)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	var b strings.Builder
	previousDevice := ""
	for _, recordPath := range records {
		device, err := deviceOf(root, recordPath)
		if err != nil {
			return err
		}
		line, err := period.ReadRecordLastLine(recordPath)
		if err != nil {
			return err
		}
		if previousDevice != "" && previousDevice != device {
			b.WriteString("\n")
		}
		previousDevice = device

		session := filepath.Base(filepath.Dir(recordPath))
		fmt.Fprintf(&b, "%s %s %s\n", device, session, line)
	}

	return os.WriteFile(filepath.Join(root, PeriodRecordFileName), []byte(b.String()), 0o644)
}
