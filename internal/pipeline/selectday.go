/**
 * Best-Day Selection Stage.
 *
 * For each device under 2_output, copies the capture-day subtree with
 * the most session files to 3_selectDir. Ties break to the
 * lexicographically smaller day name.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package pipeline

import (
	"os"
	"path/filepath"
	"time"
)

// Selects each device's richest capture day.
func (p *Pipeline) SelectBestDay() (*Report, error) {
	started := time.Now()
	report := NewReport("selectday")

	outputRoot := p.dir(DirOutput)
	devices, err := os.ReadDir(outputRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return p.finishStage(report, started), nil
		}
		return report, err
	}

	for _, dev := range devices {
		if !dev.IsDir() {
			continue
		}
		devicePath := filepath.Join(outputRoot, dev.Name())

		day, err := bestDay(devicePath)
		if err != nil {
			report.Failed(devicePath, err)
			continue
		}
		if day == "" {
			p.log.Warn("device has no sessions, skipping", "device", dev.Name())
			continue
		}

		dst := filepath.Join(p.dir(DirSelect), dev.Name(), day)
		if err := os.RemoveAll(dst); err != nil {
			report.Failed(devicePath, err)
			continue
		}
		if err := copyTree(filepath.Join(devicePath, day), dst); err != nil {
			report.Failed(devicePath, err)
			continue
		}
		p.log.Debug("selected capture day", "device", dev.Name(), "day", day)
		report.Ok()
	}

	return p.finishStage(report, started), nil
}

// Finds the immediate subdirectory of devicePath whose subtree holds
// the most session pcaps. Ties resolve to the smaller name; "" when no
// subdirectory has any.
func bestDay(devicePath string) (string, error) {
	entries, err := os.ReadDir(devicePath)
	if err != nil {
		return "", err
	}

	best := ""
	bestCount := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		files, err := listFiles(filepath.Join(devicePath, e.Name()), ".pcap")
		if err != nil {
			return "", err
		}
		// ReadDir yields sorted names, so a strict > keeps the
		// lexicographically smaller day on ties.
		if len(files) > bestCount {
			bestCount = len(files)
			best = e.Name()
		}
	}
	if bestCount == 0 {
		return "", nil
	}
	return best, nil
}
