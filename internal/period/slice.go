/**
 * Period Slicer.
 *
 * Splits a periodic session capture into successive sample captures,
 * one per period window [start + kP, start + (k+1)P). Every packet is
 * routed to the bucket containing its timestamp; a packet at exactly
 * start + kP opens bucket k.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package period

import (
	"fmt"
	"path/filepath"

	"github.com/google/gopacket/layers"
	"github.com/kleaSCM/iotscope/internal/capture"
)

// Writes one sample capture per non-empty period window under outDir,
// named output_<windowStart>.pcap. Returns the number of sample files
// written. Packets must be ordered by timestamp.
func SplitByPeriod(packets []capture.RawPacket, link layers.LinkType, periodSeconds int, outDir string) (int, error) {
	if len(packets) == 0 || periodSeconds <= 0 {
		return 0, nil
	}

	start := epochSeconds(packets[0])
	var (
		current *capture.FileWriter
		bucket  = -1
		files   int
	)

	closeCurrent := func() error {
		if current == nil {
			return nil
		}
		err := current.Close()
		current = nil
		return err
	}

	for _, pkt := range packets {
		k := int((epochSeconds(pkt) - start) / float64(periodSeconds))
		if k < 0 {
			k = 0
		}
		if k != bucket {
			if err := closeCurrent(); err != nil {
				return files, err
			}
			windowStart := int64(start + float64(k*periodSeconds))
			path := filepath.Join(outDir, fmt.Sprintf("output_%d.pcap", windowStart))
			w, err := capture.NewFileWriter(path, link)
			if err != nil {
				return files, err
			}
			current = w
			bucket = k
			files++
		}
		if err := current.Write(pkt); err != nil {
			closeCurrent()
			return files, err
		}
	}

	return files, closeCurrent()
}

// Capture timestamp as epoch seconds.
func epochSeconds(pkt capture.RawPacket) float64 {
	return float64(pkt.Info.Timestamp.UnixNano()) / 1e9
}
