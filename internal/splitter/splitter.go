/**
 * Session Splitter.
 *
 * Decomposes one capture into bidirectional 5-tuple sessions. A single
 * streaming pass groups retained frames per canonical flow key; on
 * exhaustion, sessions lasting at least the configured fraction of the
 * capture's span are written out as per-session captures, with a
 * GeoIP-enriched summary row each.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package splitter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/kleaSCM/iotscope/internal/capture"
	"github.com/kleaSCM/iotscope/internal/enricher"
	"github.com/kleaSCM/iotscope/internal/models"
	"github.com/kleaSCM/iotscope/internal/parser"
)

// Per-capture session summary artifact.
const SummaryFileName = "sessions.csv"

// Accumulates one flow during the splitting pass.
type flowState struct {
	key     models.FlowKey
	packets []capture.RawPacket
	summary models.SessionSummary
}

// Splits one capture into session pcaps under outDir. Sessions shorter
// than fraction × capture-span are dropped. Returns the number of
// sessions emitted; an empty capture emits nothing and is not an error.
func SplitCapture(pcapPath, outDir string, fraction float64, geo *enricher.GeoIPService, log *slog.Logger) (int, error) {
	src, err := capture.OpenFile(pcapPath)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	flows := make(map[models.FlowKey]*flowState)
	var order []models.FlowKey
	var firstSeen, lastSeen time.Time
	sawPacket := false

	for {
		pkt, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read %s: %w", pcapPath, err)
		}

		if !sawPacket {
			firstSeen = pkt.Info.Timestamp
			sawPacket = true
		}
		lastSeen = pkt.Info.Timestamp

		d, err := parser.Decode(pkt, src.LinkType())
		if err != nil {
			log.Warn("skipping malformed frame", "file", pcapPath, "error", err)
			continue
		}
		key, ok := d.FlowKey()
		if !ok {
			continue // only IP packets carrying TCP or UDP are sessionised
		}

		fs, exists := flows[key]
		if !exists {
			fs = &flowState{key: key}
			fs.summary.Key = key
			fs.summary.FirstSeen = pkt.Info.Timestamp
			flows[key] = fs
			order = append(order, key)
		}
		fs.packets = append(fs.packets, pkt)
		fs.summary.LastSeen = pkt.Info.Timestamp
		fs.summary.PacketCount++
		fs.summary.ByteCount += uint64(len(pkt.Data))
	}

	if !sawPacket || len(flows) == 0 {
		return 0, nil
	}

	threshold := lastSeen.Sub(firstSeen).Seconds() * fraction

	var summaries []models.SessionSummary
	emitted := 0
	for _, key := range order {
		fs := flows[key]
		if fs.summary.Duration() < threshold {
			continue
		}

		path := filepath.Join(outDir, key.FileStem()+".pcap")
		if err := capture.WriteFile(path, src.LinkType(), fs.packets); err != nil {
			return emitted, err
		}
		emitted++

		enrichSummary(&fs.summary, geo)
		summaries = append(summaries, fs.summary)
	}

	if emitted > 0 {
		if err := writeSummaries(filepath.Join(outDir, SummaryFileName), summaries); err != nil {
			return emitted, err
		}
	}
	return emitted, nil
}

// Picks the session's remote (public) endpoint and annotates it with
// GeoIP data when a service is configured.
func enrichSummary(s *models.SessionSummary, geo *enricher.GeoIPService) {
	remote := s.Key.DstIP
	if enricher.IsPrivateIP(remote) && !enricher.IsPrivateIP(s.Key.SrcIP) {
		remote = s.Key.SrcIP
	}
	s.RemoteIP = remote

	data, err := geo.Lookup(remote)
	if err != nil || data == nil {
		return
	}
	s.RemoteCountry = data.Country
	s.RemoteCity = data.City
	s.RemoteASN = data.ASN
}

// Writes the per-capture session summary CSV, sessions in first-seen
// order.
func writeSummaries(path string, summaries []models.SessionSummary) error {
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].FirstSeen.Before(summaries[j].FirstSeen)
	})

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"session", "first_seen", "last_seen", "duration_seconds",
		"packets", "bytes", "remote_ip", "remote_country", "remote_city", "remote_asn",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for i := range summaries {
		s := &summaries[i]
		row := []string{
			s.Key.FileStem(),
			strconv.FormatFloat(float64(s.FirstSeen.UnixNano())/1e9, 'f', 6, 64),
			strconv.FormatFloat(float64(s.LastSeen.UnixNano())/1e9, 'f', 6, 64),
			strconv.FormatFloat(s.Duration(), 'f', 6, 64),
			strconv.FormatUint(s.PacketCount, 10),
			strconv.FormatUint(s.ByteCount, 10),
			s.RemoteIP, s.RemoteCountry, s.RemoteCity, s.RemoteASN,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
