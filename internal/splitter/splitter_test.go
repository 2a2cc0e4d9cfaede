/**
 * Session Splitter Tests.
 *
 * Verifies 5-tuple grouping, the duration-fraction filter, and the
 * idempotence of re-splitting a single-session capture.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package splitter

import (
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/kleaSCM/iotscope/internal/capture"
	"github.com/kleaSCM/iotscope/internal/enricher"
	"github.com/kleaSCM/iotscope/internal/models"
)

var testLog = slog.New(slog.NewTextHandler(io.Discard, nil))

// Serialises one UDP frame between the given endpoints.
func udpFrame(t *testing.T, srcMAC, dstMAC string, srcIP, dstIP string, srcPort, dstPort uint16, ts float64) capture.RawPacket {
	t.Helper()

	src, _ := net.ParseMAC(srcMAC)
	dst, _ := net.ParseMAC(dstMAC)
	eth := &layers.Ethernet{SrcMAC: src, DstMAC: dst, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{
		Version: 4, TTL: 64, Protocol: layers.IPProtocolUDP,
		SrcIP: net.ParseIP(srcIP).To4(), DstIP: net.ParseIP(dstIP).To4(),
	}
	udp := &layers.UDP{SrcPort: layers.UDPPort(srcPort), DstPort: layers.UDPPort(dstPort)}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatal(err)
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload([]byte{0xca, 0xfe})); err != nil {
		t.Fatal(err)
	}

	data := buf.Bytes()
	return capture.RawPacket{
		Info: gopacket.CaptureInfo{
			Timestamp:     time.Unix(0, int64(ts*1e9)),
			CaptureLength: len(data),
			Length:        len(data),
		},
		Data: data,
	}
}

const (
	devMAC   = "aa:bb:cc:dd:ee:01"
	cloudMAC = "08:00:27:00:00:01"
)

func TestSplitCaptureDurationFilter(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "input.pcap")
	out := filepath.Join(dir, "out")

	// Flow A spans the whole capture (kept); flow B only a sliver
	// (dropped). Both directions of flow A share one session.
	var packets []capture.RawPacket
	for ts := 0.0; ts <= 100.0; ts += 10 {
		packets = append(packets, udpFrame(t, devMAC, cloudMAC, "192.168.1.5", "34.210.2.7", 49152, 443, ts))
		packets = append(packets, udpFrame(t, cloudMAC, devMAC, "34.210.2.7", "192.168.1.5", 443, 49152, ts+0.2))
	}
	packets = append(packets, udpFrame(t, devMAC, cloudMAC, "192.168.1.5", "8.8.8.8", 5353, 53, 50.0))
	if err := capture.WriteFile(src, layers.LinkTypeEthernet, packets); err != nil {
		t.Fatal(err)
	}

	emitted, err := SplitCapture(src, out, 0.5, nil, testLog)
	if err != nil {
		t.Fatalf("SplitCapture: %v", err)
	}
	if emitted != 1 {
		t.Fatalf("emitted = %d, want 1 (short flow filtered)", emitted)
	}

	sessions, err := filepath.Glob(filepath.Join(out, "*.pcap"))
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Fatalf("session files = %v, want exactly one", sessions)
	}

	// Both directions landed in the one session; the emitted packets
	// are a subset of the input.
	kept, _, err := capture.ReadAll(sessions[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(kept) != 22 {
		t.Errorf("session packets = %d, want 22 (11 beacons + 11 replies)", len(kept))
	}

	if _, err := os.Stat(filepath.Join(out, SummaryFileName)); err != nil {
		t.Errorf("missing %s: %v", SummaryFileName, err)
	}
}

func TestSplitCaptureEmptyInput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "empty.pcap")
	if err := capture.WriteFile(src, layers.LinkTypeEthernet, nil); err != nil {
		t.Fatal(err)
	}

	emitted, err := SplitCapture(src, filepath.Join(dir, "out"), 0.5, nil, testLog)
	if err != nil {
		t.Fatalf("empty capture must not be an error, got %v", err)
	}
	if emitted != 0 {
		t.Errorf("emitted = %d, want 0", emitted)
	}
}

func TestSplitCaptureIdempotentOnOwnOutput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "input.pcap")

	var packets []capture.RawPacket
	for ts := 0.0; ts <= 60.0; ts += 10 {
		packets = append(packets, udpFrame(t, devMAC, cloudMAC, "192.168.1.5", "34.210.2.7", 49152, 443, ts))
	}
	if err := capture.WriteFile(src, layers.LinkTypeEthernet, packets); err != nil {
		t.Fatal(err)
	}

	out1 := filepath.Join(dir, "out1")
	if _, err := SplitCapture(src, out1, 0.5, nil, testLog); err != nil {
		t.Fatal(err)
	}
	first, err := filepath.Glob(filepath.Join(out1, "*.pcap"))
	if err != nil || len(first) != 1 {
		t.Fatalf("first split: %v, %v", first, err)
	}

	// Re-splitting the emitted session is a no-op in session structure.
	out2 := filepath.Join(dir, "out2")
	if _, err := SplitCapture(first[0], out2, 0.5, nil, testLog); err != nil {
		t.Fatal(err)
	}
	second, err := filepath.Glob(filepath.Join(out2, "*.pcap"))
	if err != nil || len(second) != 1 {
		t.Fatalf("second split: %v, %v", second, err)
	}
	if filepath.Base(first[0]) != filepath.Base(second[0]) {
		t.Errorf("session name changed: %s -> %s", filepath.Base(first[0]), filepath.Base(second[0]))
	}

	a, _, _ := capture.ReadAll(first[0])
	b, _, _ := capture.ReadAll(second[0])
	if len(a) != len(b) {
		t.Errorf("packet count changed: %d -> %d", len(a), len(b))
	}
}

func TestEnrichSummaryPicksPublicEndpoint(t *testing.T) {
	var geo *enricher.GeoIPService // nil service: lookups degrade to empty

	s := &models.SessionSummary{
		Key: models.CanonicalFlowKey("192.168.1.5", 49152, "34.210.2.7", 443, 17),
	}
	enrichSummary(s, geo)
	if s.RemoteIP != "34.210.2.7" {
		t.Errorf("remote = %s, want the public endpoint", s.RemoteIP)
	}
}
