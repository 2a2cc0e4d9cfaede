/**
 * Flow Model.
 *
 * Defines the direction-agnostic 5-tuple key identifying a bidirectional
 * session, plus the per-capture session summary emitted by the splitter.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package models

import (
	"fmt"
	"time"
)

// Uniquely identifies a bidirectional network flow. The key is stored in
// canonical orientation: the lexicographically smaller of the two ordered
// (ip, port, ip, port, proto) tuples, so both directions of a
// conversation map to the same key.
type FlowKey struct {
	SrcIP    string
	SrcPort  uint16
	DstIP    string
	DstPort  uint16
	Protocol uint8 // IANA L4 protocol number (6 = TCP, 17 = UDP)
}

// Builds the canonical flow key for one observed packet direction.
// Canonicalisation is involutive: swapping (src, dst) yields the same key.
func CanonicalFlowKey(srcIP string, srcPort uint16, dstIP string, dstPort uint16, proto uint8) FlowKey {
	a := FlowKey{SrcIP: srcIP, SrcPort: srcPort, DstIP: dstIP, DstPort: dstPort, Protocol: proto}
	b := FlowKey{SrcIP: dstIP, SrcPort: dstPort, DstIP: srcIP, DstPort: srcPort, Protocol: proto}
	if b.less(a) {
		return b
	}
	return a
}

// Tuple-wise ordering over (SrcIP, SrcPort, DstIP, DstPort, Protocol).
func (k FlowKey) less(o FlowKey) bool {
	if k.SrcIP != o.SrcIP {
		return k.SrcIP < o.SrcIP
	}
	if k.SrcPort != o.SrcPort {
		return k.SrcPort < o.SrcPort
	}
	if k.DstIP != o.DstIP {
		return k.DstIP < o.DstIP
	}
	if k.DstPort != o.DstPort {
		return k.DstPort < o.DstPort
	}
	return k.Protocol < o.Protocol
}

// Returns the session file stem encoding one direction of the 5-tuple,
// e.g. "192.168.1.5_49152_34.210.2.7_443_6".
func (k FlowKey) FileStem() string {
	return fmt.Sprintf("%s_%d_%s_%d_%d", k.SrcIP, k.SrcPort, k.DstIP, k.DstPort, k.Protocol)
}

// Returns a human-readable string representation of the flow key.
func (k FlowKey) String() string {
	return fmt.Sprintf("%s:%d <-> %s:%d [%d]", k.SrcIP, k.SrcPort, k.DstIP, k.DstPort, k.Protocol)
}

// Summarises one emitted session for the splitter's sessions.csv.
type SessionSummary struct {
	Key         FlowKey
	FirstSeen   time.Time
	LastSeen    time.Time
	PacketCount uint64
	ByteCount   uint64

	// GeoIP enrichment of the remote endpoint, empty when unavailable.
	RemoteIP      string
	RemoteCountry string
	RemoteCity    string
	RemoteASN     string
}

// Duration of the session in seconds.
func (s *SessionSummary) Duration() float64 {
	return s.LastSeen.Sub(s.FirstSeen).Seconds()
}
