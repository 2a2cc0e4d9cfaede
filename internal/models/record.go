/**
 * Packet Record Model.
 *
 * Encapsulates the per-packet feature record produced by the extraction
 * stage and consumed by every downstream stage of the pipeline. Field
 * names mirror the capture-decoder columns of the feature CSV.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package models

import "strings"

// Traffic direction relative to the observed device.
const (
	DirectionDeviceToNet = 1  // the device sent the frame
	DirectionNetToDevice = -1 // the device received the frame
	DirectionUnknown     = 0  // neither MAC belongs to a known device
)

// Transport protocol classes used for clustering and matching.
const (
	ProtoTCP     = "tcp"
	ProtoUDP     = "udp"
	ProtoUnknown = "unknown"
)

// Represents one decoded packet of a session sample.
//
// Numeric columns that may legitimately be absent (ports, lengths of the
// other transport) are kept as strings so an empty CSV cell round-trips
// untouched; columns every stage computes with are typed.
type Record struct {
	Time           float64 // frame.time_epoch
	Protocols      string  // frame.protocols, tshark-style layer chain
	Length         int     // frame.len
	EthSrc         string
	EthDst         string
	IPSrc          string
	IPDst          string
	IPLen          string
	TCPLen         string
	UDPLen         string
	IPTTL          string
	TCPSrcPort     string
	TCPDstPort     string
	UDPSrcPort     string
	UDPDstPort     string
	TCPFlags       string
	TLSContentType string // tls.record.content_type, "" when absent
	TCPWindowSize  string
	TCPPayload     string // hex string, "" when absent
	UDPPayload     string // hex string, "" when absent

	Direction    int     // +1 device→net, -1 net→device, 0 unknown
	TimeInterval float64 // seconds since the previous record, first = 0
}

// Maps a frame.protocols chain onto the transport class used by the
// clustering and matching stages.
func ProtocolType(protocols string) string {
	if strings.Contains(protocols, "tcp") {
		return ProtoTCP
	}
	if strings.Contains(protocols, "udp") {
		return ProtoUDP
	}
	return ProtoUnknown
}

// Returns the transport class of the record.
func (r *Record) ProtocolType() string {
	return ProtocolType(r.Protocols)
}

// Returns the L4 payload hex string matching the record's transport.
func (r *Record) Payload() string {
	switch r.ProtocolType() {
	case ProtoTCP:
		return r.TCPPayload
	case ProtoUDP:
		return r.UDPPayload
	}
	return ""
}
