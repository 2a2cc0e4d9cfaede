/**
 * Signature Model.
 *
 * Defines the key-packet descriptor mined per session, the ordered
 * signature rows extracted from a canonical sample, and the signature
 * bank the matcher runs against. Signature rows are the interchange
 * contract between the mining, extraction, and matching stages, so they
 * carry explicit JSON and CSV field names.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package models

// Identifies the recurring key packet of a session: a (length,
// direction) pair expected Multiplicity times in every sample.
type KeyPacket struct {
	Length       int
	Direction    int
	Multiplicity int
}

// A multiset of key packets keyed by "<len>_<direction>", the cell
// schema of the packet_distribution CSV column.
type KeyPacketSet map[string]int

// One ordered row of a session signature. The JSON names are the wire
// schema of the merged-signature artifact consumed by the matcher.
type SignatureRow struct {
	Time         float64 `json:"frame.time_epoch"`
	Length       int     `json:"frame.len"`
	Direction    int     `json:"direction"`
	TimeInterval float64 `json:"time_interval"`
	ProtocolType string  `json:"protocol_type"`
	Payload      string  `json:"payload"` // 256-bit binary string after LSH
	Label        string  `json:"label"`
}

// The ordered key-packet sequence characterising one session of one
// device. Rows are ordered by Time within the originating sample and are
// immutable once extracted.
type Signature struct {
	Device  string
	Session string
	Rows    []SignatureRow
}

// Maps device → session → signature. Device iteration order for match
// reporting is the insertion order of the bank.
type SignatureBank struct {
	Devices []string
	Entries map[string]map[string]*Signature
}

// Creates an empty signature bank.
func NewSignatureBank() *SignatureBank {
	return &SignatureBank{Entries: make(map[string]map[string]*Signature)}
}

// Adds a signature, registering the device on first sight.
func (b *SignatureBank) Add(sig *Signature) {
	if _, ok := b.Entries[sig.Device]; !ok {
		b.Entries[sig.Device] = make(map[string]*Signature)
		b.Devices = append(b.Devices, sig.Device)
	}
	b.Entries[sig.Device][sig.Session] = sig
}
