/**
 * TLS Record Sniffer.
 *
 * Detects a TLS record header at the start of a TCP payload and exposes
 * its content type. Only the record framing is inspected; payload
 * contents stay opaque (observation only, encryption boundaries
 * respected).
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package parser

import "encoding/binary"

// A TLS record header found at offset 0 of a TCP payload.
type TLSRecord struct {
	ContentType uint8 // 20 change-cipher-spec, 21 alert, 22 handshake, 23 application data
	Version     uint16
	Length      uint16
}

// Inspects the first five payload bytes for a plausible TLS record
// header. Returns nil when the payload does not start a TLS record.
func SniffTLSRecord(payload []byte) *TLSRecord {
	if len(payload) < 5 {
		return nil
	}

	contentType := payload[0]
	if contentType < 20 || contentType > 23 {
		return nil
	}

	// Major version 3 covers SSL 3.0 through TLS 1.3 record layers.
	if payload[1] != 3 || payload[2] > 4 {
		return nil
	}

	return &TLSRecord{
		ContentType: contentType,
		Version:     binary.BigEndian.Uint16(payload[1:3]),
		Length:      binary.BigEndian.Uint16(payload[3:5]),
	}
}
