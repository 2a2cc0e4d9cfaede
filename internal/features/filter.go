/**
 * Per-Sample Feature Filter.
 *
 * Keeps the packets that carry conversation content: TLS application
 * data, bearer TCP data, TLS handshake records, and all UDP. Everything
 * else (bare ACKs, retransmission shells, non-IP chatter) is dropped
 * before clustering.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package features

import (
	"strings"

	"github.com/kleaSCM/iotscope/internal/models"
)

// TLS record content type for application data.
const tlsApplicationData = "23"

// Reports whether a record survives the feature filter. A record is
// kept iff any of:
//  1. TLS application data (tls.record.content_type == 23)
//  2. bearer TCP data (tcp.len != 0 and no TLS layer)
//  3. TLS handshake (TLS layer present, content type absent)
//  4. any UDP
func KeepRecord(rec *models.Record) bool {
	hasTLS := strings.Contains(rec.Protocols, "tls")
	hasUDP := strings.Contains(rec.Protocols, "udp")

	if rec.TLSContentType == tlsApplicationData {
		return true
	}
	if rec.TCPLen != "" && rec.TCPLen != "0" && !hasTLS {
		return true
	}
	if hasTLS && rec.TLSContentType == "" {
		return true
	}
	return hasUDP
}

// Applies the filter to a record slice, preserving order.
func FilterRecords(records []models.Record) []models.Record {
	kept := make([]models.Record, 0, len(records))
	for i := range records {
		if KeepRecord(&records[i]) {
			kept = append(kept, records[i])
		}
	}
	return kept
}
