/**
 * Payload LSH.
 *
 * Canonicalises signature payloads into locality-sensitive hashes:
 * every maximal run of excessive '0' characters is stripped from the
 * hex string, the Nilsimsa digest of the cleaned UTF-8 bytes is taken,
 * and the 64-hex digest is expanded into the 256-bit binary string
 * stored in the signature artifacts.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package signature

import (
	"strings"

	"github.com/kleaSCM/iotscope/internal/models"
	"github.com/kleaSCM/iotscope/internal/nilsimsa"
)

// The 256-bit zero string used for empty or absent payloads.
var zeroBits = strings.Repeat("0", 256)

// Removes every maximal run of at least minRun consecutive '0'
// characters from a hex payload string.
func StripZeroRuns(payload string, minRun int) string {
	if minRun < 1 || len(payload) < minRun {
		return payload
	}

	var b strings.Builder
	b.Grow(len(payload))
	i := 0
	for i < len(payload) {
		if payload[i] != '0' {
			b.WriteByte(payload[i])
			i++
			continue
		}
		j := i
		for j < len(payload) && payload[j] == '0' {
			j++
		}
		if j-i < minRun {
			b.WriteString(payload[i:j])
		}
		i = j
	}
	return b.String()
}

// Hashes one payload: strip, digest, expand. Empty and all-stripped
// payloads map to the zero string, as do cleaned payloads too short to
// accumulate any trigram.
func HashPayload(payload string, zeroRunLength int) string {
	cleaned := StripZeroRuns(payload, zeroRunLength)
	if cleaned == "" {
		return zeroBits
	}
	return nilsimsa.BitString([]byte(cleaned))
}

// Rewrites the payload column of signature rows in place with their
// 256-bit hashes.
func ApplyLSH(rows []models.SignatureRow, zeroRunLength int) {
	for i := range rows {
		if strings.TrimSpace(rows[i].Payload) == "" {
			rows[i].Payload = zeroBits
			continue
		}
		rows[i].Payload = HashPayload(rows[i].Payload, zeroRunLength)
	}
}
