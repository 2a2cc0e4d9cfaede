/**
 * Key-Packet Miner.
 *
 * Identifies, across all surviving clustered rows of one session, the
 * (length, direction) pair that recurs with stable multiplicity: the
 * pair with the largest total count, rounded to a per-sample
 * multiplicity against the session's sample count.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package cluster

import (
	"errors"

	"github.com/kleaSCM/iotscope/internal/models"
)

// Reported when the dominant pair rounds to multiplicity zero.
var ErrNoKeyPacket = errors.New("session yields no key packet")

// Mines the key-packet descriptor of a session from its clustered,
// filtered rows. numSamples is the session's sample count N. The
// multiplicity is ⌊C/N⌋, rounded up when the remainder covers at least
// half the samples; a result below 1 means no signature.
func MineKeyPacket(rows []Row, numSamples int) (models.KeyPacket, error) {
	if len(rows) == 0 || numSamples <= 0 {
		return models.KeyPacket{}, ErrNoKeyPacket
	}

	type pair struct {
		length    int
		direction int
	}
	counts := make(map[pair]int)
	for i := range rows {
		if rows[i].Cluster == Noise {
			continue
		}
		counts[pair{rows[i].Length, rows[i].Direction}]++
	}

	var (
		best      pair
		bestCount = 0
		found     bool
	)
	for p, c := range counts {
		if c > bestCount || (c == bestCount && found && pairLess(p.length, p.direction, best.length, best.direction)) {
			best = p
			bestCount = c
			found = true
		}
	}
	if !found {
		return models.KeyPacket{}, ErrNoKeyPacket
	}

	quotient := bestCount / numSamples
	remainder := bestCount % numSamples
	multiplicity := quotient
	// The remainder counts as one more key packet when it appears in at
	// least half the samples.
	if remainder*2 >= numSamples {
		multiplicity++
	}
	if multiplicity < 1 {
		return models.KeyPacket{}, ErrNoKeyPacket
	}

	return models.KeyPacket{
		Length:       best.length,
		Direction:    best.direction,
		Multiplicity: multiplicity,
	}, nil
}

// Deterministic tie-break over (length, direction).
func pairLess(aLen, aDir, bLen, bDir int) bool {
	if aLen != bLen {
		return aLen < bLen
	}
	return aDir < bDir
}
