/**
 * Streaming Matcher.
 *
 * Matches a test packet stream online against every signature of every
 * device. Each session tracks two cyclic rotations of its signature,
 * ideal (phase anchored on the first matching entry) and actual (phase
 * anchored on the last entry of a run of equal key packets), so an
 * arbitrary starting phase inside the period is absorbed. Cursors only
 * ever advance; a mismatching packet is simply not a key packet for
 * that session.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package matcher

import (
	"sort"

	"github.com/kleaSCM/iotscope/internal/models"
)

// One packet of the test stream reduced to the matched triple.
type TestPacket struct {
	Length    int
	Direction int
	Proto     string
}

// Builds a test packet from a full feature record.
func FromRecord(rec *models.Record) TestPacket {
	return TestPacket{Length: rec.Length, Direction: rec.Direction, Proto: rec.ProtocolType()}
}

// Per-session matching state. Created per test stream, destroyed with
// its verdict.
type sessionState struct {
	name string
	sig  []models.SignatureRow

	bootstrapped bool
	ideal        []models.SignatureRow
	idxIdeal     int
	actual       []models.SignatureRow
	idxActual    int

	matched bool
}

// Matches one device's sessions against a stream.
type deviceState struct {
	name     string
	sessions []*sessionState
}

// Matcher state for one test stream over a read-only signature bank.
type Matcher struct {
	devices []*deviceState
}

// Creates matcher state for one test stream. The bank is shared
// read-only; device order is the bank's insertion order. A session with
// an empty signature is vacuously matched.
func New(bank *models.SignatureBank) *Matcher {
	m := &Matcher{}
	for _, device := range bank.Devices {
		ds := &deviceState{name: device}
		sessions := bank.Entries[device]
		for _, name := range sortedKeys(sessions) {
			st := &sessionState{name: name, sig: sessions[name].Rows}
			if len(st.sig) == 0 {
				st.matched = true
			}
			ds.sessions = append(ds.sessions, st)
		}
		m.devices = append(m.devices, ds)
	}
	return m
}

// Feeds one packet of the test stream to every unfinished session.
func (m *Matcher) Feed(pkt TestPacket) {
	for _, dev := range m.devices {
		for _, sess := range dev.sessions {
			if sess.matched {
				continue
			}
			if !sess.bootstrapped {
				sess.bootstrap(pkt)
			} else {
				sess.advance(pkt)
			}
		}
	}
}

// Phase-1 bootstrap: on the first packet matching any signature entry,
// both rotations are created atomically with their cursors at 1.
func (s *sessionState) bootstrap(pkt TestPacket) {
	first := -1
	for i := range s.sig {
		if matches(pkt, &s.sig[i]) {
			first = i
			break
		}
	}
	if first < 0 {
		return
	}

	last := -1
	for i := len(s.sig) - 1; i >= 0; i-- {
		if matches(pkt, &s.sig[i]) {
			last = i
			break
		}
	}

	s.ideal = rotate(s.sig, first)
	s.idxIdeal = 1
	s.actual = rotate(s.sig, last)
	s.idxActual = 1
	s.bootstrapped = true

	if s.idxIdeal == len(s.sig) || s.idxActual == len(s.sig) {
		s.matched = true
	}
}

// Phase-2 advance: each rotation's cursor advances independently on a
// match; reaching the signature length completes the session.
func (s *sessionState) advance(pkt TestPacket) {
	if s.idxIdeal < len(s.ideal) && matches(pkt, &s.ideal[s.idxIdeal]) {
		s.idxIdeal++
		if s.idxIdeal == len(s.sig) {
			s.matched = true
		}
	}
	if s.idxActual < len(s.actual) && matches(pkt, &s.actual[s.idxActual]) {
		s.idxActual++
		if s.idxActual == len(s.sig) {
			s.matched = true
		}
	}
}

// A stream packet matches a signature entry on the (length, direction,
// protocol) triple. Payload hashes are carried for similarity metrics,
// never compared here.
func matches(pkt TestPacket, row *models.SignatureRow) bool {
	return pkt.Length == row.Length &&
		pkt.Direction == row.Direction &&
		pkt.Proto == row.ProtocolType
}

// The cyclic rotation of sig starting at index i.
func rotate(sig []models.SignatureRow, i int) []models.SignatureRow {
	out := make([]models.SignatureRow, 0, len(sig))
	out = append(out, sig[i:]...)
	out = append(out, sig[:i]...)
	return out
}

// One device's verdict with its per-session detail.
type Verdict struct {
	Device   string
	Matched  bool
	Sessions map[string]bool
}

// Returns per-device verdicts in bank insertion order: a device matches
// iff all of its sessions completed before the stream ended.
func (m *Matcher) Verdicts() []Verdict {
	verdicts := make([]Verdict, 0, len(m.devices))
	for _, dev := range m.devices {
		v := Verdict{Device: dev.name, Matched: true, Sessions: make(map[string]bool, len(dev.sessions))}
		for _, sess := range dev.sessions {
			v.Sessions[sess.name] = sess.matched
			if !sess.matched {
				v.Matched = false
			}
		}
		verdicts = append(verdicts, v)
	}
	return verdicts
}

func sortedKeys(m map[string]*models.Signature) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Insertion order of sessions is not recorded in the bank; sorted
	// order keeps reruns deterministic.
	sort.Strings(keys)
	return keys
}
