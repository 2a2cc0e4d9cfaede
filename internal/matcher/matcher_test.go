/**
 * Streaming Matcher Tests.
 *
 * Unit tests for bootstrap rotations, cursor advancement, verdicts, and
 * the cyclic-replay behaviour.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package matcher

import (
	"testing"

	"github.com/kleaSCM/iotscope/internal/models"
)

func sigRow(length, direction int, proto string) models.SignatureRow {
	return models.SignatureRow{Length: length, Direction: direction, ProtocolType: proto}
}

func bankWith(device, session string, rows ...models.SignatureRow) *models.SignatureBank {
	bank := models.NewSignatureBank()
	bank.Add(&models.Signature{Device: device, Session: session, Rows: rows})
	return bank
}

func pkt(length, direction int, proto string) TestPacket {
	return TestPacket{Length: length, Direction: direction, Proto: proto}
}

func TestMatcherPositive(t *testing.T) {
	bank := bankWith("camera", "s1",
		sigRow(82, 1, models.ProtoUDP),
		sigRow(60, -1, models.ProtoUDP))

	m := New(bank)
	for _, p := range []TestPacket{
		pkt(100, 1, models.ProtoTCP),
		pkt(82, 1, models.ProtoUDP),
		pkt(60, -1, models.ProtoUDP),
		pkt(200, 1, models.ProtoTCP),
	} {
		m.Feed(p)
	}

	verdicts := m.Verdicts()
	if len(verdicts) != 1 || !verdicts[0].Matched {
		t.Fatalf("verdicts = %+v, want camera matched", verdicts)
	}
	if !verdicts[0].Sessions["s1"] {
		t.Error("session s1 not marked matched")
	}
}

func TestMatcherRotationRequired(t *testing.T) {
	// Stream begins mid-period: the rotations absorb the phase.
	bank := bankWith("camera", "s1",
		sigRow(82, 1, models.ProtoUDP),
		sigRow(60, -1, models.ProtoUDP))

	m := New(bank)
	m.Feed(pkt(60, -1, models.ProtoUDP))
	m.Feed(pkt(82, 1, models.ProtoUDP))

	if !m.Verdicts()[0].Matched {
		t.Error("rotated stream must match")
	}
}

func TestMatcherActualRotationDuplicateBurst(t *testing.T) {
	// Signature with a duplicate burst: [342, 342, 342, 350]. A stream
	// entering at the last 342 completes via the actual rotation.
	bank := bankWith("plug", "s1",
		sigRow(342, 1, models.ProtoTCP),
		sigRow(342, 1, models.ProtoTCP),
		sigRow(342, 1, models.ProtoTCP),
		sigRow(350, -1, models.ProtoTCP))

	m := New(bank)
	// Bootstrap on 342: ideal anchors at index 0, actual at index 2.
	// The remaining stream carries the tail of the cycle plus the start
	// of the next: actual needs [350, 342, 342] after its anchor.
	for _, p := range []TestPacket{
		pkt(342, 1, models.ProtoTCP),
		pkt(350, -1, models.ProtoTCP),
		pkt(342, 1, models.ProtoTCP),
		pkt(342, 1, models.ProtoTCP),
	} {
		m.Feed(p)
	}

	if !m.Verdicts()[0].Matched {
		t.Error("duplicate-burst entry must match via the actual rotation")
	}
}

func TestMatcherProtocolMismatch(t *testing.T) {
	bank := bankWith("camera", "s1", sigRow(82, 1, models.ProtoUDP))

	m := New(bank)
	m.Feed(pkt(82, 1, models.ProtoTCP)) // right size, wrong transport

	if m.Verdicts()[0].Matched {
		t.Error("protocol mismatch must not match")
	}
}

func TestMatcherCursorsNeverReset(t *testing.T) {
	bank := bankWith("camera", "s1",
		sigRow(10, 1, models.ProtoUDP),
		sigRow(20, -1, models.ProtoUDP),
		sigRow(30, 1, models.ProtoUDP))

	m := New(bank)
	m.Feed(pkt(10, 1, models.ProtoUDP))
	// A long burst of non-key packets must not disturb the cursors.
	for i := 0; i < 100; i++ {
		m.Feed(pkt(9999, 1, models.ProtoTCP))
	}
	m.Feed(pkt(20, -1, models.ProtoUDP))
	m.Feed(pkt(30, 1, models.ProtoUDP))

	if !m.Verdicts()[0].Matched {
		t.Error("mismatches in between must be ignored, not reset the cursors")
	}
}

func TestMatcherSelfConcatenation(t *testing.T) {
	// A stream equal to the signature twice always completes, whatever
	// the internal phase: both rotations reach the end before stream end.
	rows := []models.SignatureRow{
		sigRow(10, 1, models.ProtoUDP),
		sigRow(20, -1, models.ProtoUDP),
		sigRow(30, 1, models.ProtoTCP),
	}
	bank := bankWith("hub", "s1", rows...)

	m := New(bank)
	for i := 0; i < 2; i++ {
		for _, r := range rows {
			m.Feed(pkt(r.Length, r.Direction, r.ProtocolType))
		}
	}

	if !m.Verdicts()[0].Matched {
		t.Error("signature concatenated with itself must match")
	}
}

func TestMatcherMatchedStaysMatched(t *testing.T) {
	bank := bankWith("camera", "s1", sigRow(82, 1, models.ProtoUDP), sigRow(60, -1, models.ProtoUDP))

	m := New(bank)
	m.Feed(pkt(82, 1, models.ProtoUDP))
	m.Feed(pkt(60, -1, models.ProtoUDP))
	if !m.Verdicts()[0].Matched {
		t.Fatal("precondition: matched")
	}
	// Replay cycles keep arriving; the verdict must hold.
	for i := 0; i < 10; i++ {
		m.Feed(pkt(82, 1, models.ProtoUDP))
		m.Feed(pkt(60, -1, models.ProtoUDP))
	}
	if !m.Verdicts()[0].Matched {
		t.Error("matched flag regressed within one stream")
	}
}

func TestMatcherEmptySignatureVacuouslyMatched(t *testing.T) {
	bank := models.NewSignatureBank()
	bank.Add(&models.Signature{Device: "ghost", Session: "s1", Rows: nil})

	m := New(bank)
	if !m.Verdicts()[0].Matched {
		t.Error("empty signature must be vacuously matched")
	}
}

func TestMatcherDeviceNeedsAllSessions(t *testing.T) {
	bank := models.NewSignatureBank()
	bank.Add(&models.Signature{Device: "cam", Session: "a", Rows: []models.SignatureRow{sigRow(82, 1, models.ProtoUDP)}})
	bank.Add(&models.Signature{Device: "cam", Session: "b", Rows: []models.SignatureRow{sigRow(444, -1, models.ProtoTCP)}})

	m := New(bank)
	m.Feed(pkt(82, 1, models.ProtoUDP))

	v := m.Verdicts()[0]
	if v.Matched {
		t.Error("device matched with one session outstanding")
	}
	if !v.Sessions["a"] || v.Sessions["b"] {
		t.Errorf("session detail = %v, want a matched, b not", v.Sessions)
	}

	m.Feed(pkt(444, -1, models.ProtoTCP))
	if !m.Verdicts()[0].Matched {
		t.Error("device must match once every session completed")
	}
}

func TestMatcherDeviceOrderIsBankOrder(t *testing.T) {
	bank := models.NewSignatureBank()
	bank.Add(&models.Signature{Device: "zeta", Session: "s", Rows: []models.SignatureRow{sigRow(1, 1, models.ProtoUDP)}})
	bank.Add(&models.Signature{Device: "alpha", Session: "s", Rows: []models.SignatureRow{sigRow(2, 1, models.ProtoUDP)}})

	verdicts := New(bank).Verdicts()
	if verdicts[0].Device != "zeta" || verdicts[1].Device != "alpha" {
		t.Errorf("device order = [%s, %s], want bank insertion order", verdicts[0].Device, verdicts[1].Device)
	}
}
