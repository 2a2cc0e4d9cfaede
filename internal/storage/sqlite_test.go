/**
 * SQLite Storage Tests.
 *
 * Unit tests for signature and match-result persistence.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package storage

import (
	"path/filepath"
	"testing"

	"github.com/go-test/deep"
	"github.com/kleaSCM/iotscope/internal/models"
)

func testStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return store
}

func TestSaveAndGetSignature(t *testing.T) {
	store := testStore(t)

	sig := &models.Signature{
		Device:  "camera",
		Session: "192.168.1.5_49152_34.210.2.7_8883_17",
		Rows: []models.SignatureRow{
			{Time: 1.5, Length: 82, Direction: 1, ProtocolType: models.ProtoUDP, Payload: "0101", Label: "s"},
			{Time: 1.7, Length: 60, Direction: -1, ProtocolType: models.ProtoUDP, Payload: "1010", Label: "s"},
		},
	}
	if err := store.SaveSignature(sig); err != nil {
		t.Fatalf("SaveSignature: %v", err)
	}

	got, err := store.GetSignature(sig.Device, sig.Session)
	if err != nil {
		t.Fatalf("GetSignature: %v", err)
	}
	if got == nil {
		t.Fatal("signature not found")
	}
	if diff := deep.Equal(got.Rows, sig.Rows); diff != nil {
		t.Errorf("rows differ: %v", diff)
	}
}

func TestSaveSignatureUpsert(t *testing.T) {
	store := testStore(t)

	sig := &models.Signature{Device: "cam", Session: "s", Rows: []models.SignatureRow{{Length: 10}}}
	if err := store.SaveSignature(sig); err != nil {
		t.Fatal(err)
	}
	sig.Rows = []models.SignatureRow{{Length: 20}}
	if err := store.SaveSignature(sig); err != nil {
		t.Fatal(err)
	}

	sigs, err := store.ListSignatures()
	if err != nil {
		t.Fatal(err)
	}
	if len(sigs) != 1 {
		t.Fatalf("signatures = %d, want 1 after upsert", len(sigs))
	}
	if sigs[0].Rows[0].Length != 20 {
		t.Errorf("row length = %d, want the replacement", sigs[0].Rows[0].Length)
	}
}

func TestGetSignatureMissing(t *testing.T) {
	store := testStore(t)
	got, err := store.GetSignature("nobody", "nothing")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("expected nil for a missing signature, got %+v", got)
	}
}

func TestMatchResults(t *testing.T) {
	store := testStore(t)

	if err := store.SaveMatchResult("run1", "part1.pcap", "camera", true); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveMatchResult("run1", "part1.pcap", "plug", false); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveMatchResult("run2", "other.pcap", "camera", false); err != nil {
		t.Fatal(err)
	}

	results, err := store.ListMatchResults("run1")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if !results[0].Matched || results[0].Device != "camera" {
		t.Errorf("first result = %+v", results[0])
	}
	if results[1].Matched {
		t.Errorf("second result = %+v, want unmatched", results[1])
	}
}
