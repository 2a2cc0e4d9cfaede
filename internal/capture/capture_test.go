/**
 * Capture I/O Tests.
 *
 * Round-trip tests for the pcap reader and writer and the format
 * sniffing.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package capture

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

func rawPacket(sec int64, payload byte) RawPacket {
	data := make([]byte, 60)
	for i := range data {
		data[i] = payload
	}
	return RawPacket{
		Info: gopacket.CaptureInfo{
			Timestamp:     time.Unix(sec, 123000),
			CaptureLength: len(data),
			Length:        len(data),
		},
		Data: data,
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roundtrip.pcap")
	packets := []RawPacket{rawPacket(100, 0xaa), rawPacket(101, 0xbb), rawPacket(102, 0xcc)}

	if err := WriteFile(path, layers.LinkTypeEthernet, packets); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, link, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if link != layers.LinkTypeEthernet {
		t.Errorf("link type = %v, want Ethernet", link)
	}
	if len(got) != len(packets) {
		t.Fatalf("packets = %d, want %d", len(got), len(packets))
	}
	for i := range got {
		if !got[i].Info.Timestamp.Equal(packets[i].Info.Timestamp) {
			t.Errorf("packet %d timestamp = %v, want %v", i, got[i].Info.Timestamp, packets[i].Info.Timestamp)
		}
		if got[i].Data[0] != packets[i].Data[0] || len(got[i].Data) != len(packets[i].Data) {
			t.Errorf("packet %d data mismatch", i)
		}
	}
}

func TestNextReturnsEOF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one.pcap")
	if err := WriteFile(path, layers.LinkTypeEthernet, []RawPacket{rawPacket(1, 0x01)}); err != nil {
		t.Fatal(err)
	}

	src, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	if _, err := src.Next(); err != nil {
		t.Fatalf("first Next: %v", err)
	}
	if _, err := src.Next(); err != io.EOF {
		t.Errorf("second Next = %v, want io.EOF", err)
	}
}

func TestOpenFileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.bin")
	if err := os.WriteFile(path, []byte("this is not a capture"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFile(path); err == nil {
		t.Error("expected an error for a non-capture file")
	}
}

func TestOpenFileMissing(t *testing.T) {
	if _, err := OpenFile(filepath.Join(t.TempDir(), "absent.pcap")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
