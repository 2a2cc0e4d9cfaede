/**
 * Period Slicer Tests.
 *
 * Verifies that period slicing partitions a session: every packet lands
 * in exactly one bucket, buckets follow time order, and boundary
 * packets open new buckets.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package period

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/kleaSCM/iotscope/internal/capture"
	"github.com/kleaSCM/iotscope/internal/models"
)

// Builds a raw packet with the given epoch-second timestamp.
func rawAt(sec float64) capture.RawPacket {
	data := []byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01, 0x02, 0x03}
	return capture.RawPacket{
		Info: gopacket.CaptureInfo{
			Timestamp:     time.Unix(0, int64(sec*1e9)),
			CaptureLength: len(data),
			Length:        len(data),
		},
		Data: data,
	}
}

func TestSplitByPeriodPartitions(t *testing.T) {
	dir := t.TempDir()

	// Period 10 starting at t=1000: buckets [1000,1010), [1010,1020), …
	// The packet at exactly 1010 must open the second bucket.
	times := []float64{1000.0, 1004.5, 1009.999, 1010.0, 1015.0, 1030.0}
	packets := make([]capture.RawPacket, len(times))
	for i, ts := range times {
		packets[i] = rawAt(ts)
	}

	files, err := SplitByPeriod(packets, layers.LinkTypeEthernet, 10, dir)
	if err != nil {
		t.Fatalf("SplitByPeriod: %v", err)
	}
	if files != 3 {
		t.Errorf("sample files = %d, want 3 (empty windows produce no file)", files)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	want := []string{"output_1000.pcap", "output_1010.pcap", "output_1030.pcap"}
	if len(names) != len(want) {
		t.Fatalf("bucket files = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("bucket %d = %q, want %q", i, names[i], want[i])
		}
	}

	// Every packet lands in exactly one bucket.
	total := 0
	counts := map[string]int{}
	for _, name := range names {
		pkts, _, err := capture.ReadAll(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("reading bucket %s: %v", name, err)
		}
		counts[name] = len(pkts)
		total += len(pkts)
	}
	if total != len(packets) {
		t.Errorf("bucketed packets = %d, want %d", total, len(packets))
	}
	if counts["output_1000.pcap"] != 3 || counts["output_1010.pcap"] != 2 || counts["output_1030.pcap"] != 1 {
		t.Errorf("bucket distribution = %v, want 3/2/1", counts)
	}
}

func TestSplitByPeriodEmpty(t *testing.T) {
	files, err := SplitByPeriod(nil, layers.LinkTypeEthernet, 10, t.TempDir())
	if err != nil {
		t.Fatalf("SplitByPeriod: %v", err)
	}
	if files != 0 {
		t.Errorf("files = %d, want 0", files)
	}
}

// Builds a periodicity result with the chosen period scored (r, rn) and
// placeholder scores for the other candidates.
func periodicityFor(best int, r, rn float64, candidates []int) models.Periodicity {
	result := models.Periodicity{Candidates: make(map[int]models.PeriodScore)}
	for _, p := range candidates {
		result.Candidates[p] = models.PeriodScore{R: r / 2, RN: rn / 2}
	}
	result.Candidates[best] = models.PeriodScore{R: r, RN: rn}
	result.Best = &models.PeriodChoice{Period: best, Score: models.PeriodScore{R: r, RN: rn}}
	return result
}

func TestWriteRecordFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, RecordFileName)

	if err := WriteRecord(path, periodicityFor(30, 0.98, 0.99, []int{29, 30, 31})); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}

	last, err := ReadRecordLastLine(path)
	if err != nil {
		t.Fatalf("ReadRecordLastLine: %v", err)
	}
	want := "选择周期:(30, [0.98, 0.99])"
	if last != want {
		t.Errorf("last line = %q, want %q", last, want)
	}

	data, _ := os.ReadFile(path)
	wantFirst := "候选周期:[29, 30, 31]\n"
	if len(data) < len(wantFirst) || string(data[:len(wantFirst)]) != wantFirst {
		t.Errorf("record = %q, want prefix %q", data, wantFirst)
	}
}
