/**
 * Capture Writer.
 *
 * Thin wrapper over gopacket's pcapgo writer for emitting filtered and
 * sliced captures. Output is always classic pcap regardless of the
 * input container.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package capture

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Maximum bytes retained per frame in emitted captures.
const snapLen = 65536

// Writes frames to a single pcap file.
type FileWriter struct {
	f *os.File
	w *pcapgo.Writer
}

// Creates the file (and any missing parent directories) and writes the
// pcap global header.
func NewFileWriter(path string, link layers.LinkType) (*FileWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create capture: %w", err)
	}
	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(snapLen, link); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write pcap header: %w", err)
	}
	return &FileWriter{f: f, w: w}, nil
}

// Appends one frame.
func (w *FileWriter) Write(pkt RawPacket) error {
	if err := w.w.WritePacket(pkt.Info, pkt.Data); err != nil {
		return fmt.Errorf("failed to write packet: %w", err)
	}
	return nil
}

// Flushes and closes the file.
func (w *FileWriter) Close() error {
	return w.f.Close()
}

// Writes a complete packet slice to path in one call.
func WriteFile(path string, link layers.LinkType, packets []RawPacket) error {
	w, err := NewFileWriter(path, link)
	if err != nil {
		return err
	}
	for _, pkt := range packets {
		if err := w.Write(pkt); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}
