/**
 * Packet Source.
 *
 * Offline capture reading. Wraps gopacket's pcapgo readers behind a
 * single PacketSource iterator, selecting the pcap or pcapng decoder by
 * file magic so both formats are read transparently.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package capture

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Classic pcap magics (both byte orders, micro- and nanosecond) and the
// pcapng section header block type.
const (
	magicPcapBE     = 0xa1b2c3d4
	magicPcapLE     = 0xd4c3b2a1
	magicPcapNanoBE = 0xa1b23c4d
	magicPcapNanoLE = 0x4d3cb2a1
	magicPcapNg     = 0x0a0d0d0a
)

// One captured frame: the capture metadata plus the raw bytes.
type RawPacket struct {
	Info gopacket.CaptureInfo
	Data []byte
}

// Delivers parsed frames one at a time. Next returns io.EOF when the
// capture is exhausted. This is the pipeline's only iteration surface
// over capture files.
type PacketSource interface {
	Next() (RawPacket, error)
	LinkType() layers.LinkType
	Close() error
}

// A PacketSource backed by a pcap or pcapng file.
type FileSource struct {
	f    *os.File
	link layers.LinkType
	read func() ([]byte, gopacket.CaptureInfo, error)
}

// Opens a capture file, sniffing the format from its magic number.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture: %w", err)
	}

	br := bufio.NewReader(f)
	head, err := br.Peek(4)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read capture magic: %w", err)
	}

	src := &FileSource{f: f}
	switch binary.BigEndian.Uint32(head) {
	case magicPcapNg:
		r, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to parse pcapng header: %w", err)
		}
		src.link = r.LinkType()
		src.read = r.ReadPacketData
	case magicPcapBE, magicPcapLE, magicPcapNanoBE, magicPcapNanoLE:
		r, err := pcapgo.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to parse pcap header: %w", err)
		}
		src.link = r.LinkType()
		src.read = r.ReadPacketData
	default:
		f.Close()
		return nil, fmt.Errorf("not a pcap or pcapng file: %s", path)
	}

	return src, nil
}

// Returns the next frame, or io.EOF at end of capture.
func (s *FileSource) Next() (RawPacket, error) {
	data, ci, err := s.read()
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return RawPacket{}, io.EOF
		}
		return RawPacket{}, err
	}
	// The reader reuses its buffer between calls.
	buf := make([]byte, len(data))
	copy(buf, data)
	return RawPacket{Info: ci, Data: buf}, nil
}

// Link-layer type of the capture (Ethernet II or compatible expected).
func (s *FileSource) LinkType() layers.LinkType {
	return s.link
}

// Releases the underlying file.
func (s *FileSource) Close() error {
	return s.f.Close()
}

// Reads the whole capture into memory. Convenience for the stages that
// need random access to a (session-sized) capture.
func ReadAll(path string) ([]RawPacket, layers.LinkType, error) {
	src, err := OpenFile(path)
	if err != nil {
		return nil, 0, err
	}
	defer src.Close()

	var packets []RawPacket
	for {
		pkt, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read packet: %w", err)
		}
		packets = append(packets, pkt)
	}
	return packets, src.LinkType(), nil
}
