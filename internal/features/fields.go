/**
 * Decoder Field Table.
 *
 * The ordered field table of the feature CSV: one named extractor per
 * column, evaluated against a decoded frame. A refused field (extractor
 * error or panic) triggers the degrade-and-retry protocol: the stage
 * removes the offending field and re-extracts the file, up to four
 * attempts, after which the file fails.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package features

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kleaSCM/iotscope/internal/parser"
)

// Maximum extraction attempts per file before it is reported failed.
const MaxDecodeAttempts = 4

// One CSV column: its header name and its extractor. Extractors return
// "" for legitimately absent values; an error means the decoder refuses
// the field for this file.
type Field struct {
	Name    string
	Extract func(d *parser.Decoded) (string, error)
}

// The decoder-backed columns of the feature CSV, in schema order. The
// trailing direction and time_interval columns are derived, not decoded.
func DecoderFields() []Field {
	return []Field{
		{"frame.time_epoch", func(d *parser.Decoded) (string, error) {
			return strconv.FormatFloat(epoch(d), 'f', 9, 64), nil
		}},
		{"frame.protocols", func(d *parser.Decoded) (string, error) {
			return d.ProtocolChain(), nil
		}},
		{"frame.len", func(d *parser.Decoded) (string, error) {
			return strconv.Itoa(len(d.Raw.Data)), nil
		}},
		{"eth.src", func(d *parser.Decoded) (string, error) {
			if d.Eth == nil {
				return "", nil
			}
			return strings.ToLower(d.Eth.SrcMAC.String()), nil
		}},
		{"eth.dst", func(d *parser.Decoded) (string, error) {
			if d.Eth == nil {
				return "", nil
			}
			return strings.ToLower(d.Eth.DstMAC.String()), nil
		}},
		{"ip.src", func(d *parser.Decoded) (string, error) {
			if d.IP4 != nil {
				return d.IP4.SrcIP.String(), nil
			}
			if d.IP6 != nil {
				return d.IP6.SrcIP.String(), nil
			}
			return "", nil
		}},
		{"ip.dst", func(d *parser.Decoded) (string, error) {
			if d.IP4 != nil {
				return d.IP4.DstIP.String(), nil
			}
			if d.IP6 != nil {
				return d.IP6.DstIP.String(), nil
			}
			return "", nil
		}},
		{"ip.len", func(d *parser.Decoded) (string, error) {
			if d.IP4 != nil {
				return strconv.Itoa(int(d.IP4.Length)), nil
			}
			return "", nil
		}},
		{"tcp.len", func(d *parser.Decoded) (string, error) {
			if d.TCP == nil {
				return "", nil
			}
			return strconv.Itoa(len(d.TCP.Payload)), nil
		}},
		{"udp.length", func(d *parser.Decoded) (string, error) {
			if d.UDP == nil {
				return "", nil
			}
			return strconv.Itoa(int(d.UDP.Length)), nil
		}},
		{"ip.ttl", func(d *parser.Decoded) (string, error) {
			if d.IP4 != nil {
				return strconv.Itoa(int(d.IP4.TTL)), nil
			}
			if d.IP6 != nil {
				return strconv.Itoa(int(d.IP6.HopLimit)), nil
			}
			return "", nil
		}},
		{"tcp.srcport", func(d *parser.Decoded) (string, error) {
			if d.TCP == nil {
				return "", nil
			}
			return strconv.Itoa(int(d.TCP.SrcPort)), nil
		}},
		{"tcp.dstport", func(d *parser.Decoded) (string, error) {
			if d.TCP == nil {
				return "", nil
			}
			return strconv.Itoa(int(d.TCP.DstPort)), nil
		}},
		{"udp.srcport", func(d *parser.Decoded) (string, error) {
			if d.UDP == nil {
				return "", nil
			}
			return strconv.Itoa(int(d.UDP.SrcPort)), nil
		}},
		{"udp.dstport", func(d *parser.Decoded) (string, error) {
			if d.UDP == nil {
				return "", nil
			}
			return strconv.Itoa(int(d.UDP.DstPort)), nil
		}},
		{"tcp.flags", func(d *parser.Decoded) (string, error) {
			if d.TCP == nil {
				return "", nil
			}
			return fmt.Sprintf("0x%04x", tcpFlagBits(d)), nil
		}},
		{"tls.record.content_type", func(d *parser.Decoded) (string, error) {
			if d.TLS == nil {
				return "", nil
			}
			return strconv.Itoa(int(d.TLS.ContentType)), nil
		}},
		{"tcp.window_size", func(d *parser.Decoded) (string, error) {
			if d.TCP == nil {
				return "", nil
			}
			return strconv.Itoa(int(d.TCP.Window)), nil
		}},
		{"tcp.payload", func(d *parser.Decoded) (string, error) {
			if d.TCP == nil || len(d.TCP.Payload) == 0 {
				return "", nil
			}
			return hexEncode(d.TCP.Payload), nil
		}},
		{"udp.payload", func(d *parser.Decoded) (string, error) {
			if d.UDP == nil || len(d.UDP.Payload) == 0 {
				return "", nil
			}
			return hexEncode(d.UDP.Payload), nil
		}},
	}
}

// Frame timestamp as epoch seconds.
func epoch(d *parser.Decoded) float64 {
	return float64(d.Raw.Info.Timestamp.UnixNano()) / 1e9
}

// TCP flag word in tshark bit order.
func tcpFlagBits(d *parser.Decoded) int {
	t := d.TCP
	bits := 0
	if t.FIN {
		bits |= 0x001
	}
	if t.SYN {
		bits |= 0x002
	}
	if t.RST {
		bits |= 0x004
	}
	if t.PSH {
		bits |= 0x008
	}
	if t.ACK {
		bits |= 0x010
	}
	if t.URG {
		bits |= 0x020
	}
	if t.ECE {
		bits |= 0x040
	}
	if t.CWR {
		bits |= 0x080
	}
	if t.NS {
		bits |= 0x100
	}
	return bits
}

// Lower-case hex without separators, the decoder's payload format.
func hexEncode(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, 0, len(b)*2)
	for _, c := range b {
		out = append(out, digits[c>>4], digits[c&0x0f])
	}
	return string(out)
}

// Evaluates one field, converting an extractor panic into a refusal
// error so the caller can degrade the field table.
func extractField(f Field, d *parser.Decoded) (value string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("field %s refused: %v", f.Name, r)
		}
	}()
	return f.Extract(d)
}
