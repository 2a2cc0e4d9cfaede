/**
 * Frame Decoder.
 *
 * Decodes raw captured frames down to the transport layer and exposes
 * the handful of views the pipeline needs: the canonical 5-tuple, the
 * tshark-style protocol chain, and typed accessors for the feature
 * extractor's field table.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package parser

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/kleaSCM/iotscope/internal/capture"
	"github.com/kleaSCM/iotscope/internal/models"
)

// A frame decoded down to L4. Layer pointers are nil when the layer is
// absent. TLS reflects a record header at the start of the TCP payload.
type Decoded struct {
	Raw capture.RawPacket

	Eth *layers.Ethernet
	IP4 *layers.IPv4
	IP6 *layers.IPv6
	TCP *layers.TCP
	UDP *layers.UDP
	TLS *TLSRecord
}

// Decodes one frame. Malformed frames return an error so callers can
// skip them with a recoverable warning.
func Decode(raw capture.RawPacket, link layers.LinkType) (*Decoded, error) {
	pkt := gopacket.NewPacket(raw.Data, link, gopacket.Lazy)
	if errLayer := pkt.ErrorLayer(); errLayer != nil && pkt.Layer(layers.LayerTypeEthernet) == nil {
		return nil, fmt.Errorf("malformed frame: %v", errLayer.Error())
	}

	d := &Decoded{Raw: raw}
	if l := pkt.Layer(layers.LayerTypeEthernet); l != nil {
		d.Eth = l.(*layers.Ethernet)
	}
	if l := pkt.Layer(layers.LayerTypeIPv4); l != nil {
		d.IP4 = l.(*layers.IPv4)
	}
	if l := pkt.Layer(layers.LayerTypeIPv6); l != nil {
		d.IP6 = l.(*layers.IPv6)
	}
	if l := pkt.Layer(layers.LayerTypeTCP); l != nil {
		d.TCP = l.(*layers.TCP)
		d.TLS = SniffTLSRecord(d.TCP.Payload)
	}
	if l := pkt.Layer(layers.LayerTypeUDP); l != nil {
		d.UDP = l.(*layers.UDP)
	}
	return d, nil
}

// Reports whether the frame carries both an IP layer and TCP or UDP.
func (d *Decoded) HasFlow() bool {
	return (d.IP4 != nil || d.IP6 != nil) && (d.TCP != nil || d.UDP != nil)
}

// Returns the canonical bidirectional flow key of the frame. ok is false
// when the frame has no IP or no TCP/UDP layer.
func (d *Decoded) FlowKey() (models.FlowKey, bool) {
	if !d.HasFlow() {
		return models.FlowKey{}, false
	}

	srcIP, dstIP := d.ipAddrs()
	var srcPort, dstPort uint16
	var proto uint8
	if d.TCP != nil {
		srcPort, dstPort, proto = uint16(d.TCP.SrcPort), uint16(d.TCP.DstPort), 6
	} else {
		srcPort, dstPort, proto = uint16(d.UDP.SrcPort), uint16(d.UDP.DstPort), 17
	}
	return models.CanonicalFlowKey(srcIP, srcPort, dstIP, dstPort, proto), true
}

// Source and destination IP strings, preferring IPv4.
func (d *Decoded) ipAddrs() (string, string) {
	if d.IP4 != nil {
		return d.IP4.SrcIP.String(), d.IP4.DstIP.String()
	}
	if d.IP6 != nil {
		return d.IP6.SrcIP.String(), d.IP6.DstIP.String()
	}
	return "", ""
}

// Builds the tshark-style frame.protocols chain for the decoded layers,
// e.g. "eth:ethertype:ip:tcp:tls". Downstream filters test this string
// for "tcp", "udp" and "tls" membership.
func (d *Decoded) ProtocolChain() string {
	chain := "eth:ethertype"
	switch {
	case d.IP4 != nil:
		chain += ":ip"
	case d.IP6 != nil:
		chain += ":ipv6"
	default:
		return "eth"
	}
	switch {
	case d.TCP != nil:
		chain += ":tcp"
		if d.TLS != nil {
			chain += ":tls"
		}
	case d.UDP != nil:
		chain += ":udp"
	}
	return chain
}

// L4 payload bytes of the frame, nil when neither TCP nor UDP.
func (d *Decoded) TransportPayload() []byte {
	if d.TCP != nil {
		return d.TCP.Payload
	}
	if d.UDP != nil {
		return d.UDP.Payload
	}
	return nil
}
