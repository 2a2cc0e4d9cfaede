/**
 * Flow Model Tests.
 *
 * Unit tests for flow-key canonicalisation and file naming.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package models

import "testing"

func TestCanonicalFlowKeyInvolutive(t *testing.T) {
	tests := []struct {
		name  string
		srcIP string
		sport uint16
		dstIP string
		dport uint16
		proto uint8
	}{
		{"UDP beacon", "192.168.1.5", 49152, "34.210.2.7", 443, 17},
		{"TCP session", "10.0.0.2", 55000, "8.8.8.8", 53, 6},
		{"Same IP both ends", "192.168.1.5", 2000, "192.168.1.5", 1000, 6},
		{"Ports equal", "1.2.3.4", 443, "4.3.2.1", 443, 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forward := CanonicalFlowKey(tt.srcIP, tt.sport, tt.dstIP, tt.dport, tt.proto)
			reverse := CanonicalFlowKey(tt.dstIP, tt.dport, tt.srcIP, tt.sport, tt.proto)
			if forward != reverse {
				t.Errorf("canonicalisation not involutive: %v != %v", forward, reverse)
			}
		})
	}
}

func TestCanonicalFlowKeyPicksSmallerTuple(t *testing.T) {
	key := CanonicalFlowKey("9.9.9.9", 80, "1.1.1.1", 50000, 6)
	if key.SrcIP != "1.1.1.1" || key.SrcPort != 50000 {
		t.Errorf("expected the lexicographically smaller orientation, got %v", key)
	}
}

func TestFlowKeyFileStem(t *testing.T) {
	key := FlowKey{SrcIP: "192.168.1.5", SrcPort: 49152, DstIP: "34.210.2.7", DstPort: 443, Protocol: 17}
	want := "192.168.1.5_49152_34.210.2.7_443_17"
	if got := key.FileStem(); got != want {
		t.Errorf("FileStem() = %q, want %q", got, want)
	}
}

func TestProtocolType(t *testing.T) {
	tests := []struct {
		protocols string
		want      string
	}{
		{"eth:ethertype:ip:tcp:tls", ProtoTCP},
		{"eth:ethertype:ip:tcp", ProtoTCP},
		{"eth:ethertype:ip:udp", ProtoUDP},
		{"eth:ethertype:ip", ProtoUnknown},
		{"", ProtoUnknown},
	}
	for _, tt := range tests {
		if got := ProtocolType(tt.protocols); got != tt.want {
			t.Errorf("ProtocolType(%q) = %q, want %q", tt.protocols, got, tt.want)
		}
	}
}

func TestRecordPayloadPicksTransport(t *testing.T) {
	rec := Record{Protocols: "eth:ethertype:ip:udp", TCPPayload: "aa", UDPPayload: "bb"}
	if got := rec.Payload(); got != "bb" {
		t.Errorf("Payload() = %q, want %q", got, "bb")
	}
	rec.Protocols = "eth:ethertype:ip:tcp"
	if got := rec.Payload(); got != "aa" {
		t.Errorf("Payload() = %q, want %q", got, "aa")
	}
}
