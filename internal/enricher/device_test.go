/**
 * Device Table Tests.
 *
 * Unit tests for MAC normalisation, lookup, and direction judgement.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package enricher

import (
	"testing"

	"github.com/kleaSCM/iotscope/internal/models"
)

func TestDeviceTableLookup(t *testing.T) {
	table := NewDeviceTable(map[string]string{
		"camera": "AA:BB:CC:DD:EE:01",
		"plug":   " b0:f1:ec:d4:26:ae ",
	})

	if table.Len() != 2 {
		t.Fatalf("Len = %d, want 2", table.Len())
	}

	mac, ok := table.MACFor("camera")
	if !ok || mac != "aa:bb:cc:dd:ee:01" {
		t.Errorf("MACFor(camera) = %q, %v", mac, ok)
	}

	name, ok := table.DeviceFor("AA:bb:CC:dd:EE:01")
	if !ok || name != "camera" {
		t.Errorf("DeviceFor = %q, %v; lookup must be case-insensitive", name, ok)
	}

	if _, ok := table.DeviceFor("ff:ff:ff:ff:ff:ff"); ok {
		t.Error("unknown MAC resolved")
	}

	names := table.Names()
	if len(names) != 2 || names[0] != "camera" || names[1] != "plug" {
		t.Errorf("Names = %v, want sorted", names)
	}
}

func TestDeviceTableDirection(t *testing.T) {
	table := NewDeviceTable(map[string]string{"camera": "aa:bb:cc:dd:ee:01"})

	tests := []struct {
		name string
		src  string
		dst  string
		want int
	}{
		{"device sends", "aa:bb:cc:dd:ee:01", "08:00:27:00:00:01", models.DirectionDeviceToNet},
		{"device receives", "08:00:27:00:00:01", "aa:bb:cc:dd:ee:01", models.DirectionNetToDevice},
		{"unrelated traffic", "08:00:27:00:00:01", "08:00:27:00:00:02", models.DirectionUnknown},
		{"uppercase source", "AA:BB:CC:DD:EE:01", "08:00:27:00:00:01", models.DirectionDeviceToNet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := table.Direction(tt.src, tt.dst); got != tt.want {
				t.Errorf("Direction = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"192.168.1.5", true},
		{"10.0.0.1", true},
		{"127.0.0.1", true},
		{"34.210.2.7", false},
		{"8.8.8.8", false},
		{"not-an-ip", false},
	}
	for _, tt := range tests {
		if got := IsPrivateIP(tt.ip); got != tt.want {
			t.Errorf("IsPrivateIP(%s) = %v, want %v", tt.ip, got, tt.want)
		}
	}
}
