/**
 * Device Table.
 *
 * The pre-supplied device ↔ MAC mapping. Set once at startup and shared
 * read-only by every worker: direction judgement during feature
 * extraction and per-device demultiplexing of mixed test captures both
 * key off it.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package enricher

import (
	"sort"
	"strings"

	"github.com/kleaSCM/iotscope/internal/models"
)

// Read-only device name → MAC address table.
type DeviceTable struct {
	byName map[string]string // name -> normalised MAC
	byMAC  map[string]string // normalised MAC -> name
	names  []string
}

// Builds a table from the configured mapping. MACs are normalised to
// lower case so capture-decoder output compares directly.
func NewDeviceTable(mapping map[string]string) *DeviceTable {
	t := &DeviceTable{
		byName: make(map[string]string, len(mapping)),
		byMAC:  make(map[string]string, len(mapping)),
	}
	for name, mac := range mapping {
		norm := strings.ToLower(strings.TrimSpace(mac))
		t.byName[name] = norm
		t.byMAC[norm] = name
		t.names = append(t.names, name)
	}
	sort.Strings(t.names)
	return t
}

// Returns the MAC registered for a device name.
func (t *DeviceTable) MACFor(name string) (string, bool) {
	mac, ok := t.byName[name]
	return mac, ok
}

// Returns the device name owning a MAC address.
func (t *DeviceTable) DeviceFor(mac string) (string, bool) {
	name, ok := t.byMAC[strings.ToLower(mac)]
	return name, ok
}

// Device names in deterministic (sorted) order.
func (t *DeviceTable) Names() []string {
	return t.names
}

// Number of registered devices.
func (t *DeviceTable) Len() int {
	return len(t.byName)
}

// Judges the traffic direction of a frame from its MAC pair: +1 when a
// registered device sent it, -1 when a registered device received it,
// 0 when neither address is known.
func (t *DeviceTable) Direction(ethSrc, ethDst string) int {
	if _, ok := t.byMAC[strings.ToLower(ethSrc)]; ok {
		return models.DirectionDeviceToNet
	}
	if _, ok := t.byMAC[strings.ToLower(ethDst)]; ok {
		return models.DirectionNetToDevice
	}
	return models.DirectionUnknown
}
