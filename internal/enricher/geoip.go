/**
 * GeoIP Enrichment Service.
 *
 * Provides geographical context for session remote endpoints using
 * MaxMind GeoLite2 databases. Enrichment is optional: a nil service is
 * valid and all lookups degrade to empty data.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package enricher

import (
	"fmt"
	"net"
	"sync"

	"github.com/oschwald/geoip2-golang"
)

// GeoData holds the extracted geographical information.
type GeoData struct {
	Country string
	City    string
	ASN     string
	Org     string
}

// GeoIPService handles IP-to-Location lookups.
type GeoIPService struct {
	cityDB *geoip2.Reader
	asnDB  *geoip2.Reader
	mu     sync.RWMutex
}

// NewGeoIPService creates a new service instance.
// cityPath and asnPath should be absolute paths to the .mmdb files.
func NewGeoIPService(cityPath, asnPath string) (*GeoIPService, error) {
	service := &GeoIPService{}

	if cityPath != "" {
		db, err := geoip2.Open(cityPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open City DB: %w", err)
		}
		service.cityDB = db
	}

	if asnPath != "" {
		db, err := geoip2.Open(asnPath)
		if err != nil {
			if service.cityDB != nil {
				service.cityDB.Close()
			}
			return nil, fmt.Errorf("failed to open ASN DB: %w", err)
		}
		service.asnDB = db
	}

	return service, nil
}

// Close closes the database readers.
func (s *GeoIPService) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cityDB != nil {
		s.cityDB.Close()
	}
	if s.asnDB != nil {
		s.asnDB.Close()
	}
}

// Lookup retrieves geographical data for a given IP address.
func (s *GeoIPService) Lookup(ipStr string) (*GeoData, error) {
	if s == nil {
		return &GeoData{}, nil
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return nil, fmt.Errorf("invalid IP address: %s", ipStr)
	}

	data := &GeoData{}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cityDB != nil {
		record, err := s.cityDB.City(ip)
		if err == nil {
			data.Country = record.Country.IsoCode
			if len(record.Subdivisions) > 0 {
				data.City = record.Subdivisions[0].Names["en"]
			}
			if record.City.Names["en"] != "" {
				data.City = record.City.Names["en"]
			}
		}
	}

	if s.asnDB != nil {
		record, err := s.asnDB.ASN(ip)
		if err == nil {
			data.ASN = fmt.Sprintf("AS%d", record.AutonomousSystemNumber)
			data.Org = record.AutonomousSystemOrganization
		}
	}

	return data, nil
}

// Reports whether an IP is in private (RFC1918 / link-local / loopback)
// space. Used to pick the remote endpoint of a session for enrichment.
func IsPrivateIP(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast()
}
