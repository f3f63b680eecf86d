// Package ipgeo resolves client IPs to countries using a MaxMind MMDB file.
//
// Sessions record the country so users can spot logins from unexpected places.
package ipgeo

import (
	"net/netip"

	"github.com/oschwald/maxminddb-golang/v2"
)

// Checker resolves IP addresses to ISO 3166-1 alpha-2 country codes. A nil
// Checker resolves nothing.
type Checker struct {
	reader *maxminddb.Reader
}

// Open opens an MMDB file (GeoLite2-Country or compatible).
func Open(dbPath string) (*Checker, error) {
	r, err := maxminddb.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &Checker{reader: r}, nil
}

// Close releases the MMDB reader.
func (c *Checker) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// cgnatPrefix is the shared address space 100.64.0.0/10 used by carrier
// grade NAT and overlay VPNs.
var cgnatPrefix = netip.MustParsePrefix("100.64.0.0/10")

// CountryCode returns the country code of ipStr, "local" for loopback,
// private, link-local and unspecified addresses, "cgnat" for 100.64.0.0/10
// and "" when unknown.
func (c *Checker) CountryCode(ipStr string) string {
	addr, err := netip.ParseAddr(ipStr)
	if err != nil {
		return ""
	}
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() || addr.IsLinkLocalUnicast() {
		return "local"
	}
	if cgnatPrefix.Contains(addr) {
		return "cgnat"
	}
	if c == nil || c.reader == nil {
		return ""
	}
	var rec countryRecord
	if err := c.reader.Lookup(addr).Decode(&rec); err != nil {
		return ""
	}
	return rec.Country.ISOCode
}
