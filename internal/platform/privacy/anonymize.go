// Package privacy masks client addresses before they reach access logs.
package privacy

import "net/netip"

// AnonymizeIP zeroes the host part of an address: IPv4 keeps its /24 and IPv6
// keeps its /48. IPv4-mapped IPv6 addresses are treated as IPv4.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap().WithZone("")

	bits := 48
	if addr.Is4() {
		bits = 24
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.Addr().String()
}
