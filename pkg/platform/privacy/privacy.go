// Package privacy reduces participant data to forms that are safe to log.
package privacy

import "net/netip"

// AnonymizeIP keeps only the network prefix of an address: /24 for IPv4
// (including IPv4-mapped IPv6) and /48 for IPv6.
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

// MaskIdentity shortens an identity for log output. Wallet addresses keep
// the familiar "0x5290...9ee7" shape; short tokens keep three characters.
func MaskIdentity(identity string) string {
	switch n := len(identity); {
	case n == 0:
		return ""
	case n <= 3:
		return "***"
	case n <= 10:
		return identity[:3] + "***"
	default:
		return identity[:6] + "..." + identity[n-4:]
	}
}
