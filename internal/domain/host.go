package domain

import (
	"net"
	"strings"
)

// CheckPublicHost rejects hosts that name this machine or an internal
// network: localhost, single label names and loopback, private, link-local,
// multicast or unspecified IP literals. An optional port is ignored.
func CheckPublicHost(host string) error {
	name := strings.ToLower(host)
	if h, _, err := net.SplitHostPort(name); err == nil {
		name = h
	}
	name = strings.TrimSuffix(name, ".")

	if ip := net.ParseIP(name); ip != nil {
		if !PublicIP(ip) {
			return ErrPrivateHost
		}
		return nil
	}
	if name == "localhost" || strings.HasSuffix(name, ".localhost") || !strings.Contains(name, ".") {
		return ErrPrivateHost
	}
	return nil
}

// PublicIP reports whether ip is a globally routable unicast address.
func PublicIP(ip net.IP) bool {
	return !(ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified() ||
		sharedAddressSpace.Contains(ip))
}

// 100.64.0.0/10, carrier-grade NAT
var sharedAddressSpace = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}
