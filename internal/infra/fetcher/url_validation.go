package fetcher

import (
	"fmt"
	"net"
	"net/url"

	"relaypool/internal/domain/entity"
)

// validateURL rejects targets that are unsafe to fetch: non-HTTP schemes,
// empty hosts, and (when denyPrivateIPs is set) hosts resolving to loopback,
// private, or link-local addresses.
func validateURL(urlStr string, denyPrivateIPs bool) error {
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("%w: parse error: %v", entity.ErrInvalidInput, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q not allowed", entity.ErrInvalidInput, u.Scheme)
	}

	hostname := u.Hostname()
	if hostname == "" {
		return fmt.Errorf("%w: empty hostname", entity.ErrInvalidInput)
	}

	if !denyPrivateIPs {
		return nil
	}

	if ip := net.ParseIP(hostname); ip != nil {
		return checkIP(ip)
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", hostname, err)
	}
	for _, ip := range ips {
		if err := checkIP(ip); err != nil {
			return err
		}
	}
	return nil
}

// checkIP blocks loopback, private, link-local, and unspecified addresses.
func checkIP(ip net.IP) error {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return fmt.Errorf("%w: address %s is not routable from here", entity.ErrInvalidInput, ip)
	}
	return nil
}
