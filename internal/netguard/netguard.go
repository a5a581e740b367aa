// Package netguard keeps outbound fetches of user-controlled URLs away from
// loopback, private and link-local addresses.
package netguard

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/bobmcallan/bagboard/internal/models"
)

// cgnat is the carrier-grade NAT range, not covered by net.IP.IsPrivate.
var cgnat = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

// Policy decides which addresses a client may reach.
type Policy struct {
	// AllowPrivate disables every check. Only tests set it.
	AllowPrivate bool
}

// BlockedIP reports whether ip is not a public unicast address.
func BlockedIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() ||
		cgnat.Contains(ip)
}

// CheckHost rejects localhost names and literal blocked addresses before a
// request is made. Names that resolve to blocked addresses are caught by
// Control at dial time.
func (p *Policy) CheckHost(host string) error {
	if p.AllowPrivate {
		return nil
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("host %s is not allowed: %w", host, models.ErrForbidden)
	}
	if ip := net.ParseIP(host); ip != nil && BlockedIP(ip) {
		return fmt.Errorf("address %s is not allowed: %w", host, models.ErrForbidden)
	}
	return nil
}

// Control is a net.Dialer control hook that runs after DNS resolution.
func (p *Policy) Control(network, addr string, _ syscall.RawConn) error {
	if p.AllowPrivate {
		return nil
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if ip := net.ParseIP(host); ip != nil && BlockedIP(ip) {
		return fmt.Errorf("address %s is not allowed: %w", host, models.ErrForbidden)
	}
	return nil
}

// Transport returns an http.Transport whose every connection goes through
// Control. Redirects are covered since each hop dials again. Environment
// proxies are ignored so the dial target is always the real host.
func (p *Policy) Transport() *http.Transport {
	dialer := &net.Dialer{
		Timeout: 5 * time.Second,
		Control: p.Control,
	}
	return &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
		MaxIdleConns:        20,
		IdleConnTimeout:     60 * time.Second,
	}
}
