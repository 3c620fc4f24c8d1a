// Package metadata records who is on the other end of a request: the client
// address, the raw User-Agent and a short device label for audit events.
package metadata

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	"github.com/mssola/useragent"

	"kycgate/pkg/requestcontext"
)

// MaxForwardedHeaderLength caps X-Forwarded-For and X-Real-IP values that
// are considered at all.
const MaxForwardedHeaderLength = 500

// Middleware resolves the client address. Forwarding headers are honoured
// only when the direct peer sits in a trusted proxy range.
type Middleware struct {
	trusted []netip.Prefix
}

// New builds the middleware. With no ranges, forwarding headers are ignored.
func New(trusted ...netip.Prefix) *Middleware {
	return &Middleware{trusted: trusted}
}

// ParseTrustedProxies parses CIDR strings as they come from configuration.
func ParseTrustedProxies(cidrs []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		p, err := netip.ParsePrefix(c)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", c, err)
		}
		out = append(out, p.Masked())
	}
	return out, nil
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.Header.Get("User-Agent")
		ctx := requestcontext.WithClientMetadata(r.Context(), m.clientIP(r), ua)
		ctx = requestcontext.WithDeviceName(ctx, DeviceName(ua))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) clientIP(r *http.Request) string {
	peer, ok := peerAddr(r.RemoteAddr)
	if !ok {
		return "unknown"
	}
	if !m.trusts(peer) {
		return peer.String()
	}
	if fwd, ok := forwardedFor(r.Header); ok {
		return fwd.String()
	}
	return peer.String()
}

// forwardedFor takes the left-most X-Forwarded-For hop, then X-Real-IP.
func forwardedFor(h http.Header) (netip.Addr, bool) {
	for _, v := range []string{h.Get("X-Forwarded-For"), h.Get("X-Real-IP")} {
		if v == "" || len(v) > MaxForwardedHeaderLength {
			continue
		}
		first, _, _ := strings.Cut(v, ",")
		if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return addr.Unmap(), true
		}
	}
	return netip.Addr{}, false
}

func (m *Middleware) trusts(addr netip.Addr) bool {
	for _, p := range m.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// peerAddr accepts "host:port" as set by net/http and a bare address as set
// by some test harnesses.
func peerAddr(remote string) (netip.Addr, bool) {
	if ap, err := netip.ParseAddrPort(remote); err == nil {
		return ap.Addr().Unmap(), true
	}
	if addr, err := netip.ParseAddr(strings.Trim(remote, "[]")); err == nil {
		return addr.Unmap(), true
	}
	return netip.Addr{}, false
}

// DeviceName renders a User-Agent as "Browser on OS", e.g. "Chrome on Linux".
func DeviceName(userAgent string) string {
	if userAgent == "" {
		return "Unknown Device"
	}
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	os := ua.OS()
	if ua.Mobile() && ua.Platform() != "" {
		os = ua.Platform()
	}
	if os == "" {
		os = "Unknown OS"
	}
	return browser + " on " + os
}
