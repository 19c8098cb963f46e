// internal/app/system/ratelimit/proxy.go
package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync/atomic"
)

// trusted holds the proxy prefixes whose forwarding headers are honoured.
// Nil trusts nobody, so ClientIP is always the socket peer.
var trusted atomic.Pointer[[]netip.Prefix]

// ParseTrustedProxies parses CIDRs or bare addresses into prefixes.
func ParseTrustedProxies(list []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(list))
	for _, s := range list {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if strings.Contains(s, "/") {
			p, err := netip.ParsePrefix(s)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", s, err)
			}
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", s, err)
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}

// SetTrustedProxies replaces the trusted proxy list used by ClientIP.
func SetTrustedProxies(list []string) error {
	prefixes, err := ParseTrustedProxies(list)
	if err != nil {
		return err
	}
	if len(prefixes) == 0 {
		trusted.Store(nil)
		return nil
	}
	trusted.Store(&prefixes)
	return nil
}

func isTrusted(ip string) bool {
	list := trusted.Load()
	if list == nil {
		return false
	}
	a, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	a = a.Unmap()
	for _, p := range *list {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

// ClientIP returns the address a request is attributed to.
//
// The socket peer is used unless it is a trusted proxy. Behind a trusted
// proxy, X-Forwarded-For is read right to left and the first hop that is
// not itself trusted wins; X-Real-IP is the fallback.
func ClientIP(r *http.Request) string {
	peer := remoteHost(r.RemoteAddr)
	if !isTrusted(peer) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !isTrusted(hop) {
				return hop
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return peer
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		// RemoteAddr might not have a port
		return addr
	}
	return host
}
