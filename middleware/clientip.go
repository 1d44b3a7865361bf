package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// proxyHeaders are consulted in order when proxy headers are trusted.
var proxyHeaders = []string{
	"CF-Connecting-IP",
	"DO-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// ClientIP returns the caller's address. With trustProxy set, the first valid
// address from proxyHeaders wins (leftmost entry of X-Forwarded-For); otherwise
// only RemoteAddr is used.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		for _, name := range proxyHeaders {
			value := r.Header.Get(name)
			if value == "" {
				continue
			}
			if name == "X-Forwarded-For" {
				value, _, _ = strings.Cut(value, ",")
			}
			if ip, ok := parseIP(value); ok {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip, ok := parseIP(host); ok {
		return ip
	}
	return ""
}

func parseIP(value string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(value))
	if err != nil {
		return "", false
	}
	return addr.Unmap().String(), true
}
