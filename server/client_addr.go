package server

import (
	"net"
	"net/http"
	"strings"
)

// ClientAddr resolves the originating client address, trusting the usual
// proxy headers in preference order. Anything that does not parse as an IP
// is ignored so a forged header cannot poison a throttle key.
func ClientAddr(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// First hop is the client; later entries are proxies.
		first := strings.TrimSpace(strings.SplitN(forwarded, ",", 2)[0])
		if ip := net.ParseIP(first); ip != nil {
			return ip.String()
		}
	}
	for _, header := range []string{"X-Real-IP", "CF-Connecting-IP"} {
		if raw := strings.TrimSpace(r.Header.Get(header)); raw != "" {
			if ip := net.ParseIP(raw); ip != nil {
				return ip.String()
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
