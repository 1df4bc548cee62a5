package utils

import (
	"net"
	"net/http"
	"strings"
)

// RemoteIp returns the client address, honoring proxy forwarding headers.
func RemoteIp(req *http.Request) string {
	remoteAddr := req.RemoteAddr
	if ip := req.Header.Get("X-Real-IP"); ip != "" {
		remoteAddr = ip
	} else if ip = req.Header.Get("X-Forwarded-For"); ip != "" {
		remoteAddr = strings.Split(ip, ",")[0]
	} else if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		remoteAddr = host
	}

	if remoteAddr == "::1" {
		remoteAddr = "127.0.0.1"
	}
	return strings.TrimSpace(remoteAddr)
}
