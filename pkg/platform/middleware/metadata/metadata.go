// Package metadata records where a request came from so request logs can
// attribute traffic without each handler parsing headers.
package metadata

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

type clientKey struct{}

// Client is what the middleware captures about the caller.
type Client struct {
	IP        string
	UserAgent string
}

// ClientMetadata stores the caller's IP and User-Agent in the context.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithClient(r.Context(), Client{
			IP:        ClientIPFromRequest(r),
			UserAgent: r.Header.Get("User-Agent"),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithClient injects client metadata, for tests that skip the middleware.
func WithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, clientKey{}, c)
}

func GetClientIP(ctx context.Context) string {
	c, _ := ctx.Value(clientKey{}).(Client)
	return c.IP
}

func GetUserAgent(ctx context.Context) string {
	c, _ := ctx.Value(clientKey{}).(Client)
	return c.UserAgent
}

// ClientIPFromRequest prefers the first X-Forwarded-For hop, then
// X-Real-IP, then the socket peer. Header values that are not IPs are
// ignored.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip, ok := parseIP(first); ok {
			return ip
		}
	}
	if ip, ok := parseIP(r.Header.Get("X-Real-IP")); ok {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip, ok := parseIP(host); ok {
		return ip
	}
	return "unknown"
}

func parseIP(s string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return addr.Unmap().String(), true
}
