package mcpserver

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
)

// IPAuthMiddleware provides IP-based access control for the MCP server
type IPAuthMiddleware struct {
	allowedIPs    []string
	allowedNets   []*net.IPNet
	enableLogging bool
}

// NewIPAuthMiddleware creates a new IP authentication middleware
func NewIPAuthMiddleware(allowedIPs []string, enableLogging bool) (*IPAuthMiddleware, error) {
	if len(allowedIPs) == 0 {
		return nil, fmt.Errorf("no allowed IPs specified")
	}

	middleware := &IPAuthMiddleware{
		allowedIPs:    allowedIPs,
		allowedNets:   make([]*net.IPNet, 0),
		enableLogging: enableLogging,
	}

	// Accept both CIDR blocks and individual addresses
	for _, ipStr := range allowedIPs {
		ipStr = strings.TrimSpace(ipStr)
		if ipStr == "" {
			continue
		}

		if strings.Contains(ipStr, "/") {
			_, network, err := net.ParseCIDR(ipStr)
			if err != nil {
				return nil, fmt.Errorf("invalid CIDR block %s: %v", ipStr, err)
			}
			middleware.allowedNets = append(middleware.allowedNets, network)
		} else {
			ip := net.ParseIP(ipStr)
			if ip == nil {
				return nil, fmt.Errorf("invalid IP address: %s", ipStr)
			}

			var cidr string
			if ip.To4() != nil {
				cidr = ipStr + "/32"
			} else {
				cidr = ipStr + "/128"
			}

			_, network, err := net.ParseCIDR(cidr)
			if err != nil {
				return nil, fmt.Errorf("failed to create CIDR for IP %s: %v", ipStr, err)
			}
			middleware.allowedNets = append(middleware.allowedNets, network)
		}
	}

	if middleware.enableLogging {
		log.Printf("IP Auth Middleware initialized with %d allowed IP ranges", len(middleware.allowedNets))
	}

	return middleware, nil
}

// Middleware returns the HTTP middleware function
func (m *IPAuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := extractClientIPFromRequest(r)

		if !m.isIPAllowed(clientIP) {
			if m.enableLogging {
				log.Printf("Access denied for IP: %s (Path: %s, Method: %s, User-Agent: %s)",
					clientIP, r.URL.Path, r.Method, r.Header.Get("User-Agent"))
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			if _, err := w.Write([]byte(`{"error": {"code": -32603, "message": "Access denied: IP not authorized"}}`)); err != nil {
				log.Printf("Failed to write error response: %v", err)
			}
			return
		}

		if m.enableLogging {
			log.Printf("Access granted for IP: %s (Path: %s, Method: %s)",
				clientIP, r.URL.Path, r.Method)
		}

		ctx := context.WithValue(r.Context(), clientIPContextKey, clientIP)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs, the first one is the client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			clientIP := strings.TrimSpace(ips[0])
			if clientIP != "" {
				return clientIP
			}
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// isIPAllowed checks if the given IP is in the allowed list
func (m *IPAuthMiddleware) isIPAllowed(ipStr string) bool {
	if ipStr == "" {
		return false
	}

	clientIP := net.ParseIP(ipStr)
	if clientIP == nil {
		if m.enableLogging {
			log.Printf("Failed to parse client IP: %s", ipStr)
		}
		return false
	}

	for _, network := range m.allowedNets {
		if network.Contains(clientIP) {
			return true
		}
	}

	return false
}

// GetAllowedIPs returns the list of allowed IP addresses/ranges
func (m *IPAuthMiddleware) GetAllowedIPs() []string {
	return m.allowedIPs
}

// IsIPAllowed provides a public method to check if an IP is allowed
func (m *IPAuthMiddleware) IsIPAllowed(ipStr string) bool {
	return m.isIPAllowed(ipStr)
}

// LocalhostIPs contains common localhost IP addresses
var LocalhostIPs = []string{"127.0.0.1", "::1"}
