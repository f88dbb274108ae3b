package server

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"sixtylens/internal/auth"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeServiceError maps auth errors to status codes. Anything that is not an
// *auth.Error is logged and reported as a 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var authErr *auth.Error
	if !errors.As(err, &authErr) {
		s.Logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.Logger.DebugContext(r.Context(), "request rejected", "path", r.URL.Path, "kind", authErr.Kind.String(), "reason", authErr.Reason)
	switch authErr.Kind {
	case auth.KindUnauthorized:
		writeError(w, http.StatusUnauthorized, authErr.Message)
	case auth.KindForbidden:
		writeError(w, http.StatusForbidden, authErr.Message)
	case auth.KindBadRequest:
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": authErr.Message, "reason": authErr.Reason})
	case auth.KindConflict:
		writeError(w, http.StatusBadRequest, authErr.Message)
	default:
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON reads a single JSON object and rejects unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

func clientIP(r *http.Request, trusted []netip.Prefix) string {
	remoteHost, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || remoteHost == "" {
		remoteHost = r.RemoteAddr
	}

	// Forwarded headers count only when the direct peer is a trusted proxy.
	if remoteHost != "" && isTrustedProxy(remoteHost, trusted) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xrip := strings.TrimSpace(r.Header.Get("X-Real-IP")); xrip != "" {
			return xrip
		}
	}

	return remoteHost
}

// parseProxyPrefixes accepts bare addresses and CIDR ranges; invalid entries
// are skipped.
func parseProxyPrefixes(values []string) []netip.Prefix {
	var prefixes []netip.Prefix
	for _, v := range values {
		val := strings.TrimSpace(v)
		if val == "" {
			continue
		}
		if addr, err := netip.ParseAddr(val); err == nil {
			prefixes = append(prefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
			continue
		}
		if prefix, err := netip.ParsePrefix(val); err == nil {
			prefixes = append(prefixes, prefix.Masked())
		}
	}
	return prefixes
}

func isTrustedProxy(host string, proxies []netip.Prefix) bool {
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
