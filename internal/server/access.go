package server

import (
	"fmt"
	"net/http"
)

type AccessMode int

const (
	// AccessPublic routes never look at credentials.
	AccessPublic AccessMode = iota
	// AccessOptional routes resolve the caller when a valid access token is
	// present and continue anonymously otherwise.
	AccessOptional
	// AccessRequired routes answer 401 without a valid access token.
	AccessRequired
)

type AccessRule struct {
	Method string
	Path   string
	Mode   AccessMode
}

var endpointAccess = []AccessRule{
	{Method: http.MethodGet, Path: "/", Mode: AccessPublic},
	{Method: http.MethodGet, Path: "/health", Mode: AccessPublic},

	{Method: http.MethodPost, Path: "/api/auth/signup", Mode: AccessPublic},
	{Method: http.MethodPost, Path: "/api/auth/login", Mode: AccessPublic},
	{Method: http.MethodPost, Path: "/api/auth/logout", Mode: AccessPublic},
	{Method: http.MethodPost, Path: "/api/auth/refresh", Mode: AccessPublic},
	{Method: http.MethodGet, Path: "/api/auth/confirm-email/{token}", Mode: AccessPublic},
	{Method: http.MethodPost, Path: "/api/auth/resend-confirmation", Mode: AccessPublic},

	{Method: http.MethodGet, Path: "/api/auth/status", Mode: AccessOptional},

	{Method: http.MethodGet, Path: "/api/auth/me", Mode: AccessRequired},
}

func accessMode(method, path string) AccessMode {
	for _, rule := range endpointAccess {
		if rule.Method == method && rule.Path == path {
			return rule.Mode
		}
	}
	panic(fmt.Sprintf("missing access mode for %s %s", method, path))
}
