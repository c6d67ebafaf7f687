package http

import (
	"net/http"
	"strings"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// userAndID returns the authenticated user and the ?id= target.
func userAndID(r *http.Request) (string, string, error) {
	user, err := userID(r)
	if err != nil {
		return "", "", err
	}
	id, err := RequireID(r)
	if err != nil {
		return "", "", err
	}
	return user, id, nil
}
