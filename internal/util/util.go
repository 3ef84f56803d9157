package util

import (
	"net"
	"regexp"
	"strings"
)

const fallbackTitle = "video"

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// SanitizeTitle reduces a media title to a filesystem- and header-safe
// token. Letters and digits survive, anything else becomes an underscore
// and the result is lowercased. Titles with no usable characters fall back
// to a fixed name.
func SanitizeTitle(title string) string {
	token := strings.ToLower(nonAlnum.ReplaceAllString(title, "_"))
	if strings.Trim(token, "_") == "" {
		return fallbackTitle
	}

	return token
}

// ClientAddr is the rate-limit key for a request: the host part of the peer
// address. Addresses without a port pass through unchanged.
func ClientAddr(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}

	return host
}
