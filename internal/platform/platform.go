package platform

import (
	"net/url"
	"strings"

	"github.com/jgivc/vidrelay/internal/entity"
)

// hostTags is the fixed allow-list of recognized providers. A host matches
// when it equals the fragment or is a subdomain of it, so netflix.com does
// not match x.com.
var hostTags = []struct {
	fragment string
	tag      entity.Platform
}{
	{"youtube.com", entity.PlatformYouTube},
	{"youtu.be", entity.PlatformYouTube},
	{"twitter.com", entity.PlatformTwitter},
	{"x.com", entity.PlatformTwitter},
	{"instagram.com", entity.PlatformInstagram},
	{"facebook.com", entity.PlatformFacebook},
	{"fb.watch", entity.PlatformFacebook},
}

// Detect classifies rawURL by its hostname. Malformed, empty or foreign
// URLs come back unrecognized, never as an error.
func Detect(rawURL string) entity.Platform {
	if rawURL == "" {
		return entity.PlatformUnrecognized
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return entity.PlatformUnrecognized
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return entity.PlatformUnrecognized
	}

	for _, ht := range hostTags {
		if host == ht.fragment || strings.HasSuffix(host, "."+ht.fragment) {
			return ht.tag
		}
	}

	return entity.PlatformUnrecognized
}
