// internal/app/system/clientinfo/clientinfo.go
package clientinfo

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

// Device types recorded for pin views and logins.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
)

// UnknownLocation is recorded when the request carries no location header.
const UnknownLocation = "unknown"

const maxLocationLen = 32

// DeviceType classifies a User-Agent string. Tablets are checked first
// because iPad agents also report as mobile. Android tablets are Android
// agents without the "Mobile" token.
func DeviceType(ua string) string {
	if ua == "" {
		return DeviceDesktop
	}
	p := useragent.New(ua)
	android := strings.Contains(p.OS(), "Android") || strings.Contains(ua, "Android")

	switch {
	case p.Platform() == "iPad", strings.Contains(ua, "Tablet"):
		return DeviceTablet
	case android && !strings.Contains(ua, "Mobile"):
		return DeviceTablet
	case p.Mobile(), android, p.Platform() == "iPhone", strings.HasPrefix(p.Platform(), "iPod"):
		return DeviceMobile
	default:
		return DeviceDesktop
	}
}

// Location reads the viewer's location from CF-IPCountry (set by the CDN)
// or X-Client-Location (set by the mobile app). The value becomes part of a
// field path, so anything outside [A-Za-z0-9_-] is dropped.
func Location(r *http.Request) string {
	raw := r.Header.Get("CF-IPCountry")
	if raw == "" {
		raw = r.Header.Get("X-Client-Location")
	}
	var b strings.Builder
	for _, c := range strings.ToUpper(strings.TrimSpace(raw)) {
		if b.Len() >= maxLocationLen {
			break
		}
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			b.WriteRune(c)
		}
	}
	if b.Len() == 0 {
		return UnknownLocation
	}
	return b.String()
}
