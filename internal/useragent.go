package internal

import (
	"regexp"
	"strings"
)

// Client is the coarse classification stored on a session.
type Client struct {
	Device  string
	Browser string
	OS      string
}

var (
	tabletPattern = regexp.MustCompile(`tablet|ipad|playbook|silk`)
	mobilePattern = regexp.MustCompile(`mobile|ip(hone|od)|android|blackberry|iemobile|kindle|(hpw|web)os|opera m(obi|ini)`)
)

// ParseUserAgent classifies a User-Agent header. Unknown parts are labelled
// rather than left blank.
func ParseUserAgent(userAgent string) Client {
	if strings.TrimSpace(userAgent) == "" {
		return Client{Device: "Unknown Device", Browser: "Unknown Browser", OS: "Unknown OS"}
	}
	ua := strings.ToLower(userAgent)
	return Client{
		Device:  deviceOf(ua),
		Browser: browserOf(ua),
		OS:      osOf(ua),
	}
}

func deviceOf(ua string) string {
	switch {
	case tabletPattern.MatchString(ua),
		strings.Contains(ua, "android") && !strings.Contains(ua, "mobi"):
		return "Tablet"
	case mobilePattern.MatchString(ua):
		return "Mobile"
	default:
		return "Desktop"
	}
}

// Order matters: Edge and Opera also advertise Chrome, Chrome advertises Safari.
func browserOf(ua string) string {
	switch {
	case strings.Contains(ua, "edg/"):
		return "Edge"
	case strings.Contains(ua, "opr/") || strings.Contains(ua, "opera"):
		return "Opera"
	case strings.Contains(ua, "chrome"):
		return "Chrome"
	case strings.Contains(ua, "firefox"):
		return "Firefox"
	case strings.Contains(ua, "safari"):
		return "Safari"
	case strings.Contains(ua, "trident") || strings.Contains(ua, "msie"):
		return "Internet Explorer"
	case strings.Contains(ua, "postman"):
		return "Postman"
	default:
		return "Unknown Browser"
	}
}

func osOf(ua string) string {
	switch {
	case strings.Contains(ua, "windows nt 10.0"):
		return "Windows 10"
	case strings.Contains(ua, "windows nt 6.3"):
		return "Windows 8.1"
	case strings.Contains(ua, "windows nt 6.2"):
		return "Windows 8"
	case strings.Contains(ua, "windows nt 6.1"):
		return "Windows 7"
	case strings.Contains(ua, "windows"):
		return "Windows"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad"):
		return "iOS"
	case strings.Contains(ua, "mac os x"):
		return "macOS"
	case strings.Contains(ua, "android"):
		return "Android"
	case strings.Contains(ua, "linux"):
		return "Linux"
	default:
		return "Unknown OS"
	}
}
