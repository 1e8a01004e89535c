package httpserver

import "strings"

// displayName derives a human-readable sender name from a User-Agent
// string. Order matters: Chrome ships a Safari token and Edge ships both.
func displayName(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case ua == "":
		return "Unknown"
	case strings.Contains(ua, "edg/"), strings.Contains(ua, "edge/"):
		return "Edge"
	case strings.Contains(ua, "opr/"), strings.Contains(ua, "opera"):
		return "Opera"
	case strings.Contains(ua, "chrome/"):
		return "Chrome"
	case strings.Contains(ua, "safari/"):
		return "Safari"
	case strings.Contains(ua, "firefox/"):
		return "Firefox"
	case strings.Contains(ua, "curl/"):
		return "curl"
	case strings.Contains(ua, "wget/"):
		return "Wget"
	default:
		if name, _, ok := strings.Cut(userAgent, "/"); ok && name != "" {
			return name
		}
		return "Unknown"
	}
}
