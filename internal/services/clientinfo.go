package services

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/mssola/user_agent"
)

// DeviceInfo is a device classification derived from the user-agent. All
// fields are always populated.
type DeviceInfo struct {
	Type    string `json:"type"` // mobile|desktop|tablet|unknown
	OS      string `json:"os"`
	Browser string `json:"browser"`
}

// botMarkers are matched case-insensitively against the user-agent. A hit
// excludes the request from ingestion entirely.
var botMarkers = []string{
	"googlebot", "bingbot", "yandex", "baiduspider", "duckduckbot", "slurp",
	"facebookexternalhit", "twitterbot", "whatsapp", "telegrambot",
	"linkedinbot", "discordbot", "slackbot", "pinterestbot",
	"bot", "crawler", "spider", "scraper",
	"curl", "wget", "python-requests", "python-urllib", "go-http-client",
	"headlesschrome", "phantomjs", "lighthouse",
	"pingdom", "uptimerobot", "statuscake",
	"semrush", "ahrefs", "mj12bot", "dotbot", "petalbot",
}

var tabletMarkers = []string{"ipad", "tablet", "kindle", "silk", "playbook"}

var desktopOSMarkers = []string{"windows", "mac os", "macos", "linux", "cros", "x11", "freebsd"}

type ClientInfoService struct {
	logger *slog.Logger
}

func NewClientInfoService(logger *slog.Logger) *ClientInfoService {
	return &ClientInfoService{logger: logger}
}

// ResolveIP picks the canonical client address. Resolution order: first entry
// of X-Forwarded-For, then X-Real-IP, then CF-Connecting-IP, then the
// transport peer address. Exactly one address wins; candidates are never merged.
func (s *ClientInfoService) ResolveIP(header http.Header, remoteAddr string) string {
	if fwd := header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	if real := header.Get("X-Real-IP"); real != "" {
		return strings.TrimSpace(real)
	}
	if cf := header.Get("CF-Connecting-IP"); cf != "" {
		return strings.TrimSpace(cf)
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

// AnonymizeIP irreversibly truncates the least-significant segment of an
// address: last octet for IPv4, last group for IPv6. Unrecognized formats
// pass through unchanged.
func (s *ClientInfoService) AnonymizeIP(ip string) string {
	if idx := strings.LastIndex(ip, "."); idx != -1 && strings.Count(ip, ".") == 3 {
		return ip[:idx] + ".0"
	}
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		return ip[:idx] + ":0"
	}
	return ip
}

// IsBot reports whether the user-agent matches a known crawler, link
// previewer or scripted client.
func (s *ClientInfoService) IsBot(uaString string) bool {
	if uaString == "" {
		return true
	}
	lower := strings.ToLower(uaString)
	for _, marker := range botMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return user_agent.New(uaString).Bot()
}

// ClassifyDevice derives device type, OS and browser from the user-agent.
// Precedence: mobile signal > tablet signal > recognized desktop OS > unknown.
// Deterministic for identical input.
func (s *ClientInfoService) ClassifyDevice(uaString string) DeviceInfo {
	info := DeviceInfo{Type: "unknown", OS: "Unknown", Browser: "Unknown"}
	if uaString == "" {
		return info
	}

	ua := user_agent.New(uaString)
	if os := ua.OS(); os != "" {
		info.OS = os
	}
	if name, version := ua.Browser(); name != "" {
		info.Browser = strings.TrimSpace(name + " " + version)
	}

	// Precedence: explicit mobile token, then tablet marker, then a known
	// desktop OS. Android tablets carry no "Mobile" token, which is what
	// separates them from Android phones.
	lower := strings.ToLower(uaString)
	switch {
	case strings.Contains(lower, "mobile") || strings.Contains(lower, "iphone") || strings.Contains(lower, "ipod"):
		info.Type = "mobile"
	case containsAny(lower, tabletMarkers):
		info.Type = "tablet"
	case containsAny(lower, desktopOSMarkers):
		info.Type = "desktop"
	}

	return info
}

func containsAny(s string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
