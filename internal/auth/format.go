package auth

import (
	"context"
	"strings"
	"time"
)

// SessionInfo is the enriched presentation of a session for the active
// sessions and admin views. It never carries the refresh token hash.
type SessionInfo struct {
	ID           string `json:"id"`
	Device       string `json:"device"`
	Location     string `json:"location"`
	IP           string `json:"ip"`
	LastActivity string `json:"lastActivity"`
	Status       string `json:"status"`
	IsCurrent    bool   `json:"isCurrent,omitempty"`
}

// IPLocator resolves an IP address to a coarse human-readable location.
type IPLocator interface {
	Locate(ctx context.Context, ip string) string
}

// NoopLocator is used when no geo lookup collaborator is configured.
type NoopLocator struct{}

func (NoopLocator) Locate(_ context.Context, _ string) string { return "Unknown Location" }

// FormatSession derives the presentation fields from the stored binding.
func FormatSession(ctx context.Context, s *Session, locator IPLocator, now time.Time) SessionInfo {
	status := "active"
	if s.Expired(now) {
		status = "expired"
	}

	location := "Unknown Location"
	switch s.IPAddress {
	case "::1", "127.0.0.1":
		location = "Localhost"
	default:
		if locator != nil && s.IPAddress != "" {
			location = locator.Locate(ctx, s.IPAddress)
		}
	}

	ip := s.IPAddress
	if ip == "" {
		ip = "Unknown IP"
	}

	return SessionInfo{
		ID:           s.ID,
		Device:       deviceFromFingerprint(s.Fingerprint),
		Location:     location,
		IP:           ip,
		LastActivity: s.UpdatedAt.Format("02/01/2006 15:04:05"),
		Status:       status,
	}
}

// deviceFromFingerprint distills a user-agent string into "type - browser".
// This is display-only; the raw fingerprint stays the binding key.
func deviceFromFingerprint(ua string) string {
	deviceType := "Desktop"
	lower := strings.ToLower(ua)
	switch {
	case strings.Contains(lower, "mobile"), strings.Contains(lower, "iphone"), strings.Contains(lower, "android"):
		deviceType = "Mobile"
	case strings.Contains(lower, "ipad"), strings.Contains(lower, "tablet"):
		deviceType = "Tablet"
	}

	browser := "Unknown"
	switch {
	case strings.Contains(lower, "edg/"):
		browser = "Edge"
	case strings.Contains(lower, "opr/"), strings.Contains(lower, "opera"):
		browser = "Opera"
	case strings.Contains(lower, "chrome"):
		browser = "Chrome"
	case strings.Contains(lower, "safari"):
		browser = "Safari"
	case strings.Contains(lower, "firefox"):
		browser = "Firefox"
	case strings.Contains(lower, "curl"):
		browser = "curl"
	}

	return deviceType + " - " + browser
}
