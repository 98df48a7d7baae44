// Package geoip resolves IP addresses to coarse locations for session
// display. Lookups are best-effort; failures degrade to an unknown label.
package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// IPInfoLocator queries ipinfo.io. It satisfies the auth.IPLocator interface.
type IPInfoLocator struct {
	Token  string
	Client *http.Client
}

// NewIPInfoLocator creates a locator with a short request timeout so a slow
// lookup never stalls a sessions listing.
func NewIPInfoLocator(token string) *IPInfoLocator {
	return &IPInfoLocator{
		Token:  token,
		Client: &http.Client{Timeout: 3 * time.Second},
	}
}

func (l *IPInfoLocator) Locate(ctx context.Context, ip string) string {
	url := fmt.Sprintf("https://ipinfo.io/%s?token=%s", ip, l.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "Unknown Location"
	}

	resp, err := l.Client.Do(req)
	if err != nil {
		log.Printf("Error fetching IP info for %s: %v", ip, err)
		return "Unknown Location"
	}
	defer resp.Body.Close()

	var data struct {
		City    string `json:"city"`
		Country string `json:"country"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "Unknown Location"
	}

	switch {
	case data.City != "" && data.Country != "":
		return data.City + ", " + data.Country
	case data.Country != "":
		return data.Country
	default:
		return "Unknown Location"
	}
}
