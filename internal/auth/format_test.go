package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type staticLocator struct{ location string }

func (l staticLocator) Locate(_ context.Context, _ string) string { return l.location }

func TestFormatSession(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	base := Session{
		ID:          "sess-1",
		Fingerprint: "Mozilla/5.0 (Windows NT 10.0) Chrome/126.0 Safari/537.36",
		IPAddress:   "203.0.113.7",
		ExpiresAt:   now.Add(time.Hour),
		UpdatedAt:   now.Add(-time.Minute),
	}

	t.Run("Active", func(t *testing.T) {
		info := FormatSession(context.Background(), &base, staticLocator{"Berlin, DE"}, now)
		assert.Equal(t, "sess-1", info.ID)
		assert.Equal(t, "Desktop - Chrome", info.Device)
		assert.Equal(t, "Berlin, DE", info.Location)
		assert.Equal(t, "203.0.113.7", info.IP)
		assert.Equal(t, "active", info.Status)
		assert.Equal(t, "30/08/2026 11:59:00", info.LastActivity)
	})

	t.Run("Expired", func(t *testing.T) {
		expired := base
		expired.ExpiresAt = now.Add(-time.Second)
		info := FormatSession(context.Background(), &expired, nil, now)
		assert.Equal(t, "expired", info.Status)
	})

	t.Run("Localhost", func(t *testing.T) {
		local := base
		local.IPAddress = "127.0.0.1"
		info := FormatSession(context.Background(), &local, staticLocator{"should not be called"}, now)
		assert.Equal(t, "Localhost", info.Location)

		local.IPAddress = "::1"
		info = FormatSession(context.Background(), &local, nil, now)
		assert.Equal(t, "Localhost", info.Location)
	})

	t.Run("NoLocator", func(t *testing.T) {
		info := FormatSession(context.Background(), &base, nil, now)
		assert.Equal(t, "Unknown Location", info.Location)
	})

	t.Run("EmptyIP", func(t *testing.T) {
		anonymous := base
		anonymous.IPAddress = ""
		info := FormatSession(context.Background(), &anonymous, nil, now)
		assert.Equal(t, "Unknown IP", info.IP)
	})
}

func TestDeviceFromFingerprint(t *testing.T) {
	cases := []struct {
		name string
		ua   string
		want string
	}{
		{"Chrome", "Mozilla/5.0 (X11; Linux x86_64) Chrome/126.0 Safari/537.36", "Desktop - Chrome"},
		{"Edge", "Mozilla/5.0 (Windows NT 10.0) Chrome/126.0 Safari/537.36 Edg/126.0", "Desktop - Edge"},
		{"Firefox", "Mozilla/5.0 (X11; Linux x86_64; rv:127.0) Gecko/20100101 Firefox/127.0", "Desktop - Firefox"},
		{"MobileSafari", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Version/17.0 Mobile/15E148 Safari/604.1", "Mobile - Safari"},
		{"AndroidChrome", "Mozilla/5.0 (Linux; Android 14) Chrome/126.0 Mobile Safari/537.36", "Mobile - Chrome"},
		{"Tablet", "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) Version/17.0 Safari/604.1", "Tablet - Safari"},
		{"Curl", "curl/8.5.0", "Desktop - curl"},
		{"Empty", "", "Desktop - Unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, deviceFromFingerprint(tc.ua))
		})
	}
}
