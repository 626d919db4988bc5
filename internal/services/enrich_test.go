package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storefront/internal/models"
)

func TestEnrichMetadata(t *testing.T) {
	tests := []struct {
		name       string
		userAgent  string
		wantDevice string
		wantBot    bool
	}{
		{
			name:       "desktop chrome",
			userAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			wantDevice: "desktop",
		},
		{
			name:       "iphone safari",
			userAgent:  "Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1",
			wantDevice: "mobile",
		},
		{
			name:       "googlebot",
			userAgent:  "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
			wantDevice: "bot",
			wantBot:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := models.EventMetadata{UserAgent: tt.userAgent}
			EnrichMetadata(&meta)

			assert.Equal(t, tt.wantDevice, meta.Device)
			assert.Equal(t, tt.wantBot, meta.Bot)
		})
	}
}

func TestEnrichMetadata_KeepsSuppliedFields(t *testing.T) {
	meta := models.EventMetadata{UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X)", Device: "kiosk"}
	EnrichMetadata(&meta)
	assert.Equal(t, "kiosk", meta.Device)

	empty := models.EventMetadata{}
	EnrichMetadata(&empty)
	assert.Equal(t, models.EventMetadata{}, empty)
}
