package services

import (
	"github.com/mileusna/useragent"

	"storefront/internal/models"
)

// EnrichMetadata fills browser, os, device and bot from the raw user agent.
// Fields the caller already supplied are kept.
func EnrichMetadata(meta *models.EventMetadata) {
	if meta.UserAgent == "" {
		return
	}

	ua := useragent.Parse(meta.UserAgent)
	if meta.Browser == "" {
		meta.Browser = ua.Name
	}
	if meta.OS == "" {
		meta.OS = ua.OS
	}
	if meta.Device == "" {
		meta.Device = deviceClass(ua)
	}
	meta.Bot = meta.Bot || ua.Bot
}

func deviceClass(ua useragent.UserAgent) string {
	switch {
	case ua.Mobile:
		return "mobile"
	case ua.Tablet:
		return "tablet"
	case ua.Bot:
		return "bot"
	default:
		return "desktop"
	}
}
