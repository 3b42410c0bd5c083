package middleware

import (
	"github.com/gin-gonic/gin"

	"vetcare-server/internal/models"
)

const settingsKey = "settings"

// Settings are the per-user display preferences.
type Settings struct {
	Theme  string `json:"theme"`
	Locale string `json:"locale"`
}

// DefaultSettings apply to anonymous requests and unset preferences.
var DefaultSettings = Settings{Theme: models.ThemeLight, Locale: "en"}

// SettingsFromProfile reads the preferences stored on a profile.
func SettingsFromProfile(p models.Profile) Settings {
	s := DefaultSettings
	if p.Theme == models.ThemeLight || p.Theme == models.ThemeDark {
		s.Theme = p.Theme
	}
	if p.Locale != "" {
		s.Locale = p.Locale
	}
	return s
}

// SettingsMiddleware loads the caller's settings into the context. It must
// run after AuthMiddleware.
func SettingsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := DefaultSettings
		if p, ok := GetPrincipal(c); ok {
			s = SettingsFromProfile(p.Profile)
		}
		c.Set(settingsKey, s)
		c.Next()
	}
}

// GetSettings returns the settings of the request.
func GetSettings(c *gin.Context) Settings {
	if v, ok := c.Get(settingsKey); ok {
		if s, ok := v.(Settings); ok {
			return s
		}
	}
	return DefaultSettings
}
