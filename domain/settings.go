package domain

// Settings are the owner-controlled global session switches.
type Settings struct {
	DownloadAllowed bool `json:"downloadAllowed"`
	DefaultRole     Role `json:"defaultRole"`
}

func DefaultSettings() Settings {
	return Settings{DownloadAllowed: true, DefaultRole: RoleEditor}
}

// Sanitized clamps untrusted settings to legal values. The default
// role may never be owner.
func (s Settings) Sanitized() Settings {
	if !AssignableRole(s.DefaultRole) {
		s.DefaultRole = RoleEditor
	}
	return s
}
