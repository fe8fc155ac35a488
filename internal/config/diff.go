package config

// ConfigDiff describes which sections changed between two configs. All
// Versecraft settings are safe to hot-reload.
type ConfigDiff struct {
	LogLevelChanged   bool
	NewLogLevel       LogLevel
	MetricsChanged    bool
	EditorChanged     bool
	DictionaryChanged bool
	AltLyricsChanged  bool
}

// Empty reports whether nothing changed.
func (d ConfigDiff) Empty() bool {
	return d == ConfigDiff{}
}

// Diff compares old and new configs section by section.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Server.MetricsAddr != new.Server.MetricsAddr {
		d.MetricsChanged = true
	}
	if old.Editor != new.Editor {
		d.EditorChanged = true
	}
	if old.Dictionary != new.Dictionary {
		d.DictionaryChanged = true
	}
	if old.AltLyrics != new.AltLyrics {
		d.AltLyricsChanged = true
	}
	return d
}
