package config_test

import (
	"testing"

	"github.com/MrWong99/versecraft/internal/config"
)

func TestDiff_Empty(t *testing.T) {
	t.Parallel()

	old := config.Default()
	new := config.Default()

	d := config.Diff(old, new)
	if !d.Empty() {
		t.Errorf("identical configs must diff empty, got %+v", d)
	}
}

func TestDiff_Sections(t *testing.T) {
	t.Parallel()

	old := config.Default()

	new := config.Default()
	new.Server.LogLevel = config.LogDebug
	new.Editor.Width = 1024
	new.Dictionary.Path = "/tmp/dict.txt"
	new.AltLyrics.Provider = "ollama"
	new.AltLyrics.Model = "llama3"

	d := config.Diff(old, new)
	if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
		t.Errorf("log level change not detected: %+v", d)
	}
	if !d.EditorChanged {
		t.Error("editor change not detected")
	}
	if !d.DictionaryChanged {
		t.Error("dictionary change not detected")
	}
	if !d.AltLyricsChanged {
		t.Error("alt_lyrics change not detected")
	}
	if d.MetricsChanged {
		t.Error("metrics change falsely detected")
	}
	if d.Empty() {
		t.Error("changed configs must not diff empty")
	}
}
