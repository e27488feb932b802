package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gioui.org/io/key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	m := NewManager()
	require.NoError(t, m.LoadFrom(path))

	_, err := os.Stat(path)
	require.NoError(t, err)
	cfg := m.Get()
	assert.Equal(t, "Author", cfg.Catalogue.DefaultAuthor)
	assert.Equal(t, "New Catalogue", cfg.Catalogue.DefaultName)
	assert.Equal(t, DefaultShutdownTimeout, cfg.Driver.Timeout())
	assert.Equal(t, DefaultHotkeys(), cfg.Hotkeys)
	assert.NoError(t, m.ParseError())
}

func TestLoadReadsFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "catalogue": {"defaultAuthor": "Jane"},
  "driver": {"shutdownTimeout": "250ms"}
}`), 0o644))
	t.Setenv("TSCAT_EXPORT_FORMAT", "votable")

	m := NewManager()
	require.NoError(t, m.LoadFrom(path))
	cfg := m.Get()
	assert.Equal(t, "Jane", cfg.Catalogue.DefaultAuthor)
	assert.Equal(t, "New Catalogue", cfg.Catalogue.DefaultName)
	assert.Equal(t, 250*time.Millisecond, cfg.Driver.Timeout())
	assert.Equal(t, "votable", cfg.Export.Format)
	assert.Equal(t, DefaultStorePath(), cfg.Store.Path)
}

func TestLoadKeepsDefaultsOnParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"store": `), 0o644))

	m := NewManager()
	require.NoError(t, m.LoadFrom(path))
	assert.Error(t, m.ParseError())
	assert.Equal(t, *DefaultConfig(), m.Get())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	m := NewManager()
	require.NoError(t, m.LoadFrom(path))
	m.SetDefaultAuthor("Bob")
	m.SetStorePath(":memory:")

	again := NewManager()
	require.NoError(t, again.LoadFrom(path))
	assert.Equal(t, "Bob", again.Get().Catalogue.DefaultAuthor)
	assert.Equal(t, ":memory:", again.Get().Store.Path)
}

func TestTimeoutFallback(t *testing.T) {
	assert.Equal(t, DefaultShutdownTimeout, DriverConfig{ShutdownTimeout: "soon"}.Timeout())
	assert.Equal(t, DefaultShutdownTimeout, DriverConfig{ShutdownTimeout: "-1s"}.Timeout())
}

func TestParseHotkey(t *testing.T) {
	tests := []struct {
		in   string
		want Hotkey
		text string
	}{
		{"Ctrl+Shift+Z", Hotkey{Key: "Z", Modifiers: key.ModCtrl | key.ModShift}, "Ctrl+Shift+Z"},
		{"ctrl+s", Hotkey{Key: "S", Modifiers: key.ModCtrl}, "Ctrl+S"},
		{"Shift+Delete", Hotkey{Key: key.NameDeleteForward, Modifiers: key.ModShift}, "Shift+" + string(key.NameDeleteForward)},
		{"F5", Hotkey{Key: key.NameF5}, string(key.NameF5)},
		{"", Hotkey{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseHotkey(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.text, got.String())
		})
	}
}

func TestHotkeyMatchesExactly(t *testing.T) {
	undo := ParseHotkey("Ctrl+Z")
	assert.True(t, undo.Matches(key.Event{Name: "Z", Modifiers: key.ModCtrl}))
	assert.False(t, undo.Matches(key.Event{Name: "Z", Modifiers: key.ModCtrl | key.ModShift}))

	m := NewHotkeyMatcher(DefaultHotkeys())
	assert.Len(t, m.Filters(nil), 10)
}

func TestGenerateConfigBacksUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"catalogue": {"defaultAuthor": "Jane"}}`), 0o644))

	backup, err := GenerateConfig(path)
	require.NoError(t, err)
	require.NotEmpty(t, backup)

	saved, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Contains(t, string(saved), "Jane")

	m := NewManager()
	require.NoError(t, m.LoadFrom(path))
	assert.Equal(t, "Author", m.Get().Catalogue.DefaultAuthor)
}

func TestGenerateConfigWithoutExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh", "config.json")
	backup, err := GenerateConfig(path)
	require.NoError(t, err)
	assert.Empty(t, backup)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
