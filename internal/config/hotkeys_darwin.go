//go:build darwin

package config

// DefaultHotkeys returns the default keyboard shortcuts for macOS
func DefaultHotkeys() HotkeysConfig {
	return HotkeysConfig{
		Undo:            "Cmd+Z",
		Redo:            "Cmd+Shift+Z",
		Save:            "Cmd+S",
		NewCatalogue:    "Cmd+N",
		NewEvent:        "Cmd+E",
		MoveToTrash:     "Cmd+Backspace",
		PermanentDelete: "Cmd+Alt+Backspace",
		Refresh:         "Cmd+R",
		Up:              "Up",
		Down:            "Down",
	}
}
