//go:build !darwin

package config

// DefaultHotkeys returns the default keyboard shortcuts for Windows/Linux
func DefaultHotkeys() HotkeysConfig {
	return HotkeysConfig{
		Undo:            "Ctrl+Z",
		Redo:            "Ctrl+Shift+Z",
		Save:            "Ctrl+S",
		NewCatalogue:    "Ctrl+N",
		NewEvent:        "Ctrl+E",
		MoveToTrash:     "Delete",
		PermanentDelete: "Shift+Delete",
		Refresh:         "F5",
		Up:              "Up",
		Down:            "Down",
	}
}
