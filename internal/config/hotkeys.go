package config

import (
	"strings"

	"gioui.org/io/event"
	"gioui.org/io/key"
)

// HotkeysConfig holds the keyboard shortcuts of the catalogue window
type HotkeysConfig struct {
	Undo            string `json:"undo" mapstructure:"undo"`
	Redo            string `json:"redo" mapstructure:"redo"`
	Save            string `json:"save" mapstructure:"save"`
	NewCatalogue    string `json:"newCatalogue" mapstructure:"newCatalogue"`
	NewEvent        string `json:"newEvent" mapstructure:"newEvent"`
	MoveToTrash     string `json:"moveToTrash" mapstructure:"moveToTrash"`
	PermanentDelete string `json:"permanentDelete" mapstructure:"permanentDelete"`
	Refresh         string `json:"refresh" mapstructure:"refresh"`
	Up              string `json:"up" mapstructure:"up"`
	Down            string `json:"down" mapstructure:"down"`
}

func (h HotkeysConfig) byName() map[string]string {
	return map[string]string{
		"undo":            h.Undo,
		"redo":            h.Redo,
		"save":            h.Save,
		"newCatalogue":    h.NewCatalogue,
		"newEvent":        h.NewEvent,
		"moveToTrash":     h.MoveToTrash,
		"permanentDelete": h.PermanentDelete,
		"refresh":         h.Refresh,
		"up":              h.Up,
		"down":            h.Down,
	}
}

// Hotkey represents a parsed keyboard shortcut
type Hotkey struct {
	Key       key.Name
	Modifiers key.Modifiers
}

var modifierNames = map[string]key.Modifiers{
	"ctrl":    key.ModCtrl,
	"control": key.ModCtrl,
	"shift":   key.ModShift,
	"alt":     key.ModAlt,
	"option":  key.ModAlt,
	"cmd":     key.ModCommand,
	"command": key.ModCommand,
	"super":   key.ModSuper,
	"meta":    key.ModSuper,
}

var keyNames = map[string]key.Name{
	"f1":        key.NameF1,
	"f2":        key.NameF2,
	"f5":        key.NameF5,
	"up":        key.NameUpArrow,
	"down":      key.NameDownArrow,
	"left":      key.NameLeftArrow,
	"right":     key.NameRightArrow,
	"home":      key.NameHome,
	"end":       key.NameEnd,
	"enter":     key.NameReturn,
	"return":    key.NameReturn,
	"tab":       key.NameTab,
	"space":     key.NameSpace,
	"backspace": key.NameDeleteBackward,
	"delete":    key.NameDeleteForward,
	"del":       key.NameDeleteForward,
	"escape":    key.NameEscape,
	"esc":       key.NameEscape,
}

// ParseHotkey parses a hotkey string like "Ctrl+Shift+Z" into a Hotkey struct
func ParseHotkey(s string) Hotkey {
	var h Hotkey
	for _, part := range strings.Split(s, "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if mod, ok := modifierNames[strings.ToLower(part)]; ok {
			h.Modifiers |= mod
			continue
		}
		h.Key = parseKeyName(part)
	}
	return h
}

// parseKeyName converts a key string to Gio's key.Name. Letters are upper
// case in Gio.
func parseKeyName(s string) key.Name {
	if len(s) == 1 {
		return key.Name(strings.ToUpper(s))
	}
	if name, ok := keyNames[strings.ToLower(s)]; ok {
		return name
	}
	return key.Name(s)
}

// Matches checks if a key event matches this hotkey exactly, so Ctrl+Z
// does not fire for Ctrl+Shift+Z
func (h Hotkey) Matches(k key.Event) bool {
	return h.Key != "" && k.Name == h.Key && k.Modifiers == h.Modifiers
}

func (h Hotkey) IsEmpty() bool { return h.Key == "" }

// String returns a human-readable representation of the hotkey
func (h Hotkey) String() string {
	if h.Key == "" {
		return ""
	}
	var parts []string
	for _, m := range []struct {
		mod  key.Modifiers
		name string
	}{
		{key.ModCtrl, "Ctrl"},
		{key.ModCommand, "Cmd"},
		{key.ModShift, "Shift"},
		{key.ModAlt, "Alt"},
		{key.ModSuper, "Super"},
	} {
		if h.Modifiers.Contain(m.mod) {
			parts = append(parts, m.name)
		}
	}
	return strings.Join(append(parts, string(h.Key)), "+")
}

// Filter returns a key.Filter that matches this hotkey
func (h Hotkey) Filter(focus event.Tag) key.Filter {
	return key.Filter{
		Focus:    focus,
		Name:     h.Key,
		Required: h.Modifiers,
	}
}

// HotkeyMatcher holds the parsed shortcuts
type HotkeyMatcher struct {
	Undo            Hotkey
	Redo            Hotkey
	Save            Hotkey
	NewCatalogue    Hotkey
	NewEvent        Hotkey
	MoveToTrash     Hotkey
	PermanentDelete Hotkey
	Refresh         Hotkey
	Up              Hotkey
	Down            Hotkey
}

// NewHotkeyMatcher creates a matcher from config
func NewHotkeyMatcher(cfg HotkeysConfig) *HotkeyMatcher {
	return &HotkeyMatcher{
		Undo:            ParseHotkey(cfg.Undo),
		Redo:            ParseHotkey(cfg.Redo),
		Save:            ParseHotkey(cfg.Save),
		NewCatalogue:    ParseHotkey(cfg.NewCatalogue),
		NewEvent:        ParseHotkey(cfg.NewEvent),
		MoveToTrash:     ParseHotkey(cfg.MoveToTrash),
		PermanentDelete: ParseHotkey(cfg.PermanentDelete),
		Refresh:         ParseHotkey(cfg.Refresh),
		Up:              ParseHotkey(cfg.Up),
		Down:            ParseHotkey(cfg.Down),
	}
}

// Filters lists a key.Filter per configured hotkey.
func (m *HotkeyMatcher) Filters(focus event.Tag) []event.Filter {
	var out []event.Filter
	for _, h := range []Hotkey{m.Undo, m.Redo, m.Save, m.NewCatalogue, m.NewEvent, m.MoveToTrash, m.PermanentDelete, m.Refresh, m.Up, m.Down} {
		if !h.IsEmpty() {
			out = append(out, h.Filter(focus))
		}
	}
	return out
}
