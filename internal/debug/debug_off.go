//go:build !debug

// Package debug provides categorized debug logging for the catalogue core.
// This is the no-op version for release builds.
package debug

// Enabled indicates whether debug logging is active
const Enabled = false

// Category represents a debug logging category
type Category string

const (
	APP          Category = "APP"
	DRIVER       Category = "DRIVER"
	STORE        Category = "STORE"
	MODEL        Category = "MODEL"
	UNDO         Category = "UNDO"
	STATE        Category = "STATE"
	EXCHANGE     Category = "EXCHANGE"
	CONFIG       Category = "CONFIG"
	DRIVER_CACHE Category = "DRIVER_CACHE"
	MODEL_NOTIFY Category = "MODEL_NOTIFY"
)

// Configure is a no-op in release builds
func Configure(spec string) {}

// Log is a no-op in release builds
func Log(cat Category, format string, args ...interface{}) {}

// Enable is a no-op in release builds
func Enable(cat Category) {}

// Disable is a no-op in release builds
func Disable(cat Category) {}

// IsEnabled always returns false in release builds
func IsEnabled(cat Category) bool { return false }

// ListEnabled returns nil in release builds
func ListEnabled() []Category { return nil }
