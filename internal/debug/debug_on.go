//go:build debug

// Package debug provides categorized debug logging for the catalogue core.
// Build with -tags debug to enable logging.
package debug

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
)

// Enabled indicates whether debug logging is active
const Enabled = true

// Category represents a debug logging category
type Category string

const (
	APP      Category = "APP"      // Session wiring, CLI, window host
	DRIVER   Category = "DRIVER"   // Action queue, worker, completion dispatch
	STORE    Category = "STORE"    // SQL statements and migrations
	MODEL    Category = "MODEL"    // Root and catalog model patches
	UNDO     Category = "UNDO"     // Command transitions
	STATE    Category = "STATE"    // Selection changes
	EXCHANGE Category = "EXCHANGE" // Import canonicalization and export
	CONFIG   Category = "CONFIG"   // Configuration loading

	// Verbose
	DRIVER_CACHE Category = "DRIVER_CACHE" // Every cache write
	MODEL_NOTIFY Category = "MODEL_NOTIFY" // Every begin/end notification
)

var (
	enabledCategories = map[Category]bool{
		APP:      true,
		DRIVER:   true,
		STORE:    true,
		MODEL:    true,
		UNDO:     true,
		STATE:    true,
		EXCHANGE: true,
		CONFIG:   true,

		DRIVER_CACHE: false,
		MODEL_NOTIFY: false,
	}
	categoryMu sync.RWMutex

	logger = log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds)
)

func init() {
	// TSCAT_DEBUG=DRIVER,MODEL or TSCAT_DEBUG=all or TSCAT_DEBUG=none
	if env := os.Getenv("TSCAT_DEBUG"); env != "" {
		Configure(env)
	}
}

// Configure applies a category list in the TSCAT_DEBUG format.
func Configure(spec string) {
	categoryMu.Lock()
	defer categoryMu.Unlock()

	spec = strings.ToUpper(strings.TrimSpace(spec))
	switch spec {
	case "":
		return
	case "ALL":
		for cat := range enabledCategories {
			enabledCategories[cat] = true
		}
	case "NONE":
		for cat := range enabledCategories {
			enabledCategories[cat] = false
		}
	default:
		for cat := range enabledCategories {
			enabledCategories[cat] = false
		}
		for _, cat := range strings.Split(spec, ",") {
			cat = strings.TrimSpace(cat)
			enabledCategories[Category(cat)] = true
		}
	}
}

// Log logs a debug message for the specified category
func Log(cat Category, format string, args ...interface{}) {
	categoryMu.RLock()
	enabled := enabledCategories[cat]
	categoryMu.RUnlock()

	if !enabled {
		return
	}

	msg := fmt.Sprintf(format, args...)
	logger.Printf("[%s] %s", cat, msg)
}

// Enable enables a debug category
func Enable(cat Category) {
	categoryMu.Lock()
	enabledCategories[cat] = true
	categoryMu.Unlock()
}

// Disable disables a debug category
func Disable(cat Category) {
	categoryMu.Lock()
	enabledCategories[cat] = false
	categoryMu.Unlock()
}

// IsEnabled returns whether a category is enabled
func IsEnabled(cat Category) bool {
	categoryMu.RLock()
	defer categoryMu.RUnlock()
	return enabledCategories[cat]
}

// ListEnabled returns the enabled categories in name order.
func ListEnabled() []Category {
	categoryMu.RLock()
	defer categoryMu.RUnlock()

	var enabled []Category
	for cat, on := range enabledCategories {
		if on {
			enabled = append(enabled, cat)
		}
	}
	sort.Slice(enabled, func(i, j int) bool { return enabled[i] < enabled[j] })
	return enabled
}
