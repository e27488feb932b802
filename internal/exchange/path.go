package exchange

import (
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"sort"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/justyntemme/tscat/internal/debug"
)

// Canonicalize decodes r in the given format.
func Canonicalize(r io.Reader, format Format) (*Dict, error) {
	switch format {
	case FormatJSON:
		return CanonicalizeJSON(r)
	case FormatVOTable:
		return CanonicalizeVOTable(r)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// CanonicalizeFile decodes one file, picking the format from its extension
// unless format is set.
func CanonicalizeFile(path string, format Format) (*Dict, error) {
	if format == "" {
		var err error
		if format, err = FormatFromPath(path); err != nil {
			return nil, err
		}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := Canonicalize(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// CanonicalizePath decodes a file, or every catalogue file below a directory
// merged into one Dict. Files are merged in path order.
func CanonicalizePath(path string, format Format) (*Dict, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return CanonicalizeFile(path, format)
	}

	var (
		files   []string
		filesMu sync.Mutex
	)
	conf := &fastwalk.Config{Follow: true}
	err = fastwalk.Walk(conf, path, func(fullPath string, d iofs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if _, err := FormatFromPath(fullPath); err != nil {
			return nil // Not a catalogue file
		}
		filesMu.Lock()
		files = append(files, fullPath)
		filesMu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	debug.Log(debug.EXCHANGE, "Found %d catalogue files below %s", len(files), path)

	dicts := make([]*Dict, 0, len(files))
	for _, file := range files {
		d, err := CanonicalizeFile(file, "")
		if err != nil {
			return nil, err
		}
		dicts = append(dicts, d)
	}
	return Merge(dicts...)
}

// Encode writes d in the given format.
func Encode(w io.Writer, d *Dict, format Format) error {
	switch format {
	case FormatJSON:
		return EncodeJSON(w, d)
	case FormatVOTable:
		return EncodeVOTable(w, d)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}
