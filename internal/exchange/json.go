package exchange

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gowebpki/jcs"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/justyntemme/tscat/internal/debug"
)

//go:embed schema.json
var schemaJSON string

const schemaURL = "https://tscat.local/schemas/catalogues.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func documentSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("schema load failed: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// CanonicalizeJSON validates a JSON catalogue document and decodes it.
func CanonicalizeJSON(r io.Reader) (*Dict, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	schema, err := documentSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	var d Dict
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := d.Check(); err != nil {
		return nil, err
	}
	debug.Log(debug.EXCHANGE, "Canonicalized JSON: %d catalogues, %d events", len(d.Catalogues), len(d.Events))
	return &d, nil
}

// EncodeJSON writes d as RFC 8785 canonical JSON, so that exporting the same
// catalogues twice yields identical bytes.
func EncodeJSON(w io.Writer, d *Dict) error {
	data, err := json.Marshal(d.normalized())
	if err != nil {
		return err
	}
	canonical, err := jcs.Transform(data)
	if err != nil {
		return fmt.Errorf("canonicalize: %w", err)
	}
	_, err = io.Copy(w, bytes.NewReader(canonical))
	return err
}
