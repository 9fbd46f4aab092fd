package registry

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// WriteBundle msgpack-encodes every entry, ordered by id. A bundle file
// with the .msgpack extension loads like any other resource.
func (r *Registry) WriteBundle(w io.Writer) error {
	enc := msgpack.NewEncoder(w)
	enc.UseCompactInts(true)
	if err := enc.Encode(bundle{Version: bundleVersion, Entries: r.Entries()}); err != nil {
		return fmt.Errorf("registry: write bundle: %w", err)
	}
	return nil
}

// ReadBundle decodes a bundle written by WriteBundle into a registry.
func ReadBundle(rd io.Reader, source string) (*Registry, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("registry: read bundle: %w", err)
	}
	entries, err := Parse("msgpack", source, data)
	if err != nil {
		return nil, err
	}
	return New(entries...)
}
