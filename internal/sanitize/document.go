package sanitize

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrEmptyInput is returned by Document for blank input.
var ErrEmptyInput = errors.New("empty input")

// Document sanitizes raw input. Valid JSON is sanitized as a tree and
// re-encoded with two-space indentation; anything else is sanitized as text.
// Numbers keep their original literal form.
func Document(raw []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, ErrEmptyInput
	}
	if !json.Valid(trimmed) {
		return []byte(String(string(raw))), nil
	}

	tree, err := Tree(json.RawMessage(trimmed))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tree); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
