package sanitize

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Normalize converts v into a generic JSON tree of map[string]any, []any,
// string, json.Number, bool and nil. Structs are flattened through their json
// tags so that their fields become visible to Value.
func Normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalizing %T: %w", v, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("decoding normalized %T: %w", v, err)
	}
	return tree, nil
}

// Tree normalizes v and sanitizes the result.
func Tree(v any) (any, error) {
	tree, err := Normalize(v)
	if err != nil {
		return nil, err
	}
	return Value(tree), nil
}
