// Package sanitize scrubs values before they leave the process.
//
// A value tree (scalars, maps, structs, pointers, slices and arrays) is
// rewritten leaf by leaf:
//
//   - string leaves have secret-looking "key: value" pairs masked, quote
//     characters and backticks escaped, and path traversal markers stripped
//   - scalar values stored under a secret-looking map key or struct field
//     are replaced with the mask token outright
//   - every other scalar is returned unchanged
//
// Struct fields are keyed by their json name. Output always has the same
// shape and concrete types as the input, and the input is never mutated:
// pointers are copied. Channels, funcs and error values pass through
// untouched. [Normalize] flattens a value into a JSON tree first when the
// caller wants the encoded form sanitized instead, e.g. for custom
// MarshalJSON methods.
//
// The transform holds no state and is safe for concurrent use.
package sanitize
