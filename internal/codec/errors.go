package codec

import "fmt"

// Error means a remote payload or local file could not be converted:
// malformed base64, invalid JSON, or a YAML document that has no JSON
// equivalent.
type Error struct {
	Slot string // "schema", "ui schema" or "description"
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s payload: %v", e.Slot, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// MissingInputError means a local file that a push requires does not
// exist. Both schema files are mandatory on push.
type MissingInputError struct {
	Path string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("required file %s does not exist", e.Path)
}
