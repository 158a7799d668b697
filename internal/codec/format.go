package codec

import "fmt"

// Format selects the local serialization of the two schema files. It
// is always chosen explicitly by the caller; the codec never infers it
// from file extensions or content.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatYAML:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown format %q (expected json or yaml)", s)
	}
}

// Ext returns the file extension used by the format, without the dot.
func (f Format) Ext() string {
	return string(f)
}
