// Package codec converts between the remote wire format (base64-encoded
// JSON schema documents inside a revision) and the local file set
// (documentation text plus two structured-data files in JSON or YAML).
package codec

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stackguardian/tplsync/internal/models"
	"github.com/stackguardian/tplsync/internal/observability/logging"
	"gopkg.in/yaml.v3"
)

// DocFile is the documentation file name, format-independent.
const DocFile = "documentation.md"

// SchemaPath returns the input-schema file path for a format.
func SchemaPath(dir string, f Format) string {
	return filepath.Join(dir, "schema."+f.Ext())
}

// UIPath returns the UI-schema file path for a format.
func UIPath(dir string, f Format) string {
	return filepath.Join(dir, "ui."+f.Ext())
}

// Decode writes the revision's content into dir. Empty remote slots
// are skipped with a notice and never remove or overwrite an existing
// local file; every write is a whole-file atomic replace.
func Decode(ctx context.Context, rev *models.RevisionDetails, dir string, f Format) error {
	log := logging.From(ctx)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	if rev.LongDescription != "" {
		if err := writeFileAtomic(filepath.Join(dir, DocFile), []byte(rev.LongDescription)); err != nil {
			return err
		}
	} else {
		log.Info("codec", "revision has no description, leaving documentation file untouched", "file", DocFile)
	}

	pair, _ := rev.Schemas()
	slots := []struct {
		name string
		data string
		path string
	}{
		{"schema", pair.EncodedData, SchemaPath(dir, f)},
		{"ui schema", pair.UISchemaData, UIPath(dir, f)},
	}

	for _, slot := range slots {
		if slot.data == "" {
			log.Info("codec", "remote slot is empty, leaving local file untouched",
				"slot", slot.name, "file", slot.path)
			continue
		}
		decoded, err := decodePayload(slot.name, slot.data, f)
		if err != nil {
			return err
		}
		if err := writeFileAtomic(slot.path, decoded); err != nil {
			return err
		}
	}
	return nil
}

// Encode reads the local file set from dir and builds the partial
// update document for a push. Both schema files are required; a missing
// documentation file omits LongDescription from the document entirely.
func Encode(ctx context.Context, dir string, f Format) (*models.RevisionPatch, error) {
	log := logging.From(ctx)

	encodedSchema, err := encodeFile("schema", SchemaPath(dir, f), f)
	if err != nil {
		return nil, err
	}
	encodedUI, err := encodeFile("ui schema", UIPath(dir, f), f)
	if err != nil {
		return nil, err
	}

	patch := &models.RevisionPatch{
		InputSchemas: []models.SchemaPair{{
			Type:         models.SchemaTypeFormJSONSchema,
			EncodedData:  encodedSchema,
			UISchemaData: encodedUI,
		}},
	}

	docPath := filepath.Join(dir, DocFile)
	doc, err := os.ReadFile(docPath)
	switch {
	case err == nil:
		description := string(doc)
		patch.LongDescription = &description
	case os.IsNotExist(err):
		log.Info("codec", "documentation file does not exist, omitting description from push",
			"file", docPath)
	default:
		return nil, fmt.Errorf("failed to read %s: %w", docPath, err)
	}

	return patch, nil
}

// decodePayload turns one base64 wire payload into pretty local bytes.
func decodePayload(slot, data string, f Format) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, &Error{Slot: slot, Err: fmt.Errorf("invalid base64: %w", err)}
	}

	if f == FormatYAML {
		doc, err := parseJSON(raw)
		if err != nil {
			return nil, &Error{Slot: slot, Err: err}
		}
		out, err := yaml.Marshal(doc)
		if err != nil {
			return nil, &Error{Slot: slot, Err: err}
		}
		return out, nil
	}

	// JSON mode re-indents the raw bytes so key order survives the
	// round trip untouched.
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, &Error{Slot: slot, Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// encodeFile reads one local schema file and returns its base64 wire
// form. The wire format always carries JSON, so YAML input is converted
// first.
func encodeFile(slot, path string, f Format) (string, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", &MissingInputError{Path: path}
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	jsonBytes := raw
	if f == FormatYAML {
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return "", &Error{Slot: slot, Err: fmt.Errorf("invalid YAML: %w", err)}
		}
		jsonBytes, err = json.Marshal(doc)
		if err != nil {
			return "", &Error{Slot: slot, Err: err}
		}
	} else {
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return "", &Error{Slot: slot, Err: fmt.Errorf("invalid JSON: %w", err)}
		}
		jsonBytes = buf.Bytes()
	}

	return base64.StdEncoding.EncodeToString(jsonBytes), nil
}

// parseJSON decodes JSON preserving integer exactness, so numbers do
// not drift through the YAML round trip.
func parseJSON(raw []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var doc any
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return normalizeNumbers(doc), nil
}

func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = normalizeNumbers(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = normalizeNumbers(item)
		}
		return val
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	default:
		return v
	}
}

// writeFileAtomic replaces path in one step: write to a temp file in
// the same directory, then rename. A crash mid-write never leaves a
// half-written file behind.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
