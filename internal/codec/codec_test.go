package codec

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stackguardian/tplsync/internal/models"
	"github.com/wI2L/jsondiff"
)

const schemaJSON = `{"type":"object","properties":{"region":{"type":"string"},"count":{"type":"integer","default":2}},"required":["region"]}`
const uiJSON = `{"ui:order":["region","count"],"region":{"ui:widget":"select"}}`

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func revision(description, schema, ui string) *models.RevisionDetails {
	return &models.RevisionDetails{
		TemplateID:      "/demo-org/vpc:3",
		LongDescription: description,
		InputSchemas: []models.SchemaPair{{
			EncodedData:  schema,
			UISchemaData: ui,
		}},
	}
}

// assertSameJSON fails unless a and b are semantically equal JSON.
func assertSameJSON(t *testing.T, a, b []byte) {
	t.Helper()
	patch, err := jsondiff.CompareJSON(a, b)
	if err != nil {
		t.Fatalf("failed to diff: %v", err)
	}
	if len(patch) != 0 {
		t.Errorf("documents differ: %v", patch)
	}
}

func TestRoundTrip_JSON(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	rev := revision("Hello", b64(schemaJSON), b64(uiJSON))
	if err := Decode(ctx, rev, dir, FormatJSON); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	doc, err := os.ReadFile(filepath.Join(dir, DocFile))
	if err != nil || string(doc) != "Hello" {
		t.Errorf("documentation = %q, %v; want %q", doc, err, "Hello")
	}

	patch, err := Encode(ctx, dir, FormatJSON)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if patch.LongDescription == nil || *patch.LongDescription != "Hello" {
		t.Errorf("LongDescription = %v, want %q", patch.LongDescription, "Hello")
	}
	if got := patch.InputSchemas[0].Type; got != models.SchemaTypeFormJSONSchema {
		t.Errorf("schema type = %q, want %q", got, models.SchemaTypeFormJSONSchema)
	}

	encoded, err := base64.StdEncoding.DecodeString(patch.InputSchemas[0].EncodedData)
	if err != nil {
		t.Fatalf("encoded data is not base64: %v", err)
	}
	assertSameJSON(t, []byte(schemaJSON), encoded)

	encodedUI, err := base64.StdEncoding.DecodeString(patch.InputSchemas[0].UISchemaData)
	if err != nil {
		t.Fatalf("ui schema data is not base64: %v", err)
	}
	assertSameJSON(t, []byte(uiJSON), encodedUI)
}

func TestRoundTrip_YAML(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	rev := revision("Hello", b64(schemaJSON), b64(uiJSON))
	if err := Decode(ctx, rev, dir, FormatYAML); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	// Schema files carry the yaml extension, no json files exist.
	if _, err := os.Stat(SchemaPath(dir, FormatYAML)); err != nil {
		t.Fatalf("schema.yaml missing: %v", err)
	}
	if _, err := os.Stat(SchemaPath(dir, FormatJSON)); !os.IsNotExist(err) {
		t.Errorf("schema.json exists in yaml mode")
	}

	patch, err := Encode(ctx, dir, FormatYAML)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	encoded, err := base64.StdEncoding.DecodeString(patch.InputSchemas[0].EncodedData)
	if err != nil {
		t.Fatalf("encoded data is not base64: %v", err)
	}
	assertSameJSON(t, []byte(schemaJSON), encoded)

	encodedUI, err := base64.StdEncoding.DecodeString(patch.InputSchemas[0].UISchemaData)
	if err != nil {
		t.Fatalf("ui schema data is not base64: %v", err)
	}
	assertSameJSON(t, []byte(uiJSON), encodedUI)
}

func TestDecode_EmptySlotLeavesLocalFile(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	existing := []byte(`{"kept": true}`)
	if err := os.WriteFile(SchemaPath(dir, FormatJSON), existing, 0644); err != nil {
		t.Fatal(err)
	}

	rev := revision("Hello", "", b64(uiJSON))
	if err := Decode(ctx, rev, dir, FormatJSON); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	got, err := os.ReadFile(SchemaPath(dir, FormatJSON))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(existing) {
		t.Errorf("schema.json was modified: %q", got)
	}
	if _, err := os.Stat(UIPath(dir, FormatJSON)); err != nil {
		t.Errorf("ui.json missing: %v", err)
	}
}

func TestDecode_NoDescriptionLeavesDocFile(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	docPath := filepath.Join(dir, DocFile)
	if err := os.WriteFile(docPath, []byte("local notes"), 0644); err != nil {
		t.Fatal(err)
	}

	rev := revision("", b64(schemaJSON), b64(uiJSON))
	if err := Decode(ctx, rev, dir, FormatJSON); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	got, err := os.ReadFile(docPath)
	if err != nil || string(got) != "local notes" {
		t.Errorf("documentation = %q, %v; want untouched", got, err)
	}
}

func TestDecode_NoInputSchemas(t *testing.T) {
	dir := t.TempDir()
	rev := &models.RevisionDetails{LongDescription: "only docs"}

	if err := Decode(context.Background(), rev, dir, FormatJSON); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if _, err := os.Stat(SchemaPath(dir, FormatJSON)); !os.IsNotExist(err) {
		t.Error("schema.json written despite empty InputSchemas")
	}
}

func TestDecode_MalformedBase64(t *testing.T) {
	dir := t.TempDir()
	rev := revision("", "not-base64!!!", "")

	err := Decode(context.Background(), rev, dir, FormatJSON)
	var codecErr *Error
	if !errors.As(err, &codecErr) {
		t.Fatalf("error = %v, want *codec.Error", err)
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	dir := t.TempDir()
	rev := revision("", b64("{not json"), "")

	err := Decode(context.Background(), rev, dir, FormatJSON)
	var codecErr *Error
	if !errors.As(err, &codecErr) {
		t.Fatalf("error = %v, want *codec.Error", err)
	}
}

func TestEncode_MissingSchemaIsFatal(t *testing.T) {
	dir := t.TempDir()

	_, err := Encode(context.Background(), dir, FormatJSON)
	var missing *MissingInputError
	if !errors.As(err, &missing) {
		t.Fatalf("error = %v, want *MissingInputError", err)
	}
}

func TestEncode_MissingDocOmitsDescription(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(SchemaPath(dir, FormatJSON), []byte(schemaJSON), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(UIPath(dir, FormatJSON), []byte(uiJSON), 0644); err != nil {
		t.Fatal(err)
	}

	patch, err := Encode(context.Background(), dir, FormatJSON)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if patch.LongDescription != nil {
		t.Errorf("LongDescription = %q, want omitted", *patch.LongDescription)
	}
}

func TestDecode_JSONPreservesKeyOrder(t *testing.T) {
	dir := t.TempDir()
	ordered := `{"zebra":1,"alpha":2}`

	rev := revision("", b64(ordered), "")
	if err := Decode(context.Background(), rev, dir, FormatJSON); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	got, err := os.ReadFile(SchemaPath(dir, FormatJSON))
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"zebra\": 1,\n  \"alpha\": 2\n}\n"
	if string(got) != want {
		t.Errorf("schema.json = %q, want %q", got, want)
	}
}
