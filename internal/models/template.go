package models

// SchemaTypeFormJSONSchema is the only InputSchemas entry type the
// template service accepts for IAC templates.
const SchemaTypeFormJSONSchema = "FORM_JSONSCHEMA"

// RevisionDescriptor is one element of the listall response.
type RevisionDescriptor struct {
	TemplateID string `json:"TemplateId"`
}

// SchemaPair carries the two base64-encoded schema documents of one
// InputSchemas entry: the input-field schema and the UI-layout schema.
type SchemaPair struct {
	Type         string `json:"type,omitempty"`
	EncodedData  string `json:"encodedData"`
	UISchemaData string `json:"uiSchemaData"`
}

// RevisionDetails is the full template revision as returned by the
// detail endpoint. IsPublic is 0/1 on the wire.
type RevisionDetails struct {
	TemplateID      string       `json:"TemplateId"`
	NextRevision    int          `json:"NextRevision"`
	IsPublic        int          `json:"IsPublic"`
	LongDescription string       `json:"LongDescription"`
	InputSchemas    []SchemaPair `json:"InputSchemas"`
}

// Published reports whether the revision has been finalized. A
// published revision is immutable and must never be patched.
func (r *RevisionDetails) Published() bool {
	return r.IsPublic != 0
}

// Schemas returns the first InputSchemas entry. Only index 0 is ever
// read or written; a push replaces the whole sequence with one entry.
func (r *RevisionDetails) Schemas() (SchemaPair, bool) {
	if len(r.InputSchemas) == 0 {
		return SchemaPair{}, false
	}
	return r.InputSchemas[0], true
}

// RevisionPatch is the partial update document sent on push. Only
// fields present in the JSON body are modified server-side, so
// LongDescription is a pointer: nil means "leave untouched".
type RevisionPatch struct {
	LongDescription *string      `json:"LongDescription,omitempty"`
	InputSchemas    []SchemaPair `json:"InputSchemas"`
}
