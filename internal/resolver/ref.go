package resolver

import (
	"fmt"
	"strconv"
	"strings"
)

// AddressingMode selects which of the two remote addressing schemes a
// Ref uses. The service exposes both and neither is canonical.
type AddressingMode int

const (
	// ModeTemplateID addresses the template by its opaque
	// slash-delimited TemplateId, e.g. "/demo-org/vpc" or
	// "/demo-org/vpc:3".
	ModeTemplateID AddressingMode = iota
	// ModeOrgName addresses the template by an explicit organization
	// and template name pair.
	ModeOrgName
)

// Unpinned marks a Ref that does not carry a revision number.
const Unpinned = -1

// Ref is a template reference in one of the two addressing modes,
// possibly pinned to an exact revision. Build one with ParseTemplateID
// or OrgName; never by slicing strings at call sites.
type Ref struct {
	mode       AddressingMode
	templateID string // opaque form without revision suffix, leading slash
	org        string
	name       string
	revision   int // Unpinned when no revision is given
}

// ParseTemplateID builds a Ref from an opaque TemplateId. A trailing
// ":<non-negative integer>" pins the revision.
func ParseTemplateID(id string) (Ref, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Ref{}, fmt.Errorf("template id is empty")
	}
	if !strings.HasPrefix(id, "/") {
		id = "/" + id
	}

	revision := Unpinned
	if idx := strings.LastIndex(id, ":"); idx >= 0 {
		n, err := strconv.Atoi(id[idx+1:])
		if err != nil || n < 0 {
			return Ref{}, fmt.Errorf("invalid revision suffix in template id %q", id)
		}
		revision = n
		id = id[:idx]
	}

	org := strings.SplitN(strings.TrimPrefix(id, "/"), "/", 2)[0]
	if org == "" {
		return Ref{}, fmt.Errorf("template id %q has no organization segment", id)
	}

	return Ref{
		mode:       ModeTemplateID,
		templateID: id,
		org:        org,
		revision:   revision,
	}, nil
}

// OrgName builds a Ref from an explicit organization and template name.
// Pass Unpinned as revision to refer to the latest revision.
func OrgName(org, name string, revision int) (Ref, error) {
	if org == "" || name == "" {
		return Ref{}, fmt.Errorf("organization and template name must both be set")
	}
	if revision < Unpinned {
		return Ref{}, fmt.Errorf("invalid revision %d", revision)
	}
	return Ref{mode: ModeOrgName, org: org, name: name, revision: revision}, nil
}

// Mode returns the addressing mode of the reference.
func (r Ref) Mode() AddressingMode { return r.mode }

// Org returns the organization scope of the reference; used for the
// organization header on every remote call.
func (r Ref) Org() string { return r.org }

// IsPinned reports whether the reference carries an exact revision.
func (r Ref) IsPinned() bool { return r.revision != Unpinned }

// String renders the reference for log and error messages.
func (r Ref) String() string {
	switch {
	case r.mode == ModeOrgName && r.IsPinned():
		return fmt.Sprintf("%s/%s:%d", r.org, r.name, r.revision)
	case r.mode == ModeOrgName:
		return r.org + "/" + r.name
	case r.IsPinned():
		return fmt.Sprintf("%s:%d", r.templateID, r.revision)
	default:
		return r.templateID
	}
}

// Pinned is a fully resolved revision address. ID is the URL path
// segment following the service's IAC prefix.
type Pinned struct {
	ID       string
	Org      string
	Revision int
}

// pin renders the canonical pinned form of a Ref that already carries a
// revision number.
func (r Ref) pin() Pinned {
	if r.mode == ModeOrgName {
		return Pinned{
			ID:       fmt.Sprintf("/%s/%s:%d/", r.org, r.name, r.revision),
			Org:      r.org,
			Revision: r.revision,
		}
	}
	return Pinned{
		ID:       fmt.Sprintf("%s:%d", r.templateID, r.revision),
		Org:      r.org,
		Revision: r.revision,
	}
}
