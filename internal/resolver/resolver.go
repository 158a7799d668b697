// Package resolver turns a template reference, pinned or not, into the
// exact revision address every read and write operates on.
package resolver

import (
	"context"
	"fmt"

	"github.com/stackguardian/tplsync/internal/models"
)

// Client is the subset of the remote client used for resolution.
type Client interface {
	ListRevisions(ctx context.Context, templateID string) ([]models.RevisionDescriptor, error)
	GetSummary(ctx context.Context, org, name string) (int, error)
}

// ResolutionError means no latest revision could be determined for an
// unpinned reference.
type ResolutionError struct {
	Ref    string
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve revision for %s: %s", e.Ref, e.Reason)
}

// Resolve returns the pinned revision address for ref. A reference
// that is already pinned is returned as-is with zero network calls; an
// unpinned one is resolved to the latest revision via the list or
// summary endpoint, depending on addressing mode.
func Resolve(ctx context.Context, client Client, ref Ref) (Pinned, error) {
	if ref.IsPinned() {
		return ref.pin(), nil
	}

	if ref.Mode() == ModeOrgName {
		return resolveBySummary(ctx, client, ref)
	}
	return resolveByList(ctx, client, ref)
}

func resolveByList(ctx context.Context, client Client, ref Ref) (Pinned, error) {
	descriptors, err := client.ListRevisions(ctx, ref.templateID)
	if err != nil {
		return Pinned{}, err
	}
	if len(descriptors) == 0 {
		return Pinned{}, &ResolutionError{Ref: ref.String(), Reason: "no revisions exist"}
	}

	// The list endpoint returns revisions in order; the last element is
	// the latest.
	latest := descriptors[len(descriptors)-1].TemplateID
	if latest == "" {
		return Pinned{}, &ResolutionError{Ref: ref.String(), Reason: "latest revision has an empty template id"}
	}

	pinnedRef, err := ParseTemplateID(latest)
	if err != nil || !pinnedRef.IsPinned() {
		return Pinned{}, &ResolutionError{Ref: ref.String(), Reason: fmt.Sprintf("latest revision id %q is not pinned", latest)}
	}
	return pinnedRef.pin(), nil
}

func resolveBySummary(ctx context.Context, client Client, ref Ref) (Pinned, error) {
	next, err := client.GetSummary(ctx, ref.org, ref.name)
	if err != nil {
		return Pinned{}, err
	}

	latest := next - 1
	if latest < 0 {
		return Pinned{}, &ResolutionError{Ref: ref.String(), Reason: fmt.Sprintf("NextRevision %d implies no revision exists", next)}
	}

	pinnedRef := ref
	pinnedRef.revision = latest
	return pinnedRef.pin(), nil
}
