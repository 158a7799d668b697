// Package sync composes the resolver, remote client and codec into the
// two top-level operations, Pull and Push.
package sync

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/stackguardian/tplsync/internal/codec"
	"github.com/stackguardian/tplsync/internal/models"
	"github.com/stackguardian/tplsync/internal/observability/logging"
	"github.com/stackguardian/tplsync/internal/policy"
	"github.com/stackguardian/tplsync/internal/resolver"
	"github.com/wI2L/jsondiff"
)

// Client is the remote surface the engine needs. *remote.Client
// implements it; tests substitute a fake with call counters.
type Client interface {
	ListRevisions(ctx context.Context, templateID string) ([]models.RevisionDescriptor, error)
	GetSummary(ctx context.Context, org, name string) (int, error)
	GetRevision(ctx context.Context, pinnedID string) (*models.RevisionDetails, error)
	PatchRevision(ctx context.Context, pinnedID string, patch *models.RevisionPatch) (*models.RevisionDetails, error)
}

// ImmutableRevisionError means a push targeted a published revision.
// Published revisions must never be overwritten; the engine rejects
// the push before any patch call is made.
type ImmutableRevisionError struct {
	TemplateID string
}

func (e *ImmutableRevisionError) Error() string {
	return fmt.Sprintf("revision %s is published and immutable, refusing to push", e.TemplateID)
}

// PolicyError means one or more error-level policy rules failed.
type PolicyError struct {
	Violations []policy.Result
}

func (e *PolicyError) Error() string {
	if len(e.Violations) == 1 {
		return fmt.Sprintf("policy rule %q failed: %s", e.Violations[0].RuleName, e.Violations[0].FailureMsg)
	}
	return fmt.Sprintf("%d policy rules failed", len(e.Violations))
}

// Engine runs Pull and Push. It is synchronous and fail-fast: the first
// failing step aborts the whole operation, and no step is retried.
type Engine struct {
	client Client
}

func New(client Client) *Engine {
	return &Engine{client: client}
}

// Pull fetches the referenced revision and decodes it into dir. It has
// no remote side effect.
func (e *Engine) Pull(ctx context.Context, ref resolver.Ref, dir string, format codec.Format) (resolver.Pinned, error) {
	log := logging.From(ctx)

	pinned, err := resolver.Resolve(ctx, e.client, ref)
	if err != nil {
		return resolver.Pinned{}, err
	}
	log.Debug("sync", "resolved revision", "template_id", pinned.ID, "revision", pinned.Revision)

	details, err := e.client.GetRevision(ctx, pinned.ID)
	if err != nil {
		return resolver.Pinned{}, err
	}

	if err := codec.Decode(ctx, details, dir, format); err != nil {
		return resolver.Pinned{}, err
	}
	return pinned, nil
}

// PushOptions modify a push.
type PushOptions struct {
	// DryRun computes the diff against the remote revision and skips
	// the patch call.
	DryRun bool
	// Policy, when set, is evaluated against the revision metadata
	// before patching; failing error-level rules abort the push.
	Policy *policy.Config
}

// PushResult reports what a push did.
type PushResult struct {
	Pinned        resolver.Pinned
	PolicyResults []policy.Result
	// DryRun holds the computed diff when PushOptions.DryRun was set;
	// nil after a real push.
	DryRun *DryRunDiff
}

// DryRunDiff is the JSON-patch difference between the remote revision
// and the local files, per schema slot.
type DryRunDiff struct {
	Schema             jsondiff.Patch
	UISchema           jsondiff.Patch
	DescriptionChanged bool
}

// Push encodes the local files and patches the referenced revision.
// The local files are read before any network call so a missing input
// fails without touching the service; the immutability gate runs after
// the revision is fetched and before anything is written.
func (e *Engine) Push(ctx context.Context, ref resolver.Ref, dir string, format codec.Format, opts PushOptions) (*PushResult, error) {
	log := logging.From(ctx)

	patch, err := codec.Encode(ctx, dir, format)
	if err != nil {
		return nil, err
	}

	pinned, err := resolver.Resolve(ctx, e.client, ref)
	if err != nil {
		return nil, err
	}

	details, err := e.client.GetRevision(ctx, pinned.ID)
	if err != nil {
		return nil, err
	}
	if details.Published() {
		return nil, &ImmutableRevisionError{TemplateID: pinned.ID}
	}

	result := &PushResult{Pinned: pinned}

	if opts.Policy != nil {
		results, err := evaluatePolicy(opts.Policy, pinned, details, patch)
		if err != nil {
			return nil, err
		}
		result.PolicyResults = results
		if violations := policy.Violations(results); len(violations) > 0 {
			return nil, &PolicyError{Violations: violations}
		}
	}

	if opts.DryRun {
		diff, err := diffAgainstRemote(details, patch)
		if err != nil {
			return nil, err
		}
		result.DryRun = diff
		log.Info("sync", "dry run, skipping patch", "template_id", pinned.ID)
		return result, nil
	}

	if _, err := e.client.PatchRevision(ctx, pinned.ID, patch); err != nil {
		return nil, err
	}
	log.Info("sync", "patched revision", "template_id", pinned.ID, "revision", pinned.Revision)
	return result, nil
}

func evaluatePolicy(config *policy.Config, pinned resolver.Pinned, details *models.RevisionDetails, patch *models.RevisionPatch) ([]policy.Result, error) {
	engine, err := policy.NewEngine()
	if err != nil {
		return nil, err
	}

	description := ""
	if patch.LongDescription != nil {
		description = *patch.LongDescription
	}

	// Metadata only: the schema documents themselves are out of policy
	// reach.
	input := map[string]any{
		"template_id":      pinned.ID,
		"revision":         pinned.Revision,
		"is_public":        details.Published(),
		"long_description": description,
		"has_description":  patch.LongDescription != nil,
	}
	return engine.Evaluate(config, input)
}

// diffAgainstRemote compares the local encoded payloads with the
// current remote ones, slot by slot, as RFC 6902 patches.
func diffAgainstRemote(details *models.RevisionDetails, patch *models.RevisionPatch) (*DryRunDiff, error) {
	remote, _ := details.Schemas()
	local := patch.InputSchemas[0]

	schemaDiff, err := diffSlot(remote.EncodedData, local.EncodedData)
	if err != nil {
		return nil, fmt.Errorf("schema diff: %w", err)
	}
	uiDiff, err := diffSlot(remote.UISchemaData, local.UISchemaData)
	if err != nil {
		return nil, fmt.Errorf("ui schema diff: %w", err)
	}

	diff := &DryRunDiff{Schema: schemaDiff, UISchema: uiDiff}
	if patch.LongDescription != nil && *patch.LongDescription != details.LongDescription {
		diff.DescriptionChanged = true
	}
	return diff, nil
}

func diffSlot(remoteB64, localB64 string) (jsondiff.Patch, error) {
	remoteJSON := []byte("null")
	if remoteB64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(remoteB64)
		if err != nil {
			return nil, fmt.Errorf("remote payload is not valid base64: %w", err)
		}
		remoteJSON = decoded
	}
	localJSON, err := base64.StdEncoding.DecodeString(localB64)
	if err != nil {
		return nil, fmt.Errorf("local payload is not valid base64: %w", err)
	}
	return jsondiff.CompareJSON(remoteJSON, localJSON)
}
