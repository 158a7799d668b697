package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/stackguardian/tplsync/internal/observability"
	"github.com/stackguardian/tplsync/internal/observability/logging"
	otelobs "github.com/stackguardian/tplsync/internal/observability/otel"
	"github.com/stackguardian/tplsync/internal/policy"
	"github.com/stackguardian/tplsync/internal/remote"
	"github.com/stackguardian/tplsync/internal/sync"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// pushCmd definition
var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push local template files to the remote revision",
	Long: `Encodes the local schema files (and documentation, if present) and
patches the referenced revision in place. A published revision is
immutable and the push is refused before anything is written.

Example:
  tplsync push --org demo-org --template vpc --path .sg --dry-run`,
	SilenceUsage: true,
	RunE:         runPush,
}

var (
	dryRunFlag     bool
	policyFileFlag string
)

func init() {
	pushCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Show the diff against the remote revision without patching")
	pushCmd.Flags().StringVar(&policyFileFlag, "policy", "", "YAML policy file of CEL rules checked before patching")
}

// GetPushCmd exports the push command
func GetPushCmd() *cobra.Command {
	return pushCmd
}

func runPush(cmd *cobra.Command, args []string) (err error) {
	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}

	opts := sync.PushOptions{DryRun: dryRunFlag}
	if policyFileFlag != "" {
		opts.Policy, err = policy.Load(policyFileFlag)
		if err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	log := logging.From(ctx)
	start := time.Now()

	if h := otelobs.From(ctx); h != nil {
		var span trace.Span
		ctx, span = h.Tracer.Start(ctx, "tplsync.push",
			trace.WithAttributes(
				attribute.String("tplsync.op_id", observability.OpID(ctx)),
				attribute.String("tplsync.template", cfg.Ref.String()),
				attribute.Bool("tplsync.dry_run", dryRunFlag),
			))
		defer func() {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed")
			} else {
				span.SetStatus(codes.Ok, "success")
			}
			span.End()
		}()
	}

	log.Event(ctx, "push.start", map[string]any{
		"template": cfg.Ref.String(),
		"dry_run":  dryRunFlag,
	})

	var resultStatus string
	defer func() {
		log.Event(ctx, "push.complete", map[string]any{
			"duration_ms": time.Since(start).Milliseconds(),
			"result":      resultStatus,
		})
	}()

	client := remote.New(cfg.BaseURL, cfg.Token, cfg.Ref.Org(), cfg.Timeout)
	engine := sync.New(client)

	result, err := engine.Push(ctx, cfg.Ref, cfg.Path, cfg.Format, opts)
	if err != nil {
		resultStatus = "fail"
		return fmt.Errorf("push failed: %w", err)
	}

	printPolicyWarnings(result.PolicyResults)

	if result.DryRun != nil {
		resultStatus = "dry-run"
		return printDryRun(result)
	}

	resultStatus = "success"
	fmt.Printf("%s✓ Pushed %s to revision %s%s\n", colorGreen, cfg.Path, result.Pinned.ID, colorReset)
	return nil
}

func printPolicyWarnings(results []policy.Result) {
	for _, r := range results {
		if !r.Passed && r.Severity == policy.SeverityWarn {
			fmt.Fprintf(os.Stderr, "%sWarning: policy rule %q: %s%s\n",
				colorYellow, r.RuleName, r.FailureMsg, colorReset)
		}
	}
}

func printDryRun(result *sync.PushResult) error {
	diff := result.DryRun

	if len(diff.Schema) == 0 && len(diff.UISchema) == 0 && !diff.DescriptionChanged {
		fmt.Printf("%s✓ No changes - local files match revision %s%s\n",
			colorGreen, result.Pinned.ID, colorReset)
		return nil
	}

	fmt.Printf("Dry run against %s:\n", result.Pinned.ID)
	if diff.DescriptionChanged {
		fmt.Printf("  %sdocumentation changed%s\n", colorYellow, colorReset)
	}
	for _, slot := range []struct {
		name  string
		patch any
		empty bool
	}{
		{"schema", diff.Schema, len(diff.Schema) == 0},
		{"ui schema", diff.UISchema, len(diff.UISchema) == 0},
	} {
		if slot.empty {
			continue
		}
		out, err := json.MarshalIndent(slot.patch, "  ", "  ")
		if err != nil {
			return fmt.Errorf("failed to render %s diff: %w", slot.name, err)
		}
		fmt.Printf("  %s%s changed:%s\n  %s\n", colorYellow, slot.name, colorReset, string(out))
	}
	return nil
}
