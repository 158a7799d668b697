package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/stackguardian/tplsync/internal/observability"
	"github.com/stackguardian/tplsync/internal/observability/logging"
	otelobs "github.com/stackguardian/tplsync/internal/observability/otel"
	"github.com/stackguardian/tplsync/internal/remote"
	"github.com/stackguardian/tplsync/internal/sync"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// pullCmd definition
var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Pull a template revision into local files",
	Long: `Fetches the referenced revision (latest, when unpinned) and writes
documentation.md plus the two schema files under --path. Slots the
remote revision does not carry are skipped; existing local files are
never deleted.

Example:
  tplsync pull --template-id /demo-org/vpc --path .sg`,
	SilenceUsage: true,
	RunE:         runPull,
}

// GetPullCmd exports the pull command
func GetPullCmd() *cobra.Command {
	return pullCmd
}

func runPull(cmd *cobra.Command, args []string) (err error) {
	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	log := logging.From(ctx)
	start := time.Now()

	if h := otelobs.From(ctx); h != nil {
		var span trace.Span
		ctx, span = h.Tracer.Start(ctx, "tplsync.pull",
			trace.WithAttributes(
				attribute.String("tplsync.op_id", observability.OpID(ctx)),
				attribute.String("tplsync.template", cfg.Ref.String()),
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

	log.Event(ctx, "pull.start", map[string]any{"template": cfg.Ref.String()})

	var resultStatus string
	defer func() {
		log.Event(ctx, "pull.complete", map[string]any{
			"duration_ms": time.Since(start).Milliseconds(),
			"result":      resultStatus,
		})
	}()

	client := remote.New(cfg.BaseURL, cfg.Token, cfg.Ref.Org(), cfg.Timeout)
	engine := sync.New(client)

	pinned, err := engine.Pull(ctx, cfg.Ref, cfg.Path, cfg.Format)
	if err != nil {
		resultStatus = "fail"
		return fmt.Errorf("pull failed: %w", err)
	}

	resultStatus = "success"
	fmt.Printf("%s✓ Pulled %s into %s%s\n", colorGreen, pinned.ID, cfg.Path, colorReset)
	return nil
}
