package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/stackguardian/tplsync/internal/observability"
	"github.com/stackguardian/tplsync/internal/observability/logging"
	otelobs "github.com/stackguardian/tplsync/internal/observability/otel"
	"github.com/stackguardian/tplsync/internal/version"
)

// colors
const (
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorReset  = "\033[0m"
)

var rootCmd = &cobra.Command{
	Use:   "tplsync",
	Short: "Sync StackGuardian IAC templates between local files and the template service",
	Long: `tplsync pulls a template revision (documentation, input schema,
UI schema) into local files and pushes local edits back, refusing to
overwrite published revisions.`,
	Version:           version.BuildVersion(),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupContext,
	PersistentPostRun: teardownContext,
}

// shared flags, resolved by loadRunConfig
var (
	apiTokenFlag   string
	templateIDFlag string
	orgFlag        string
	templateFlag   string
	revisionFlag   int
	baseURLFlag    string
	pathFlag       string
	formatFlag     string
	timeoutFlag    time.Duration

	logFormatFlag string
	logLevelFlag  string
	logOutputFlag string

	otelEnabledFlag  bool
	otelEndpointFlag string
	otelProtocolFlag string
	otelInsecureFlag bool
	otelRatioFlag    float64
)

// set by setupContext, released by teardownContext
var (
	activeLogger logging.Logger
	activeOtel   *otelobs.Handle
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&apiTokenFlag, "api-token", "", "API key for the template service (env: SG_API_TOKEN)")
	pf.StringVar(&templateIDFlag, "template-id", "", "Opaque template id, optionally pinned with :<revision> (env: SG_TEMPLATE_ID)")
	pf.StringVar(&orgFlag, "org", "", "Organization id, used with --template")
	pf.StringVar(&templateFlag, "template", "", "Template name, used with --org")
	pf.IntVar(&revisionFlag, "revision", -1, "Exact revision for --org/--template addressing (default: latest)")
	pf.StringVar(&baseURLFlag, "base-url", "", "Template service base URL (env: SG_BASE_URL)")
	pf.StringVarP(&pathFlag, "path", "C", ".sg", "Local template directory")
	pf.StringVar(&formatFlag, "format", "json", "Local schema file format: json or yaml")
	pf.DurationVarP(&timeoutFlag, "timeout", "t", 30*time.Second, "Timeout for template service requests")

	pf.StringVar(&logFormatFlag, "log-format", "pretty", "Log format: pretty or jsonl")
	pf.StringVar(&logLevelFlag, "log-level", "info", "Log level: debug, info, warn, error")
	pf.StringVar(&logOutputFlag, "log-output", "stderr", "Log destination: stderr or a file path")

	pf.BoolVar(&otelEnabledFlag, "otel", false, "Enable OpenTelemetry tracing")
	pf.StringVar(&otelEndpointFlag, "otel-endpoint", "", "OTLP exporter endpoint")
	pf.StringVar(&otelProtocolFlag, "otel-protocol", otelobs.ProtocolHTTP, "OTLP protocol: otlphttp or otlpgrpc")
	pf.BoolVar(&otelInsecureFlag, "otel-insecure", false, "Allow insecure OTLP connections")
	pf.Float64Var(&otelRatioFlag, "otel-sample-ratio", 1.0, "Trace sample ratio (0..1)")

	rootCmd.AddCommand(GetPullCmd())
	rootCmd.AddCommand(GetPushCmd())
}

func setupContext(cmd *cobra.Command, args []string) error {
	ctx := observability.WithOpID(cmd.Context())

	logger, err := logging.NewLogger(logging.Config{
		Format: logFormatFlag,
		Level:  logLevelFlag,
		Output: logOutputFlag,
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	activeLogger = logger
	ctx = logging.WithLogger(ctx, logger)

	if otelEnabledFlag {
		cfg := otelobs.DefaultConfig()
		cfg.Enabled = true
		cfg.Endpoint = otelEndpointFlag
		cfg.Protocol = otelProtocolFlag
		cfg.Insecure = otelInsecureFlag
		cfg.SampleRatio = otelRatioFlag
		handle, err := otelobs.Init(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to set up tracing: %w", err)
		}
		activeOtel = handle
		ctx = otelobs.WithHandle(ctx, handle)
	}

	cmd.SetContext(ctx)
	return nil
}

func teardownContext(cmd *cobra.Command, args []string) {
	if activeOtel != nil {
		_ = activeOtel.Shutdown(cmd.Context())
	}
	if activeLogger != nil {
		_ = activeLogger.Close()
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%sError:%s %v\n", colorRed, colorReset, err)
		os.Exit(1)
	}
}
