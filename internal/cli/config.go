package cli

import (
	"os"
	"time"

	"github.com/stackguardian/tplsync/internal/codec"
	"github.com/stackguardian/tplsync/internal/remote"
	"github.com/stackguardian/tplsync/internal/resolver"
)

// ConfigError means required configuration is missing or contradictory.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

// runConfig is the resolved per-invocation configuration. Flags win
// over environment variables; nothing is read from the environment
// after this point.
type runConfig struct {
	Token   string
	BaseURL string
	Path    string
	Format  codec.Format
	Timeout time.Duration
	Ref     resolver.Ref
}

func loadRunConfig() (*runConfig, error) {
	token := firstNonEmpty(apiTokenFlag, os.Getenv("SG_API_TOKEN"))
	if token == "" {
		return nil, &ConfigError{Msg: "api token is required (--api-token or SG_API_TOKEN)"}
	}

	ref, err := loadRef()
	if err != nil {
		return nil, err
	}

	format, err := codec.ParseFormat(formatFlag)
	if err != nil {
		return nil, &ConfigError{Msg: err.Error()}
	}

	return &runConfig{
		Token:   token,
		BaseURL: firstNonEmpty(baseURLFlag, os.Getenv("SG_BASE_URL"), remote.DefaultBaseURL),
		Path:    pathFlag,
		Format:  format,
		Timeout: timeoutFlag,
		Ref:     ref,
	}, nil
}

func loadRef() (resolver.Ref, error) {
	templateID := firstNonEmpty(templateIDFlag, os.Getenv("SG_TEMPLATE_ID"))

	switch {
	case templateID != "" && (orgFlag != "" || templateFlag != ""):
		return resolver.Ref{}, &ConfigError{Msg: "use either --template-id or --org/--template, not both"}

	case templateID != "":
		if revisionFlag >= 0 {
			return resolver.Ref{}, &ConfigError{Msg: "pin the revision inside --template-id (e.g. /org/name:3), --revision only applies to --org/--template"}
		}
		ref, err := resolver.ParseTemplateID(templateID)
		if err != nil {
			return resolver.Ref{}, &ConfigError{Msg: err.Error()}
		}
		return ref, nil

	case orgFlag != "" && templateFlag != "":
		ref, err := resolver.OrgName(orgFlag, templateFlag, revisionFlag)
		if err != nil {
			return resolver.Ref{}, &ConfigError{Msg: err.Error()}
		}
		return ref, nil

	default:
		return resolver.Ref{}, &ConfigError{Msg: "a template is required: --template-id (or SG_TEMPLATE_ID), or --org with --template"}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
