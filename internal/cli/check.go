package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pvolkov/expaudit/internal/engine"
	"github.com/pvolkov/expaudit/internal/model"
	"github.com/pvolkov/expaudit/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	policyPath  string
	inputPath   string
	outJSON     string
	outMD       string
	engineName  string
	engineModel string
	engineURL   string
	evalMode    string
	workers     int
	runTimeout  time.Duration
	callTimeout time.Duration
	noCache     bool
	noFooter    bool
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate expense documents against a policy and write a report",
	Long: `Check runs one audit batch:
- Load the policy document and normalize it into discrete rules
- Load expense documents from a zip archive, a directory, or a single file
- Evaluate each document against each rule through the judgment engine
- Aggregate the verdicts into a structured compliance report

Exit codes: 0 = run completed and a report was produced (regardless of
compliance outcomes); 1 = fatal input error; 2 = engine entirely
unreachable (zero verdicts obtainable).

Example:
  expaudit check -p policy.pdf -i receipts.zip -o report.json
  expaudit check -p policy.txt -i ./expenses -o report.json --md report.md
  expaudit check -p policy.txt -i receipts.zip -o report.json --engine openai --engine-model gpt-4o-mini`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&policyPath, "policy", "p", "", "path to the expense policy document (required)")
	checkCmd.Flags().StringVarP(&inputPath, "input", "i", "", "path to a zip archive, directory, or single expense document (required)")
	checkCmd.Flags().StringVarP(&outJSON, "output", "o", "", "output path for the JSON report (required)")
	checkCmd.Flags().StringVar(&outMD, "md", "", "output path for a Markdown report (optional)")
	_ = checkCmd.MarkFlagRequired("policy")
	_ = checkCmd.MarkFlagRequired("input")
	_ = checkCmd.MarkFlagRequired("output")

	// Engine flags
	checkCmd.Flags().StringVar(&engineName, "engine", "ollama", "judgment engine provider (ollama, openai, anthropic)")
	checkCmd.Flags().StringVar(&engineModel, "engine-model", "mistral", "engine model name")
	checkCmd.Flags().StringVar(&engineURL, "engine-url", "", "engine endpoint URL (overrides OLLAMA_BASE_URL)")

	// Run flags
	checkCmd.Flags().StringVar(&evalMode, "mode", string(model.ModePerRule), "evaluation granularity (per-rule, per-ruleset)")
	checkCmd.Flags().IntVar(&workers, "workers", 2, "concurrent evaluation workers")
	checkCmd.Flags().DurationVar(&runTimeout, "timeout", 30*time.Minute, "overall run timeout")
	checkCmd.Flags().DurationVar(&callTimeout, "call-timeout", 2*time.Minute, "timeout per engine call")
	checkCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the in-run verdict cache")
	checkCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	cfg, err := buildConfig(cmd.Flags())
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Policy:  %s\n", policyPath)
		fmt.Fprintf(os.Stderr, "Input:   %s\n", inputPath)
		fmt.Fprintf(os.Stderr, "Engine:  %s/%s\n", cfg.Engine.Provider, cfg.Engine.Model)
		fmt.Fprintln(os.Stderr)
	}

	p, err := pipeline.NewPipeline(cfg)
	if err != nil {
		return err
	}

	rep, err := p.Run(ctx, policyPath, inputPath)
	if rep != nil {
		// A report exists even when the run degraded to zero verdicts;
		// it is never silently dropped.
		if renderErr := p.RenderReport(rep, outJSON, outMD); renderErr != nil {
			return renderErr
		}
	}
	return err
}

// buildConfig assembles the runtime configuration: defaults, then config
// file values, then environment, with explicitly set flags on top.
func buildConfig(flags *pflag.FlagSet) (*model.Config, error) {
	cfg := model.DefaultConfig()

	if err := viper.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) { dc.TagName = "yaml" }); err != nil {
		return nil, fmt.Errorf("apply config file: %w", err)
	}

	// Flags override the config file only when actually set; flag defaults
	// must not mask file values.
	if flags.Changed("engine") {
		cfg.Engine.Provider = engineName
	}
	if flags.Changed("engine-model") {
		cfg.Engine.Model = engineModel
	}
	if engineURL != "" {
		cfg.Engine.BaseURL = engineURL
	}
	if flags.Changed("call-timeout") {
		cfg.Engine.CallTimeout = callTimeout
	}
	if flags.Changed("mode") {
		cfg.Evaluation.Mode = model.EvaluationMode(evalMode)
	}
	if flags.Changed("workers") {
		cfg.Concurrency.Workers = workers
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if noFooter {
		cfg.Output.IncludeFooter = false
	}
	cfg.Output.Verbose = cfg.Output.Verbose || verbose

	switch cfg.Evaluation.Mode {
	case model.ModePerRule, model.ModePerRuleSet:
	default:
		return nil, fmt.Errorf("invalid --mode %q (supported: %s, %s)", cfg.Evaluation.Mode, model.ModePerRule, model.ModePerRuleSet)
	}

	switch cfg.Engine.Provider {
	case "openai":
		cfg.Engine.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.Engine.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "anthropic", "claude":
		cfg.Engine.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		if cfg.Engine.APIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	case "ollama":
		if cfg.Engine.BaseURL == "" {
			cfg.Engine.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}

	return cfg, nil
}

// ExitCode maps a run error to the process exit code: 1 for fatal input
// errors, 2 when the engine was entirely unreachable and zero verdicts
// were obtainable.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var unavailable *engine.UnavailableError
	if errors.As(err, &unavailable) || errors.Is(err, pipeline.ErrNoVerdicts) {
		return 2
	}
	return 1
}
