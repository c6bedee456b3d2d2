package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"starmark/pkg/enrich"
	"starmark/pkg/export"
	"starmark/pkg/github"
	"starmark/pkg/observability"
	"starmark/pkg/replace"
)

// Defaults for the enrich command.
const (
	defaultEnrichTimeout = 5 * time.Minute
	maxConcurrentFiles   = 4
)

// enrichFlags collects the enrich command's flag values.
type enrichFlags struct {
	token        string
	write        bool
	dryRun       bool
	output       string
	jsonStdout   bool
	jsonOut      string
	sortBy       string
	minRefs      int
	replace      []string
	replaceRegex []string
	brand        bool
	linkPrefix   string
	configPath   string
	cacheTTL     time.Duration
	timeout      time.Duration
}

// enrichCommand creates the enrich command.
func (c *CLI) enrichCommand() *cobra.Command {
	flags := &enrichFlags{}

	cmd := &cobra.Command{
		Use:   "enrich [files...]",
		Short: "Annotate markdown link lists with repository metadata",
		Long: `Enrich one or more markdown files: every link pointing at a repository
gets an inline status badge (stars, open issues, language, last push), and
lists with enough repository links can be re-sorted by a metric.

The API token is taken from --token or the GITHUB_TOKEN environment
variable; unauthenticated requests work but hit low rate limits.

Examples:
  starmark enrich README.md                       # enriched text to stdout
  starmark enrich -w README.md                    # rewrite in place
  starmark enrich -w --sort stars README.md       # also sort lists by stars
  starmark enrich --json README.md > list.json    # structured JSON export
  starmark enrich -w README.md docs/TOOLS.md      # several files at once`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEnrich(cmd, args, flags)
		},
	}

	cmd.Flags().StringVar(&flags.token, "token", "", "API token (defaults to $GITHUB_TOKEN)")
	cmd.Flags().BoolVarP(&flags.write, "write", "w", false, "rewrite input files in place")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "report what would change without writing")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file (single input only)")
	cmd.Flags().BoolVar(&flags.jsonStdout, "json", false, "print the JSON export to stdout instead of text")
	cmd.Flags().StringVar(&flags.jsonOut, "json-out", "", "write the JSON export to a file (single input only)")
	cmd.Flags().StringVar(&flags.sortBy, "sort", "", "sort qualifying lists by metric (stars|last_commit)")
	cmd.Flags().IntVar(&flags.minRefs, "min-refs", enrich.DefaultMinReferences, "repository links a list needs to qualify for sorting and export")
	cmd.Flags().StringArrayVar(&flags.replace, "replace", nil, "literal replacement rule find:::replace (repeatable)")
	cmd.Flags().StringArrayVar(&flags.replaceRegex, "replace-regex", nil, "regex replacement rule pattern:::replace (repeatable)")
	cmd.Flags().BoolVar(&flags.brand, "brand", false, "tag the top-level Awesome heading")
	cmd.Flags().StringVar(&flags.linkPrefix, "link-prefix", "", "prefix prepended to relative link targets")
	cmd.Flags().StringVar(&flags.configPath, "config", "", "TOML config file (default "+defaultConfigFile+" if present)")
	cmd.Flags().DurationVar(&flags.cacheTTL, "cache-ttl", 0, "cache fetched metadata for this long (0 disables the cache)")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", defaultEnrichTimeout, "overall timeout for the run")

	return cmd
}

// fileResult pairs an input path with its run result.
type fileResult struct {
	path   string
	result *enrich.Result
}

// spinnerHooks surfaces engine fetch progress on the spinner line.
type spinnerHooks struct {
	observability.NoopEngineHooks
	spinner *Spinner
}

func (h *spinnerHooks) OnFetchStart(ctx context.Context, references int) {
	h.spinner.SetMessage("Fetching metadata for %d repositories...", references)
}

func (h *spinnerHooks) OnFetchComplete(ctx context.Context, fetched, failed int, duration time.Duration) {
	h.spinner.SetMessage("Fetched %d repositories (%d failed) in %s",
		fetched, failed, duration.Round(time.Millisecond))
}

func (c *CLI) runEnrich(cmd *cobra.Command, args []string, flags *enrichFlags) error {
	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return err
	}
	cfg.apply(cmd, flags)

	if flags.output != "" && len(args) > 1 {
		return fmt.Errorf("--output supports a single input file, got %d", len(args))
	}
	if flags.jsonOut != "" && len(args) > 1 {
		return fmt.Errorf("--json-out supports a single input file, got %d", len(args))
	}

	token := flags.token
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}

	rules, err := buildRules(flags)
	if err != nil {
		return err
	}

	store := newCache(flags.cacheTTL)
	defer store.Close()
	client := github.NewClient(token, store, flags.cacheTTL)

	ctx := cmd.Context()
	if flags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flags.timeout)
		defer cancel()
	}

	// Showing the document on stdout and animating a spinner on stderr at
	// the same time is fine; both streams stay separate. The engine hooks
	// feed fetch progress into the spinner message.
	spinner := newSpinner(fmt.Sprintf("Enriching %d file(s)...", len(args)))
	observability.SetEngineHooks(&spinnerHooks{spinner: spinner})
	defer observability.Reset()
	spinner.Start()

	results := make([]*fileResult, len(args))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFiles)
	for i, path := range args {
		g.Go(func() error {
			raw, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			engine, err := enrich.New(enrich.Options{
				SortBy:        flags.sortBy,
				MinReferences: flags.minRefs,
				Rules:         rules,
				LinkPrefix:    flags.linkPrefix,
				Source:        path,
				Logger:        c.Logger,
				Fetcher:       client,
			})
			if err != nil {
				return err
			}
			res, err := engine.Run(gctx, raw)
			if err != nil {
				return fmt.Errorf("enrich %s: %w", path, err)
			}
			results[i] = &fileResult{path: path, result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		spinner.StopWithError("Enrichment failed")
		return err
	}
	spinner.Stop()

	for _, fr := range results {
		if err := c.emitResult(fr, flags); err != nil {
			return err
		}
	}
	return nil
}

// emitResult writes one file's outputs according to the output flags.
func (c *CLI) emitResult(fr *fileResult, flags *enrichFlags) error {
	res := fr.result
	stats := res.Stats
	c.Logger.Debug("run finished",
		"file", fr.path, "references", stats.References,
		"fetched", stats.Fetched, "failed", stats.Failed,
		"annotated", stats.Annotated, "changed", res.Changed)

	switch {
	case flags.dryRun:
		if res.Changed {
			printInfo("%s would change", StyleHighlight.Render(fr.path))
		} else {
			printDetail("%s is up to date", fr.path)
		}
		printStats(stats.References, stats.Fetched, stats.Failed)

	case flags.write:
		if res.Changed {
			if err := os.WriteFile(fr.path, res.Output, 0644); err != nil {
				return fmt.Errorf("write %s: %w", fr.path, err)
			}
			printSuccess("Updated %s", StyleHighlight.Render(fr.path))
		} else {
			printDetail("%s unchanged", fr.path)
		}
		printStats(stats.References, stats.Fetched, stats.Failed)

	case flags.output != "":
		if err := os.WriteFile(flags.output, res.Output, 0644); err != nil {
			return fmt.Errorf("write %s: %w", flags.output, err)
		}
		printSuccess("Wrote %s", StyleHighlight.Render(flags.output))
		printStats(stats.References, stats.Fetched, stats.Failed)

	case !flags.jsonStdout:
		if _, err := os.Stdout.Write(res.Output); err != nil {
			return err
		}
	}

	if flags.jsonStdout {
		if err := export.Write(res.Export, os.Stdout); err != nil {
			return err
		}
	}
	if flags.jsonOut != "" {
		if err := export.Export(res.Export, flags.jsonOut); err != nil {
			return err
		}
		printFile(flags.jsonOut)
	}
	return nil
}

// buildRules assembles the ordered replacement rules from the flags:
// literals first, then regexes, then branding, matching the order the
// engine documents.
func buildRules(flags *enrichFlags) ([]replace.Rule, error) {
	var rules []replace.Rule
	for _, pair := range flags.replace {
		parsed, err := replace.ParseRules(pair, replace.KindLiteral)
		if err != nil {
			return nil, err
		}
		rules = append(rules, parsed...)
	}
	for _, pair := range flags.replaceRegex {
		parsed, err := replace.ParseRules(pair, replace.KindRegex)
		if err != nil {
			return nil, err
		}
		rules = append(rules, parsed...)
	}
	if flags.brand {
		rules = append(rules, replace.Branding())
	}
	return rules, nil
}
