package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/huangang/gitdigest/internal/config"
	"github.com/huangang/gitdigest/internal/services"
	"github.com/huangang/gitdigest/internal/services/activity"
	"github.com/huangang/gitdigest/internal/services/github"
	"github.com/huangang/gitdigest/pkg/logger"
	"github.com/spf13/cobra"
)

var reportFlags struct {
	days      int
	style     string
	language  string
	timezone  string
	public    bool
	private   bool
	repoIDs   []int64
	noSummary bool
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a daily report",
	Long: `Generate a report of the commits and pull requests authored by the owner
of GITHUB_TOKEN. The result is printed as JSON.

Examples:
  # Public repositories, last day
  gitdigest report

  # Public and private repositories, last 3 days, in Japanese
  gitdigest report --private --days 3 --language JAPANESE

  # Only two repositories, without calling an LLM
  gitdigest report --repo 1296269 --repo 1300192 --no-summary`,
	RunE: runReportCommand,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().IntVar(&reportFlags.days, "days", 1, "number of days to look back")
	reportCmd.Flags().StringVar(&reportFlags.style, "style", string(activity.StyleProfessional), "report style: PROFESSIONAL, TECHNICAL, ACHIEVEMENT")
	reportCmd.Flags().StringVar(&reportFlags.language, "language", string(activity.LanguageEnglish), "output language")
	reportCmd.Flags().StringVar(&reportFlags.timezone, "timezone", "Local", "timezone of the report date")
	reportCmd.Flags().BoolVar(&reportFlags.public, "public", true, "include public repositories")
	reportCmd.Flags().BoolVar(&reportFlags.private, "private", false, "include private repositories")
	reportCmd.Flags().Int64SliceVar(&reportFlags.repoIDs, "repo", nil, "repository id to include (repeatable)")
	reportCmd.Flags().BoolVar(&reportFlags.noSummary, "no-summary", false, "print the aggregated activity only")
}

// reportOptions is everything runReport needs besides its collaborators.
type reportOptions struct {
	Token     string
	Days      int
	Style     activity.SummaryStyle
	Language  activity.OutputLanguage
	Timezone  string
	Scope     activity.AccessScope
	RepoIDs   []int64
	NoSummary bool
}

func runReportCommand(cmd *cobra.Command, args []string) error {
	logger.InitWithWriter(logLevel, cmd.ErrOrStderr())

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	token := strings.TrimSpace(os.Getenv("GITHUB_TOKEN"))
	if token == "" {
		return errors.New("GITHUB_TOKEN is not set")
	}

	newFetcher := github.NewFactory(github.Options{
		APIBaseURL: cfg.GitHub.APIBaseURL,
		MaxPages:   cfg.GitHub.MaxPages,
	})
	summarizer := services.NewLLMSummarizer(cfg.LLM.Providers, nil, cfg.Summary)
	reports := services.NewReportService(nil, cfg.Activity, newFetcher, summarizer)

	return runReport(cmd.Context(), cmd.OutOrStdout(), newFetcher, reports, reportOptions{
		Token:     token,
		Days:      reportFlags.days,
		Style:     activity.SummaryStyle(strings.ToUpper(reportFlags.style)),
		Language:  activity.OutputLanguage(strings.ToUpper(reportFlags.language)),
		Timezone:  reportFlags.timezone,
		Scope:     activity.AccessScope{IncludePublic: reportFlags.public, IncludePrivate: reportFlags.private},
		RepoIDs:   reportFlags.repoIDs,
		NoSummary: reportFlags.noSummary,
	})
}

// runReport resolves the token owner and writes either the report or the
// aggregated activity to out.
func runReport(ctx context.Context, out io.Writer, newFetcher github.Factory, reports *services.ReportService, opts reportOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	fetcher, err := newFetcher(opts.Token)
	if err != nil {
		return err
	}
	viewer, err := fetcher.Viewer(ctx)
	if err != nil {
		return fmt.Errorf("resolve token owner: %w", err)
	}

	req := services.ActivityRequest{
		Identity:     viewer.Login,
		AccessToken:  opts.Token,
		Scope:        opts.Scope,
		LookbackDays: opts.Days,
		RepoIDs:      opts.RepoIDs,
	}

	var result interface{}
	if opts.NoSummary {
		result, err = reports.CollectActivity(ctx, &req)
	} else {
		result, err = reports.GenerateReport(ctx, &services.GenerateReportRequest{
			ActivityRequest: req,
			Style:           opts.Style,
			Language:        opts.Language,
			Timezone:        opts.Timezone,
		})
	}
	if errors.Is(err, activity.ErrNoActivity) {
		result = map[string]string{"status": "no_activity"}
	} else if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
