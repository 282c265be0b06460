// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/goalwriter/internal/analysis"
	"github.com/pdiddy/goalwriter/internal/critic"
	"github.com/pdiddy/goalwriter/internal/goalfile"
	"github.com/pdiddy/goalwriter/internal/goalstore"
	"github.com/pdiddy/goalwriter/internal/secrets"
	"github.com/pdiddy/goalwriter/pkg/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [text-file]",
	Short: "Score a draft against a goal file",
	Long: `Analyze flattens the goals in --goals and asks the content and review
critics to score the draft against every key point and sub goal. The draft
is read from the named file, or from stdin when the argument is "-" or
missing.

Scores are normalized to [0, 1]; a score below 0.5 marks a problem. With
--advice the first problem goal also gets a suggestion.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("goals", goalfile.DefaultName, "goal file (YAML or JSON)")
	analyzeCmd.Flags().String("backend", "", "critic backend: gemini or claude")
	analyzeCmd.Flags().String("model", "", "model identifier for the critic backend")
	analyzeCmd.Flags().String("sternness", "", "review strictness: gentle, standard, or harsh")
	analyzeCmd.Flags().Int("batch-size", 0, "goals analyzed concurrently (default 4)")
	analyzeCmd.Flags().Bool("advice", false, "ask for a suggestion on the first problem goal")
	analyzeCmd.Flags().Bool("json", false, "output the result as JSON")

	rootCmd.AddCommand(analyzeCmd)
}

// analyzeReport is the JSON output of analyze.
type analyzeReport struct {
	Goals   []types.FlatGoal     `json:"goals"`
	Result  types.AnalysisResult `json:"result"`
	Counts  analysis.Counts      `json:"counts"`
	Problem *analysis.Problem    `json:"problem,omitempty"`
	Advice  *types.Suggestion    `json:"advice,omitempty"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return err
	}
	if err := applyCriticFlags(cmd, &cfg); err != nil {
		return err
	}
	goalsPath, _ := cmd.Flags().GetString("goals")
	wantAdvice, _ := cmd.Flags().GetBool("advice")
	asJSON, _ := cmd.Flags().GetBool("json")

	g, err := goalfile.Load(goalsPath)
	if err != nil {
		return err
	}
	text, err := readText(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT)
	defer stop()

	client := newCritic(ctx, cfg.Critic)
	if !client.Configured() {
		return fmt.Errorf("no critic configured: set critic.api_key or add a key to %s", secrets.DefaultDir)
	}
	report, err := analyzeDraft(ctx, client, cfg.Analysis.BatchSize, g, text, wantAdvice)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(cmd.OutOrStdout(), report)
	return nil
}

// applyCriticFlags overrides critic settings with the flags given.
func applyCriticFlags(cmd *cobra.Command, cfg *types.AppConfig) error {
	flags := cmd.Flags()
	if flags.Changed("backend") {
		v, _ := flags.GetString("backend")
		cfg.Critic.Backend = types.CriticBackend(v)
	}
	if flags.Changed("model") {
		cfg.Critic.Model, _ = flags.GetString("model")
	}
	if flags.Changed("sternness") {
		v, _ := flags.GetString("sternness")
		s, err := types.ParseSternness(v)
		if err != nil {
			return err
		}
		cfg.Critic.Sternness = s
	}
	if flags.Changed("batch-size") {
		cfg.Analysis.BatchSize, _ = flags.GetInt("batch-size")
	}
	return nil
}

func readText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	return goalfile.LoadText(args[0])
}

// analyzeDraft runs one analysis and, when asked, fetches advice for the
// first problem goal.
func analyzeDraft(ctx context.Context, client *critic.Client, batchSize int, g *types.GoalStructure, text string, wantAdvice bool) (analyzeReport, error) {
	goals := goalstore.Flatten(g)
	engine := analysis.NewEngine(client, batchSize, logger)
	result := engine.Analyze(ctx, text, goals)
	if err := ctx.Err(); err != nil {
		return analyzeReport{}, err
	}

	report := analyzeReport{Goals: goals, Result: result, Counts: analysis.Summarize(result)}
	problem, found := analysis.FirstProblem(result, goals)
	if !found {
		return report, nil
	}
	report.Problem = &problem
	if wantAdvice {
		sug, err := client.Suggestion(ctx, problem.Goal.Text, text, problem.Description())
		if err != nil {
			return report, fmt.Errorf("requesting advice: %w", err)
		}
		report.Advice = &sug
	}
	return report, nil
}

func printReport(out io.Writer, r analyzeReport) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSECTION\tTYPE\tCONTENT\tREVIEW\tGOAL")
	for i, goal := range r.Goals {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\n", i, goal.SectionIndex, goal.Type,
			score(r.Result, types.ScoreContent, i), score(r.Result, types.ScoreReview, i), goal.Text)
	}
	tw.Flush()

	fmt.Fprintf(out, "\n%d goal(s), %d problem(s), %d without content evidence, %d without review evidence\n",
		r.Counts.Goals, r.Counts.Problems, r.Counts.NoContent, r.Counts.NoReview)
	if r.Problem != nil {
		fmt.Fprintf(out, "First problem: goal %d (%s, %.2f): %s\n",
			r.Problem.Index, r.Problem.Kind, r.Problem.Score, r.Problem.Goal.Text)
	}
	if r.Advice != nil {
		fmt.Fprintf(out, "\n%s\n%s\n", r.Advice.StateDescription, r.Advice.Suggestion)
	}
}

func score(r types.AnalysisResult, kind types.ScoreKind, i int) string {
	if !r.HasEvidence(kind, i) {
		return "-"
	}
	return fmt.Sprintf("%.2f", r.Score(kind, i))
}
