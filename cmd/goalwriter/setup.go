// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/goalwriter/internal/conversation"
	"github.com/pdiddy/goalwriter/internal/events"
	"github.com/pdiddy/goalwriter/internal/goalfile"
	"github.com/pdiddy/goalwriter/internal/goalstore"
	"github.com/pdiddy/goalwriter/internal/store"
	"github.com/pdiddy/goalwriter/pkg/types"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Set paper goals through a guided chat on the terminal",
	Long: `Setup runs the goal-setting chat on stdin and stdout: the paper idea,
the number of sections, then a title and description for each section. The
critic drafts metadata and each section's objective and key points.

The agreed goals are written to --out (YAML, or JSON for a .json path).
With --user they are also stored as that writer's document, so the next
session opens straight into writing.`,
	RunE: runSetup,
}

func init() {
	setupCmd.Flags().String("out", goalfile.DefaultName, "goal file to write")
	setupCmd.Flags().String("user", "", "also store the goals as this user's document")

	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return err
	}
	outPath, _ := cmd.Flags().GetString("out")
	userID, _ := cmd.Flags().GetString("user")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT)
	defer stop()

	client := newCritic(ctx, cfg.Critic)
	if !client.Configured() {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: no critic configured; metadata and objectives will be left empty")
	}
	goals := goalstore.NewStore(types.NewGoalStructure())
	rec := events.NewRecorder(nil, logger).For(userID)
	conv := conversation.New(goals, client, rec, logger)

	g, err := chat(ctx, conv, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := goalfile.Save(outPath, g); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d section(s), %d goal(s) to %s\n",
		len(g.PaperOutline), len(goalstore.Flatten(g)), outPath)

	if userID == "" {
		return nil
	}
	docs, err := store.Open(cfg.Persistence)
	if err != nil {
		return err
	}
	defer docs.Close()
	if err := docs.Save(ctx, userID, types.DocumentPatch{GoalStructure: g}); err != nil {
		return fmt.Errorf("storing goals for %s: %w", userID, err)
	}
	logger.Info("goals stored", zap.String("user_id", userID))
	return nil
}

// chat drives conv from lines of in until the plan is complete, then
// confirms it.
func chat(ctx context.Context, conv *conversation.Conversation, in io.Reader, out io.Writer) (*types.GoalStructure, error) {
	for _, m := range conv.Transcript() {
		fmt.Fprintln(out, m.Text)
	}
	scanner := bufio.NewScanner(in)
	for conv.State() != conversation.Finalizing {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, fmt.Errorf("reading input: %w", err)
			}
			return nil, errors.New("input ended before goal setting finished")
		}
		reply, err := conv.Send(ctx, scanner.Text())
		if err != nil && !errors.Is(err, conversation.ErrInvalidInput) {
			return nil, err
		}
		for _, m := range reply.Messages {
			fmt.Fprintln(out, m.Text)
		}
	}
	return conv.Confirm(ctx)
}
