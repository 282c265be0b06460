// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/goalwriter/internal/sentence"
)

var splitCmd = &cobra.Command{
	Use:   "split [text-file]",
	Short: "Print the sentences of a draft",
	Long: `Split runs the sentence splitter the critics and highlights use and
prints one sentence per line with its zero-based id. The draft is read from
the named file, or from stdin when the argument is "-" or missing.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readText(cmd, args)
		if err != nil {
			return err
		}
		sentences := sentence.Split(text)
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(sentences)
		}
		for _, s := range sentences {
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", s.ID, s.Text)
		}
		return nil
	},
}

func init() {
	splitCmd.Flags().Bool("json", false, "output sentences as JSON")

	rootCmd.AddCommand(splitCmd)
}
