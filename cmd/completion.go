package cmd

import (
	"github.com/spf13/cobra"
)

// newCompletionCmd creates the completion command with one subcommand
// per supported shell.
func newCompletionCmd(root *cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "completion",
		Short:       "Generate shell completion scripts.",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetupAnnotation: "true"},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "bash",
			Short: "Generate the autocompletion script for Bash.",
			Args:  cobra.NoArgs,
			RunE: func(c *cobra.Command, _ []string) error {
				return root.GenBashCompletionV2(c.OutOrStdout(), true)
			},
		},
		&cobra.Command{
			Use:   "zsh",
			Short: "Generate the autocompletion script for Zsh.",
			Args:  cobra.NoArgs,
			RunE: func(c *cobra.Command, _ []string) error {
				return root.GenZshCompletion(c.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "fish",
			Short: "Generate the autocompletion script for Fish.",
			Args:  cobra.NoArgs,
			RunE: func(c *cobra.Command, _ []string) error {
				return root.GenFishCompletion(c.OutOrStdout(), true)
			},
		},
	)
	return cmd
}
