package cmd

import (
	"github.com/spf13/cobra"
)

// newFileErrorCmd creates the file-error command.
func newFileErrorCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "file-error",
		Short: "Generate a file not found error.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return s.run(cmd.Context(), "FileError", s.runtime.FileError)
		},
	}
}
