package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jward/surveyor/internal/manifest"
)

func (c *cli) validateCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "validate <manifest>",
		Short: "Re-validate a written manifest",
		Long:  "Checks a manifest file against the manifest document schema and compiles every tool's input schema. Exits non-zero when problems are found.",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return validateOutputFormat(format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.ReadFile(args[0])
			if err != nil {
				return c.outputError(cmd, format, "validate", err)
			}

			problems := manifest.Validate(m)
			v := CLIValidation{
				Manifest: args[0],
				Tools:    len(m.Tools),
				Valid:    len(problems) == 0,
				Problems: make([]string, len(problems)),
			}
			for i, p := range problems {
				v.Problems[i] = p.String()
			}

			if format == outputText {
				formatValidationText(cmd.OutOrStdout(), v)
			} else if err := outputResult(cmd.OutOrStdout(), CLIResult{Command: "validate", Results: v}); err != nil {
				return err
			}
			if !v.Valid {
				// Already reported on stdout.
				c.errorHandled = true
				return fmt.Errorf("%s: %d validation problem(s)", args[0], len(problems))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", outputJSON, "output format: json|text")
	return cmd
}
