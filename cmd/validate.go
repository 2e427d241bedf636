package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [kql]",
	Short: "Check that a KQL string is structurally well-formed",
	Long: `Validate checks balanced parentheses/brackets, a non-empty body,
and the presence of a recognized table name from the schema catalog,
without executing the query against any backend.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}

	if eng.Validate(args[0]) {
		fmt.Println("valid")
		return nil
	}
	fmt.Fprintln(os.Stderr, "invalid")
	os.Exit(1)
	return nil
}
