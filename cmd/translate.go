package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	flanksourceContext "github.com/flanksource/commons/context"
	"github.com/spf13/cobra"

	"github.com/flanksource/yellowstone-kql/engine"
)

var (
	translateDialect string
	translateFile    string
)

var translateCmd = &cobra.Command{
	Use:   "translate [query]",
	Short: "Translate a Cypher or Gremlin query into KQL",
	Long: `Translate reads a Cypher or Gremlin query, either as the first
positional argument or from --file (- for stdin), and prints the
equivalent KQL along with any diagnostics.

Examples:
  yellowstone-kql translate "MATCH (n:Person) RETURN n.name"
  yellowstone-kql translate --dialect gremlin "g.V().hasLabel('Person')"
  yellowstone-kql translate --file query.cypher`,
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)
	translateCmd.Flags().StringVar(&translateDialect, "dialect", "cypher", "query dialect: cypher or gremlin")
	translateCmd.Flags().StringVar(&translateFile, "file", "", "read the query from a file (- for stdin) instead of the argument")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	source, err := readQuerySource(args)
	if err != nil {
		return err
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}

	dialect := engine.Cypher
	if translateDialect == "gremlin" {
		dialect = engine.Gremlin
	}

	ctx := flanksourceContext.NewContext(context.Background())
	result, errs := eng.Translate(ctx, source, dialect, engine.RequestContext{EnableAI: enableAI})
	if len(errs) > 0 {
		for _, d := range errs {
			fmt.Fprintln(os.Stderr, d.Error())
		}
		return fmt.Errorf("translation failed")
	}

	fmt.Println(result.Query)
	fmt.Printf("# strategy=%s confidence=%.2f\n", result.Strategy, result.Confidence)
	for _, d := range result.Diagnostics {
		fmt.Printf("# %s: %s\n", d.Kind, d.Message)
	}
	return nil
}

func readQuerySource(args []string) (string, error) {
	if translateFile != "" {
		if translateFile == "-" {
			b, err := io.ReadAll(os.Stdin)
			return string(b), err
		}
		b, err := os.ReadFile(translateFile)
		return string(b), err
	}
	if len(args) == 0 {
		return "", fmt.Errorf("provide a query argument or --file")
	}
	return args[0], nil
}
