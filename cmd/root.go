// Package cmd implements the command-line front end over engine.
// TranslatorEngine: translate, validate, and stats subcommands, grounded
// on the teacher's cobra/viper/clicky root command.
package cmd

import (
	"fmt"
	"os"

	"github.com/flanksource/clicky"
	"github.com/flanksource/commons/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/flanksource/yellowstone-kql/cache"
	"github.com/flanksource/yellowstone-kql/catalog"
	"github.com/flanksource/yellowstone-kql/engine"
)

var (
	cfgFile     string
	schemaFile  string
	enableAI    bool
	cacheDBPath string
)

// VersionInfo is rendered through clicky the same way the teacher
// renders its own "version" command output.
type VersionInfo struct {
	Program string `json:"program" pretty:"label=Program,style=text-blue-600 font-bold"`
	Version string `json:"version" pretty:"label=Version,color=green"`
	Commit  string `json:"commit" pretty:"label=Commit,style=text-gray-600"`
	Built   string `json:"built" pretty:"label=Built,style=text-gray-600"`
}

var getVersionInfo func() (version, commit, date string)

// SetVersionInfo lets main inject build-time version metadata.
func SetVersionInfo(fn func() (string, string, string)) {
	getVersionInfo = fn
}

var rootCmd = &cobra.Command{
	Use:   "yellowstone-kql",
	Short: "Translate Cypher and Gremlin graph queries into Kusto Query Language",
	Long: `yellowstone-kql parses Cypher and Gremlin graph queries and emits
equivalent KQL (Kusto Query Language) against a relational backend
described by a schema catalog.

It resolves graph labels, relationship types, and properties against the
catalog, plans and optimizes the query as a logical plan tree, and emits
KQL using make-graph/graph-match for pattern queries and
graph-shortest-paths, all_paths and all_shortest_paths for path algorithms.`,
	Run: func(cmd *cobra.Command, args []string) {
		if getVersionInfo != nil {
			version, commit, date := getVersionInfo()
			out, err := clicky.Format(VersionInfo{Program: "yellowstone-kql", Version: version, Commit: commit, Built: date})
			if err == nil {
				fmt.Print(out)
				return
			}
		}
		_ = cmd.Help()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.yellowstone-kql.yaml)")
	rootCmd.PersistentFlags().StringVar(&schemaFile, "schema", "schema.yaml", "path to the schema catalog YAML file")
	rootCmd.PersistentFlags().BoolVar(&enableAI, "enable-ai", false, "allow AI fallback translation for unsupported constructs")
	rootCmd.PersistentFlags().StringVar(&cacheDBPath, "cache-db", "", "path to a SQLite file for persisting the pattern cache across runs (disabled when empty)")

	clicky.BindAllFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".yellowstone-kql")
	}

	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		logger.Infof("Using config file: %s", viper.ConfigFileUsed())
	}

	clicky.Flags.UseFlags()
}

// newEngine loads the schema catalog from --schema and constructs a
// TranslatorEngine with no AI translator wired in; this CLI is a
// reference consumer of engine.TranslatorEngine, not a deployment with a
// real backend or AI credentials. When --cache-db is set, the engine's
// pattern cache is backed by a GormStore at that path instead of staying
// purely in-memory.
func newEngine() (*engine.TranslatorEngine, error) {
	cat, err := catalog.LoadYAML(schemaFile)
	if err != nil {
		return nil, fmt.Errorf("loading schema catalog %s: %w", schemaFile, err)
	}
	if errs := cat.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("schema catalog %s failed validation: %s", schemaFile, errs.Error())
	}

	opts := engine.DefaultOptions()
	opts.EnableAI = enableAI
	eng := engine.New(cat, nil, opts)

	if cacheDBPath != "" {
		store, err := cache.NewGormStore(cacheDBPath)
		if err != nil {
			return nil, fmt.Errorf("opening cache database %s: %w", cacheDBPath, err)
		}
		if err := eng.WithStore(store); err != nil {
			return nil, fmt.Errorf("loading cache database %s: %w", cacheDBPath, err)
		}
	}

	return eng, nil
}
