// Command dupscan runs duplicate searches against the catalog from the shell.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agenthands/catalog-dedupe/internal/app"
	"github.com/agenthands/catalog-dedupe/internal/core/model"
	"github.com/agenthands/catalog-dedupe/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "dupscan",
	Short: "Find near-duplicate catalog items",
	Long: `dupscan compares catalog item embeddings to find near-duplicates and can
ask an LLM judge to confirm each candidate group. It reads the same TOML
configuration and environment as the HTTP server.

Flags may also be set through DUPSCAN_* environment variables, for example
DUPSCAN_THRESHOLD=0.8 or DUPSCAN_VALIDATE=true.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "TOML config file (default: $CONFIG_PATH)")
	flags.Float64("threshold", model.DefaultThreshold, "minimum cosine similarity, 0..1")
	flags.Bool("validate", false, "confirm candidate groups with the LLM judge")
	flags.String("level", "", "judge strictness: strict, moderate or lenient")
	flags.Bool("json", false, "print the result as JSON")

	for _, name := range []string{"config", "threshold", "validate", "level", "json"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func initConfig() {
	_ = godotenv.Load()
	viper.SetEnvPrefix("DUPSCAN")
	viper.AutomaticEnv()
}

// openApp loads configuration and connects the catalog and LLM provider.
func openApp(ctx context.Context) (*app.App, error) {
	path := viper.GetString("config")
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	cfg, err := app.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.Log, os.Stderr)
	return app.New(ctx, cfg, logger)
}

func searchOptions() model.Options {
	return model.Options{
		Threshold:     viper.GetFloat64("threshold"),
		UseValidation: viper.GetBool("validate"),
		Level:         model.Level(viper.GetString("level")),
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
