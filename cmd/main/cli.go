package main

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/garrulax/garrulax/pkg/markov"
)

// appEnv bundles the loaded configuration and the logger every command
// handler needs.
type appEnv struct {
	config *Config
	logger *slog.Logger
}

// setupEnv loads the configuration named by the --config flag and
// builds the command logger on stderr. Generated text is the only thing
// that goes to stdout.
func setupEnv(cmd *cobra.Command) (*appEnv, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = DefaultConfigPath()
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	applyEnvOverrides(config)

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: parseLogLevel(config.LogLevel),
	}))

	return &appEnv{config: config, logger: logger}, nil
}

func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "garrulax",
		Short: "N-gram Markov chain text generator",
		Long: "Garrulax builds n-gram Markov models from text corpora and walks them\n" +
			"to generate new text. Models can be kept as JSON files, stored in a\n" +
			"local SQLite database, and composed into documents with templates.",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to the config file (default ~/.garrulax/config.json)")

	cobra.EnableCommandSorting = false

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "garrulax %s (commit %s, built %s)\n", Version, Commit, BuildDate)
		},
	}

	rootCmd.AddCommand(
		NewGenerateCmd(),
		NewSampleCmd(),
		NewTrainCmd(),
		NewModelsCmd(),
		NewComposeCmd(),
		versionCmd,
	)

	return rootCmd
}

// addGenerateFlags registers the sampling flags shared by every
// command that produces text.
func addGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().Int64("seed", -1, "Random seed for reproducible output (-1 picks a random seed)")
	cmd.Flags().Float64("temperature", 1.0, "Sampling temperature (0 always picks the most frequent token)")
	cmd.Flags().Int("top-k", 0, "Sample only from the K most frequent successors (0 disables)")
	cmd.Flags().Bool("sentence-start", false, "Prefer starting from a capitalized state")
	cmd.Flags().String("start", "", "Seed text to continue from instead of a random starting state")
	cmd.Flags().Bool("stream", false, "Write words as they are generated instead of all at once")
}

// addTokenizerFlag registers --tokenizer on commands that read a
// corpus or join generated tokens.
func addTokenizerFlag(cmd *cobra.Command) {
	cmd.Flags().String("tokenizer", "words", `Tokenizer to use: "words" or "punct"`)
}

// generateOptions translates the sampling flags into generation
// options.
func generateOptions(cmd *cobra.Command, maxWords int) []markov.GenerateOption {
	temperature, _ := cmd.Flags().GetFloat64("temperature")
	topK, _ := cmd.Flags().GetInt("top-k")
	sentenceStart, _ := cmd.Flags().GetBool("sentence-start")
	seed, _ := cmd.Flags().GetInt64("seed")

	opts := []markov.GenerateOption{
		markov.WithMaxWords(maxWords),
		markov.WithTemperature(temperature),
		markov.WithSentenceStart(sentenceStart),
	}
	if topK > 0 {
		opts = append(opts, markov.WithTopK(topK))
	}
	if seed >= 0 {
		opts = append(opts, markov.WithRand(rand.New(rand.NewPCG(uint64(seed), uint64(seed)))))
	}
	return opts
}

// newTokenizer builds the tokenizer selected by the --tokenizer flag.
func newTokenizer(cmd *cobra.Command) (markov.Tokenizer, error) {
	name, _ := cmd.Flags().GetString("tokenizer")
	switch name {
	case "words":
		return markov.NewWordTokenizer(), nil
	case "punct":
		return markov.NewPunctTokenizer(), nil
	default:
		return nil, fmt.Errorf(`unknown tokenizer %q (want "words" or "punct")`, name)
	}
}

// parseIntArg converts a positional argument, naming it in errors.
func parseIntArg(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", name, value)
	}
	return n, nil
}

func parseMaxWords(value string) (int, error) {
	n, err := parseIntArg("max_words", value)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("max_words must be at least 0, got %d", n)
	}
	return n, nil
}

func parseStateSize(value string) (int, error) {
	n, err := parseIntArg("state_size", value)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("state_size must be at least 1, got %d", n)
	}
	return n, nil
}

func parseOrder(value string) (int, error) {
	n, err := parseIntArg("order", value)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("order must be at least 1, got %d", n)
	}
	return n, nil
}
