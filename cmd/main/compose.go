package main

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/garrulax/garrulax/pkg/compose"
	"github.com/garrulax/garrulax/pkg/markov"
)

func NewComposeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compose <template_file> <model_file>",
		Short: "Render a text template backed by a model",
		Long: "Compose renders a Go text/template with functions that pull words,\n" +
			"sentences and paragraphs from the given model file. Inside the\n" +
			"template, .Model holds the model's name:\n\n" +
			"  {{paragraphs .Model 2 2 5 8 20}}\n\n" +
			"Generation limits come from the compose_config section of the config\n" +
			"file.",
		Args: cobra.ExactArgs(2),
		RunE: composeHandler,
	}
	cmd.Flags().Int64("seed", -1, "Random seed for reproducible output (-1 picks a random seed)")
	addTokenizerFlag(cmd)
	return cmd
}

func composeHandler(cmd *cobra.Command, args []string) error {
	env, err := setupEnv(cmd)
	if err != nil {
		return err
	}
	tokenizer, err := newTokenizer(cmd)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read template file: %w", err)
	}

	file, err := os.Open(args[1])
	if err != nil {
		return fmt.Errorf("failed to open model file: %w", err)
	}
	defer func(file *os.File) {
		_ = file.Close()
	}(file)

	g := markov.NewGenerator(tokenizer)
	g.SetLogger(env.logger)
	model, err := g.ImportModel(file)
	if err != nil {
		return fmt.Errorf("failed to load model from %s: %w", args[1], err)
	}

	mgr := compose.NewManager(g, env.config.Compose)
	mgr.SetLogger(env.logger)
	mgr.AddModel(model)
	if seed, _ := cmd.Flags().GetInt64("seed"); seed >= 0 {
		mgr.SetRand(rand.New(rand.NewPCG(uint64(seed), uint64(seed))))
	}

	data := struct{ Model string }{Model: model.Name()}
	return mgr.Render(cmd.OutOrStdout(), filepath.Base(args[0]), string(content), data)
}
