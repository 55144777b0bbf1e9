package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/garrulax/garrulax/pkg/markov"
)

func NewSampleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample <model_file> <max_words> <state_size>",
		Short: "Generate text from a saved model file",
		Long: "Sample loads a model saved by train or models export and prints\n" +
			"generated text to stdout. The state_size argument must match the\n" +
			"order the model was trained with.",
		Args: cobra.ExactArgs(3),
		RunE: sampleHandler,
	}
	addGenerateFlags(cmd)
	addTokenizerFlag(cmd)
	return cmd
}

func sampleHandler(cmd *cobra.Command, args []string) error {
	env, err := setupEnv(cmd)
	if err != nil {
		return err
	}
	maxWords, err := parseMaxWords(args[1])
	if err != nil {
		return err
	}
	stateSize, err := parseStateSize(args[2])
	if err != nil {
		return err
	}
	tokenizer, err := newTokenizer(cmd)
	if err != nil {
		return err
	}

	g := markov.NewGenerator(tokenizer)
	g.SetLogger(env.logger)

	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open model file: %w", err)
	}
	defer func(file *os.File) {
		_ = file.Close()
	}(file)

	model, err := g.ImportModel(file)
	if err != nil {
		return fmt.Errorf("failed to load model from %s: %w", args[0], err)
	}
	if model.Order() != stateSize {
		return fmt.Errorf("model file %s has order %d, not %d: %w",
			args[0], model.Order(), stateSize, markov.ErrOrderMismatch)
	}

	return emit(cmd, env, g, model, maxWords)
}
