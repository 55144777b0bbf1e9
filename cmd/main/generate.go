package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garrulax/garrulax/pkg/markov"
)

func NewGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <input_file> <max_words> <state_size>",
		Short: "Build a model from a text file and generate from it",
		Long: "Generate reads a corpus file, builds an in-memory model of the given\n" +
			"state size, and prints generated text to stdout. The model is thrown\n" +
			"away afterwards; use train to keep it.",
		Args: cobra.ExactArgs(3),
		RunE: generateHandler,
	}
	addGenerateFlags(cmd)
	addTokenizerFlag(cmd)
	return cmd
}

func generateHandler(cmd *cobra.Command, args []string) error {
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
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer func(file *os.File) {
		_ = file.Close()
	}(file)

	model, err := g.Train(cmd.Context(), modelNameFromPath(args[0]), stateSize, file)
	if err != nil {
		return err
	}

	return emit(cmd, env, g, model, maxWords)
}

// emit generates text from model and writes it to stdout, honoring the
// --start and --stream flags. A model with no states produces no output
// and a notice on stderr, not an error.
func emit(cmd *cobra.Command, env *appEnv, g *markov.Generator, model *markov.Model, maxWords int) error {
	if model.States() == 0 {
		env.logger.Warn("Model has no states, nothing to generate",
			slog.String("model_name", model.Name()),
		)
		return nil
	}

	opts := generateOptions(cmd, maxWords)
	start, _ := cmd.Flags().GetString("start")
	stream, _ := cmd.Flags().GetBool("stream")

	if stream {
		if start != "" {
			return fmt.Errorf("--start and --stream cannot be combined")
		}
		ch, err := g.GenerateStream(cmd.Context(), model, opts...)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for chunk := range ch {
			fmt.Fprint(out, chunk)
		}
		fmt.Fprintln(out)
		return nil
	}

	var text string
	var err error
	if start != "" {
		text, err = g.GenerateFrom(model, start, opts...)
	} else {
		text, err = g.Generate(model, opts...)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

// modelNameFromPath derives a model name from a corpus path.
func modelNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
