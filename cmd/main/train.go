package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/garrulax/garrulax/pkg/markov"
)

func NewTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train <input_file> <model_file> <state_size>",
		Short: "Build a model from a text file and save it",
		Long: "Train reads a corpus file, builds a model of the given state size, and\n" +
			"writes it to model_file as JSON. The file is written atomically, so an\n" +
			"interrupted run never leaves a partial model behind.",
		Args: cobra.ExactArgs(3),
		RunE: trainHandler,
	}
	addTokenizerFlag(cmd)
	return cmd
}

func trainHandler(cmd *cobra.Command, args []string) error {
	env, err := setupEnv(cmd)
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

	return writeModelFile(env, g, model, args[1])
}

// writeModelFile exports a model as JSON and writes it to path in one
// atomic step.
func writeModelFile(env *appEnv, g *markov.Generator, model *markov.Model, path string) error {
	var buf bytes.Buffer
	if err := g.ExportModel(model, &buf); err != nil {
		return err
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("failed to write model file %s: %w", path, err)
	}

	env.logger.Info("Model saved to file",
		slog.String("model_name", model.Name()),
		slog.String("path", path),
	)
	return nil
}
