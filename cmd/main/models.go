package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/garrulax/garrulax/pkg/markov"
	"github.com/garrulax/garrulax/pkg/store"
)

func NewModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage models in the local store",
		Long: "The models commands keep trained models in a SQLite database instead\n" +
			"of loose JSON files. Vocabulary is shared between stored models, and\n" +
			"training data saved under an existing name merges into it.",
	}
	cmd.AddCommand(
		NewModelsListCmd(),
		NewModelsAddCmd(),
		NewModelsGenCmd(),
		NewModelsExportCmd(),
		NewModelsImportCmd(),
		NewModelsRemoveCmd(),
		NewModelsPruneCmd(),
		NewModelsVacuumCmd(),
		NewModelsStatsCmd(),
	)
	return cmd
}

// withStore opens the configured database, prepares the store, and
// hands both to fn, closing everything afterwards.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, env *appEnv, st *store.Store) error) error {
	env, err := setupEnv(cmd)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(env.config.DatabasePath), 0o700); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := initDB(env.config.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", env.config.DatabasePath, err)
	}
	defer func(db *sql.DB) {
		_ = db.Close()
	}(db)

	if err := store.Setup(db); err != nil {
		return err
	}
	st, err := store.New(db)
	if err != nil {
		return err
	}
	defer st.Close()
	st.SetLogger(env.logger)

	return fn(cmd.Context(), env, st)
}

// newTable builds a borderless table for command output.
func newTable(w io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	return table
}

func NewModelsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored models",
		Args:    cobra.NoArgs,
		RunE:    modelsListHandler,
	}
}

func modelsListHandler(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, env *appEnv, st *store.Store) error {
		infos, err := st.GetModelInfos(ctx)
		if err != nil {
			return err
		}

		names := make([]string, 0, len(infos))
		for name := range infos {
			names = append(names, name)
		}
		sort.Strings(names)

		var data [][]string
		for _, name := range names {
			info := infos[name]
			data = append(data, []string{info.Name, strconv.Itoa(info.Id), strconv.Itoa(info.Order)})
		}

		table := newTable(cmd.OutOrStdout(), []string{"NAME", "ID", "ORDER"})
		table.AppendBulk(data)
		table.Render()
		return nil
	})
}

func NewModelsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <input_file> <name> <order>",
		Short: "Train a model from a file and store it",
		Args:  cobra.ExactArgs(3),
		RunE:  modelsAddHandler,
	}
	addTokenizerFlag(cmd)
	return cmd
}

func modelsAddHandler(cmd *cobra.Command, args []string) error {
	order, err := parseOrder(args[2])
	if err != nil {
		return err
	}
	tokenizer, err := newTokenizer(cmd)
	if err != nil {
		return err
	}

	return withStore(cmd, func(ctx context.Context, env *appEnv, st *store.Store) error {
		g := markov.NewGenerator(tokenizer)
		g.SetLogger(env.logger)

		file, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer func(file *os.File) {
			_ = file.Close()
		}(file)

		model, err := g.Train(ctx, args[1], order, file)
		if err != nil {
			return err
		}
		return st.SaveModel(ctx, model)
	})
}

func NewModelsGenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen <name> <max_words>",
		Short: "Generate text from a stored model",
		Args:  cobra.ExactArgs(2),
		RunE:  modelsGenHandler,
	}
	addGenerateFlags(cmd)
	addTokenizerFlag(cmd)
	return cmd
}

func modelsGenHandler(cmd *cobra.Command, args []string) error {
	maxWords, err := parseMaxWords(args[1])
	if err != nil {
		return err
	}
	tokenizer, err := newTokenizer(cmd)
	if err != nil {
		return err
	}

	return withStore(cmd, func(ctx context.Context, env *appEnv, st *store.Store) error {
		model, err := st.LoadModel(ctx, args[0])
		if err != nil {
			return err
		}
		g := markov.NewGenerator(tokenizer)
		g.SetLogger(env.logger)
		return emit(cmd, env, g, model, maxWords)
	})
}

func NewModelsExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <name> <model_file>",
		Short: "Export a stored model to a JSON file",
		Args:  cobra.ExactArgs(2),
		RunE:  modelsExportHandler,
	}
}

func modelsExportHandler(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, env *appEnv, st *store.Store) error {
		model, err := st.LoadModel(ctx, args[0])
		if err != nil {
			return err
		}
		g := markov.NewGenerator(markov.NewWordTokenizer())
		g.SetLogger(env.logger)
		return writeModelFile(env, g, model, args[1])
	})
}

func NewModelsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <model_file>",
		Short: "Import a model file into the store",
		Long: "Import reads a model JSON file and saves it under the name recorded\n" +
			"inside it. Importing over an existing model of the same name merges\n" +
			"the chain frequencies.",
		Args: cobra.ExactArgs(1),
		RunE: modelsImportHandler,
	}
}

func modelsImportHandler(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, env *appEnv, st *store.Store) error {
		g := markov.NewGenerator(markov.NewWordTokenizer())
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
		return st.SaveModel(ctx, model)
	})
}

func NewModelsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"remove"},
		Short:   "Remove a stored model",
		Args:    cobra.ExactArgs(1),
		RunE:    modelsRemoveHandler,
	}
}

func modelsRemoveHandler(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, env *appEnv, st *store.Store) error {
		return st.DeleteModel(ctx, args[0])
	})
}

func NewModelsPruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune <name> <min_frequency>",
		Short: "Delete a stored model's rare chain links",
		Args:  cobra.ExactArgs(2),
		RunE:  modelsPruneHandler,
	}
}

func modelsPruneHandler(cmd *cobra.Command, args []string) error {
	minFrequency, err := parseIntArg("min_frequency", args[1])
	if err != nil {
		return err
	}
	return withStore(cmd, func(ctx context.Context, env *appEnv, st *store.Store) error {
		return st.PruneModel(ctx, args[0], minFrequency)
	})
}

func NewModelsVacuumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vacuum <min_frequency>",
		Short: "Remove rare tokens from the shared vocabulary",
		Long: "Vacuum deletes every token whose summed chain frequency across all\n" +
			"stored models is below min_frequency, along with the prefixes and\n" +
			"chains that reference it.",
		Args: cobra.ExactArgs(1),
		RunE: modelsVacuumHandler,
	}
}

func modelsVacuumHandler(cmd *cobra.Command, args []string) error {
	minFrequency, err := parseIntArg("min_frequency", args[0])
	if err != nil {
		return err
	}
	return withStore(cmd, func(ctx context.Context, env *appEnv, st *store.Store) error {
		return st.VocabularyPrune(ctx, minFrequency)
	})
}

func NewModelsStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show statistics for the store",
		Args:  cobra.NoArgs,
		RunE:  modelsStatsHandler,
	}
}

func modelsStatsHandler(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, env *appEnv, st *store.Store) error {
		stats, err := st.GetStats(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Vocabulary: %d tokens\nPrefixes: %d\n\n", stats.VocabSize, stats.PrefixSize)

		sort.Slice(stats.Models, func(i, j int) bool {
			return stats.Models[i].Name < stats.Models[j].Name
		})
		var data [][]string
		for _, info := range stats.Models {
			ms := stats.Stats[info.Id]
			data = append(data, []string{
				info.Name,
				strconv.Itoa(info.Order),
				strconv.Itoa(ms.Prefixes),
				strconv.Itoa(ms.TotalChains),
				strconv.Itoa(ms.TotalFrequency),
			})
		}

		table := newTable(out, []string{"NAME", "ORDER", "PREFIXES", "CHAINS", "FREQUENCY"})
		table.AppendBulk(data)
		table.Render()
		return nil
	})
}
