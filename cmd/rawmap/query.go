package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-mizu/rawmap"
	"github.com/go-mizu/rawmap/internal/modelfile"
	"github.com/go-mizu/rawmap/internal/output"
)

// queryFlags are shared by query and count.
type queryFlags struct {
	model      string
	params     []string
	translates []string
	normalize  bool
}

func (q *queryFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&q.model, "model", "m", "", "Model descriptor file (.yaml, .yml or .toml)")
	f.StringArrayVarP(&q.params, "param", "p", nil, "Positional bind parameter (repeatable)")
	f.StringArrayVarP(&q.translates, "translate", "t", nil, "Column rename FROM=TO (repeatable)")
	f.BoolVar(&q.normalize, "normalize", false, "Strip identifier quotes and lower-case column names")
	_ = cmd.MarkFlagRequired("model")
}

// options loads the descriptor and turns the flags into mapper options.
func (q *queryFlags) options(logger *slog.Logger) (*rawmap.Model[rawmap.Record], []rawmap.Option, error) {
	desc, err := modelfile.Load(q.model)
	if err != nil {
		return nil, nil, err
	}
	model, err := desc.Model()
	if err != nil {
		return nil, nil, err
	}

	opts := []rawmap.Option{rawmap.WithLogger(logger), rawmap.WithTranslations(desc.Translations...)}
	for _, t := range q.translates {
		from, to, ok := strings.Cut(t, "=")
		if !ok || from == "" || to == "" {
			return nil, nil, fmt.Errorf("invalid --translate %q (want FROM=TO)", t)
		}
		opts = append(opts, rawmap.Translate(from, to))
	}
	if q.normalize {
		opts = append(opts, rawmap.Normalize())
	}
	args := make([]any, len(q.params))
	for i, p := range q.params {
		args[i] = p
	}
	opts = append(opts, rawmap.Params(args...))
	return model, opts, nil
}

func newQueryCmd(g *globalFlags) *cobra.Command {
	q := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "query SQL",
		Short: "Run a SELECT and print the mapped instances",
		Example: `  rawmap query --dsn books.db -m author.yaml \
    -t first=first_name "SELECT first_name AS first, last_name, dob, id FROM authors"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cmd, cfg)
			model, opts, err := q.options(logger)
			if err != nil {
				return err
			}
			enc, err := output.New(cmd.OutOrStdout(), cfg.Output)
			if err != nil {
				return err
			}

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			res, err := rawmap.Open(cmd.Context(), db, model, args[0], opts...)
			if err != nil {
				return err
			}
			defer res.Close()

			n := 0
			for in, err := range res.All() {
				if err != nil {
					return err
				}
				if err := enc.Encode(in); err != nil {
					return err
				}
				n++
			}
			logger.Info("query mapped", "model", model.Name, "rows", n)
			return enc.Close()
		},
	}
	q.register(cmd)
	return cmd
}

func newCountCmd(g *globalFlags) *cobra.Command {
	q := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "count SQL",
		Short: "Print the number of rows a SELECT returns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			model, opts, err := q.options(newLogger(cmd, cfg))
			if err != nil {
				return err
			}

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			res, err := rawmap.Open(cmd.Context(), db, model, args[0], opts...)
			if err != nil {
				return err
			}
			defer res.Close()

			n, err := res.Len(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
			return err
		},
	}
	q.register(cmd)
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate SQL",
		Short: "Check that a query is accepted (lexical SELECT check only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rawmap.ValidateQuery(args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return err
		},
	}
}
