package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/maraichr/neogm/internal/config"
	"github.com/maraichr/neogm/pkg/graph"
	"github.com/maraichr/neogm/pkg/model"
)

// app carries what every command needs. connect is replaced in tests.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	connect func(ctx context.Context) (*graph.Client, error)
}

func newApp(cfg *config.Config, logger *slog.Logger) *app {
	a := &app{cfg: cfg, logger: logger}
	a.connect = func(ctx context.Context) (*graph.Client, error) {
		client, err := graph.NewClient(cfg.Neo4j.Graph(), graph.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := client.Verify(ctx); err != nil {
			_ = client.Close(ctx)
			return nil, fmt.Errorf("connect to neo4j: %w", err)
		}
		return client, nil
	}
	return a
}

func (a *app) schema() (*model.Schema, error) {
	s, err := model.LoadSchemaFile(a.cfg.Schema)
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", a.cfg.Schema, err)
	}
	return s, nil
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "neogm",
		Short:         "Query and maintain a Neo4j graph through its model schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&a.cfg.Schema, "schema", a.cfg.Schema, "model schema file (NEOGM_SCHEMA)")

	cmd.AddCommand(newVerifyCommand(a))
	cmd.AddCommand(newConstraintsCommand(a))
	cmd.AddCommand(newQueryCommand(a))
	return cmd
}

func newVerifyCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check connectivity to Neo4j",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer client.Close(ctx)
			a.logger.Info("connected to neo4j", slog.String("uri", a.cfg.Neo4j.URI))
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return err
		},
	}
}

func newConstraintsCommand(a *app) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "constraints",
		Short: "Create id property uniqueness constraints for every model in the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.schema()
			if err != nil {
				return err
			}
			client, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer client.Close(ctx)

			cons := schemaConstraints(s)
			if err := client.EnsureConstraints(ctx, cons...); err != nil {
				return err
			}
			a.logger.Info("constraints ensured", slog.Int("count", len(cons)))
			if !list {
				return nil
			}
			names, err := client.Constraints(ctx)
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "print existing constraints afterwards")
	return cmd
}

// schemaConstraints returns one constraint per model, on its first label.
func schemaConstraints(s *model.Schema) []graph.Constraint {
	var out []graph.Constraint
	for _, m := range s.Models() {
		labels := m.Labels()
		if len(labels) == 0 {
			continue
		}
		out = append(out, graph.Constraint{Label: labels[0], Property: m.IDProperty()})
	}
	return out
}
