package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/transmute/internal/store"
	"github.com/roach88/transmute/internal/structure"
)

// ArchiveOptions holds flags shared by the archive subcommands.
type ArchiveOptions struct {
	*RootOptions
	Database       string
	Transformation string // list filter
}

// EntrySummary describes one archived lineage.
type EntrySummary struct {
	ID      string `json:"id"`
	Digest  string `json:"digest"`
	Label   string `json:"label,omitempty"`
	Source  string `json:"source"`
	Steps   int    `json:"steps"`
	Version string `json:"version"`
}

func summarizeEntry(e store.Entry) EntrySummary {
	return EntrySummary{
		ID:      e.ID,
		Digest:  e.Digest,
		Label:   e.Label,
		Source:  e.Source,
		Steps:   e.Steps,
		Version: e.Version,
	}
}

// NewArchiveCommand creates the archive command group.
func NewArchiveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ArchiveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect archived lineages",
		Long: `List, show and delete lineage records archived by apply --db.

Examples:
  transmute archive list --db lineages.db
  transmute archive list --db lineages.db --transformation SupercellTransformation
  transmute archive show 0192f0c4-... --db lineages.db
  transmute archive delete 0192f0c4-... --db lineages.db`,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	list := &cobra.Command{
		Use:           "list",
		Short:         "List archived lineages",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveList(cmd.Context(), opts, cmd)
		},
	}
	list.Flags().StringVar(&opts.Transformation, "transformation", "", "only lineages that applied this transformation")

	show := &cobra.Command{
		Use:           "show <id>",
		Short:         "Show one archived lineage",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveShow(cmd.Context(), opts, args[0], cmd)
		},
	}

	del := &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete one archived lineage",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveDelete(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}

func (opts *ArchiveOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

func withStore(ctx context.Context, opts *ArchiveOptions, formatter *OutputFormatter, fn func(context.Context, *store.Store) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return outputError(formatter, ExitCommandError, "open archive", err)
	}
	defer st.Close()
	return fn(ctx, st)
}

func runArchiveList(ctx context.Context, opts *ArchiveOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	return withStore(ctx, opts, formatter, func(ctx context.Context, st *store.Store) error {
		var entries []store.Entry
		var err error
		if opts.Transformation != "" {
			entries, err = st.FindByTransformation(ctx, opts.Transformation)
		} else {
			entries, err = st.List(ctx)
		}
		if err != nil {
			return outputError(formatter, ExitCommandError, "list archive", err)
		}

		summaries := make([]EntrySummary, len(entries))
		for i, e := range entries {
			summaries[i] = summarizeEntry(e)
		}
		if formatter.Format == "json" {
			return formatter.Success(summaries)
		}

		if len(summaries) == 0 {
			fmt.Fprintln(formatter.Writer, "No archived lineages.")
			return nil
		}
		for _, s := range summaries {
			fmt.Fprintf(formatter.Writer, "%s  %-20s %d step(s)  %s\n", s.ID, s.Source, s.Steps, s.Label)
		}
		return nil
	})
}

func runArchiveShow(ctx context.Context, opts *ArchiveOptions, id string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	return withStore(ctx, opts, formatter, func(ctx context.Context, st *store.Store) error {
		entry, err := st.Get(ctx, id)
		if err != nil {
			return outputError(formatter, ExitCommandError, "show entry", err)
		}
		l, err := st.Load(ctx, structure.Codec(), id)
		if err != nil {
			return outputError(formatter, ExitCommandError, "decode entry", err)
		}

		if formatter.Format == "json" {
			return formatter.Success(map[string]any{
				"entry":   summarizeEntry(entry),
				"history": historyOf(l),
			})
		}

		fmt.Fprintf(formatter.Writer, "Entry %s (%s)\n\n", entry.ID, entry.Digest)
		fmt.Fprintln(formatter.Writer, l.String())
		return nil
	})
}

func runArchiveDelete(ctx context.Context, opts *ArchiveOptions, id string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	return withStore(ctx, opts, formatter, func(ctx context.Context, st *store.Store) error {
		if err := st.Delete(ctx, id); err != nil {
			return outputError(formatter, ExitCommandError, "delete entry", err)
		}
		if formatter.Format == "json" {
			return formatter.Success(map[string]string{"deleted": id})
		}
		fmt.Fprintf(formatter.Writer, "Deleted %s\n", id)
		return nil
	})
}
