package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/transmute/internal/bundle"
	"github.com/roach88/transmute/internal/lineage"
	"github.com/roach88/transmute/internal/recipe"
	"github.com/roach88/transmute/internal/source"
	"github.com/roach88/transmute/internal/store"
	"github.com/roach88/transmute/internal/structure"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	InputFormat string // "cif" | "poscar"; inferred from the file name when empty
	Recipe      string // CUE recipe path
	Out         string // bundle output directory
	CreateDir   bool
	Database    string // SQLite archive path
	Label       string

	// Clock allows overriding the provenance clock (for testing).
	// If nil, defaults to source.SystemClock.
	Clock source.Clock
}

// MemberSummary describes one member of the resulting forest.
type MemberSummary struct {
	Index   int    `json:"index"`
	Formula string `json:"formula"`
	Steps   int    `json:"steps"`
	Digest  string `json:"digest"`
	Bundle  string `json:"bundle,omitempty"`
	Archive string `json:"archive,omitempty"`
}

// ApplyResult is the output of the apply command.
type ApplyResult struct {
	Source  string          `json:"source"`
	Recipe  string          `json:"recipe,omitempty"`
	Members []MemberSummary `json:"members"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	return newApplyCommand(&ApplyOptions{RootOptions: rootOpts})
}

func newApplyCommand(opts *ApplyOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <structure-file>",
		Short: "Apply a recipe to a structure",
		Long: `Read a CIF or POSCAR structure, apply the transformations of a CUE
recipe and write one bundle (POSCAR plus transformations.json) per
resulting structure.

A single result is written directly into --out. Branching recipes
write one numbered subdirectory per member.

Examples:
  transmute apply Fe2O3.cif --recipe mn.cue --out ./mn --create-dir
  transmute apply POSCAR --recipe delithiate.cue --db lineages.db
  transmute apply POSCAR --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.InputFormat, "input-format", "", "input format (cif|poscar); inferred when empty")
	cmd.Flags().StringVarP(&opts.Recipe, "recipe", "r", "", "path to CUE recipe")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "bundle output directory")
	cmd.Flags().BoolVar(&opts.CreateDir, "create-dir", false, "create the output directory if missing")
	cmd.Flags().StringVar(&opts.Database, "db", "", "archive results in this SQLite database")
	cmd.Flags().StringVar(&opts.Label, "label", "", "archive label")

	return cmd
}

func runApply(ctx context.Context, opts *ApplyOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	format := source.Format(opts.InputFormat)
	if format == "" {
		detected, err := source.DetectFormat(path)
		if err != nil {
			return outputError(formatter, ExitCommandError, "detect input format", err)
		}
		format = detected
	}

	text, err := os.ReadFile(path)
	if err != nil {
		return outputError(formatter, ExitCommandError, "read structure", err)
	}

	var steps []lineage.Transformation
	if opts.Recipe != "" {
		r, err := recipe.Load(opts.Recipe)
		if err != nil {
			return outputError(formatter, ExitCommandError, "load recipe", err)
		}
		steps = r.Steps
		formatter.VerboseLog("Loaded recipe %s (%d step(s))", opts.Recipe, len(steps))
	}

	clock := opts.Clock
	if clock == nil {
		clock = source.SystemClock{}
	}
	l, err := source.Load(format, string(text), clock)
	if err != nil {
		return outputError(formatter, ExitCommandError, "load structure", err)
	}

	forest := lineage.ForestOf(l)
	if err := forest.Extend(steps...); err != nil {
		return outputError(formatter, ExitFailure, "apply recipe", err)
	}
	slog.Info("recipe applied", "source", l.Provenance().Source(), "members", forest.Len())

	codec := structure.Codec()
	result := &ApplyResult{
		Source:  l.Provenance().Source(),
		Recipe:  opts.Recipe,
		Members: summarizeForest(forest),
	}

	if opts.Out != "" {
		if err := writeBundles(forest, codec, opts, result); err != nil {
			return outputError(formatter, ExitCommandError, "write bundles", err)
		}
	}

	if opts.Database != "" {
		if err := archiveForest(ctx, forest, codec, opts, result); err != nil {
			return outputError(formatter, ExitCommandError, "archive results", err)
		}
	}

	return outputApplySuccess(formatter, result)
}

// summarizeForest describes every member of f.
func summarizeForest(f *lineage.Forest) []MemberSummary {
	members := f.Members()
	out := make([]MemberSummary, len(members))
	for i, m := range members {
		out[i] = MemberSummary{
			Index:   i,
			Formula: formulaOf(m.Current()),
			Steps:   len(m.Transformations()),
			Digest:  lineage.ArtifactDigest(m.Current()),
		}
	}
	return out
}

func formulaOf(a lineage.Artifact) string {
	if s, ok := a.(*structure.Structure); ok {
		return s.Formula()
	}
	return fmt.Sprintf("%v", a)
}

// writeBundles writes a lone member straight into opts.Out and several
// members into numbered subdirectories.
func writeBundles(f *lineage.Forest, codec lineage.Codec, opts *ApplyOptions, result *ApplyResult) error {
	gen := structure.POSCARGenerator{}
	if f.Len() == 1 {
		m, err := f.Member(0)
		if err != nil {
			return err
		}
		b, err := bundle.Build(m, codec, gen)
		if err != nil {
			return err
		}
		if err := b.Write(opts.Out, opts.CreateDir); err != nil {
			return err
		}
		result.Members[0].Bundle = opts.Out
		return nil
	}

	if err := bundle.WriteForest(f, codec, gen, opts.Out, opts.CreateDir); err != nil {
		return err
	}
	for i := range result.Members {
		result.Members[i].Bundle = filepath.Join(opts.Out, bundle.MemberDir(i))
	}
	return nil
}

func archiveForest(ctx context.Context, f *lineage.Forest, codec lineage.Codec, opts *ApplyOptions, result *ApplyResult) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := st.PutForest(ctx, codec, f, opts.Label)
	if err != nil {
		return err
	}
	for i, e := range entries {
		result.Members[i].Archive = e.ID
	}
	return nil
}

// outputApplySuccess outputs the apply result.
func outputApplySuccess(formatter *OutputFormatter, result *ApplyResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ %s: %d structure(s)\n", result.Source, len(result.Members))
	for _, m := range result.Members {
		fmt.Fprintf(w, "  [%d] %s (%d step(s))", m.Index, m.Formula, m.Steps)
		if m.Bundle != "" {
			fmt.Fprintf(w, " -> %s", m.Bundle)
		}
		if m.Archive != "" {
			fmt.Fprintf(w, " archived as %s", m.Archive)
		}
		fmt.Fprintln(w)
	}
	return nil
}
