package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/transmute/internal/lineage"
	"github.com/roach88/transmute/internal/record"
	"github.com/roach88/transmute/internal/structure"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Undo int // undo this many steps before reporting
}

// StepSummary describes one recorded transformation.
type StepSummary struct {
	Index         int    `json:"index"`
	Name          string `json:"name"`
	InputFormula  string `json:"input_formula"`
	OutputFormula string `json:"output_formula"`
	InputDigest   string `json:"input_digest"`
}

// HistoryResult is the output of the history command.
type HistoryResult struct {
	Source    string        `json:"source"`
	Datetime  string        `json:"datetime,omitempty"`
	Formula   string        `json:"formula"`
	Steps     []StepSummary `json:"steps"`
	RedoDepth int           `json:"redo_depth"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history <record.json>",
		Short: "Show the lineage recorded in a bundle",
		Long: `Decode a transformations.json record and show where the structure
came from and every transformation applied to it.

With --undo the last steps are undone before reporting, which shows the
lineage as it was before them.

Examples:
  transmute history ./mn/transformations.json
  transmute history ./mn/transformations.json --undo 1 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Undo, "undo", 0, "undo this many steps before reporting")

	return cmd
}

func runHistory(opts *HistoryOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return outputError(formatter, ExitCommandError, "read record", err)
	}
	l, err := structure.Codec().Unmarshal(data)
	if err != nil {
		return outputError(formatter, ExitCommandError, "decode record", err)
	}

	if opts.Undo < 0 {
		return outputError(formatter, ExitCommandError, "undo", errors.New("step count must not be negative"))
	}
	for k := 0; k < opts.Undo; k++ {
		if err := l.Undo(); err != nil {
			return outputError(formatter, ExitCommandError, "undo", err)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(historyOf(l))
	}

	fmt.Fprintln(formatter.Writer, l.String())
	return nil
}

// historyOf summarizes l.
func historyOf(l *lineage.Lineage) *HistoryResult {
	prov := l.Provenance()
	result := &HistoryResult{
		Source:    prov.Source(),
		Formula:   formulaOf(l.Current()),
		Steps:     []StepSummary{},
		RedoDepth: l.RedoDepth(),
	}
	if v, ok := prov.Get(lineage.KeyDatetime); ok {
		if s, ok := v.(record.String); ok {
			result.Datetime = string(s)
		}
	}

	artifacts := l.Artifacts()
	for i, t := range l.Transformations() {
		name, _ := t.Record().Str("name")
		result.Steps = append(result.Steps, StepSummary{
			Index:         i,
			Name:          name,
			InputFormula:  formulaOf(artifacts[i]),
			OutputFormula: formulaOf(artifacts[i+1]),
			InputDigest:   lineage.ArtifactDigest(artifacts[i]),
		})
	}
	return result
}
