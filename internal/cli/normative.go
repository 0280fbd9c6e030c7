package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/normativ/internal/model"
	"github.com/roach88/normativ/internal/store"
)

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <normative-id>",
		Short: "Delete a normative with its groups and conditions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, args[0], cmd)
		},
	}
}

func runDelete(opts *RootOptions, arg string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	id, err := parseID("normative id", arg)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeInput, err.Error(), nil)
	}

	st, err := opts.openStore(cmd, f)
	if err != nil {
		return err
	}
	defer opts.closeStore(st)

	report, err := opts.newEngine(st).DeleteNormative(cmd.Context(), id)
	if err != nil {
		return f.EngineError(err)
	}

	d := report.Deleted
	text := fmt.Sprintf("✓ Deleted normative %d\n  request:    %s\n  groups:     %d\n  conditions: %d\n  additional: %d\n",
		report.NormativeID, report.RequestID, d.Groups, d.Conditions, d.AdditionalRequirements)
	return f.Success(report, text)
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <normative-id>",
		Short: "Show a normative with its parameters and conditions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, args[0], cmd)
		},
	}
}

func runShow(opts *RootOptions, arg string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	id, err := parseID("normative id", arg)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeInput, err.Error(), nil)
	}

	st, err := opts.openStore(cmd, f)
	if err != nil {
		return err
	}
	defer opts.closeStore(st)

	d, err := st.ReadNormative(cmd.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return f.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("normative %d not found", id), nil)
	}
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}
	return f.Success(d, formatNormative(d))
}

func formatNormative(d model.NormativeDetail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Normative %d: %s (%s)\n", d.ID, d.Rank.ShortName, d.Rank.FullName)
	fmt.Fprintf(&b, "  discipline: %s\n", d.DisciplineName)
	for _, p := range d.Parameters {
		fmt.Fprintf(&b, "  parameter:  %s\n", p.Label())
	}
	for _, c := range d.Conditions {
		fmt.Fprintf(&b, "  condition:  %s = %s\n", c.Requirement, c.Value)
		for _, a := range c.Additional {
			fmt.Fprintf(&b, "    %s: %s\n", a.Type, a.Value)
		}
	}
	return b.String()
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report <sport-id>",
		Short: "List every normative condition of a sport",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(rootOpts, args[0], cmd)
		},
	}
}

func runReport(opts *RootOptions, arg string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	id, err := parseID("sport id", arg)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeInput, err.Error(), nil)
	}

	st, err := opts.openStore(cmd, f)
	if err != nil {
		return err
	}
	defer opts.closeStore(st)

	rows, err := st.ListSportNormatives(cmd.Context(), id)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}
	return f.Success(rows, formatReport(rows))
}

func formatReport(rows []model.SportNormativeRow) string {
	if len(rows) == 0 {
		return "No normatives\n"
	}
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DISCIPLINE\tPARAMETERS\tRANK\tREQUIREMENT\tVALUE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.DisciplineName, r.Parameters, r.RankShortName, r.Requirement, r.ConditionValue)
	}
	_ = tw.Flush()
	return b.String()
}

func parseID(what, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, arg)
	}
	return id, nil
}
