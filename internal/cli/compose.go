package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/normativ/internal/engine"
)

// ComposeOptions holds flags for the compose command.
type ComposeOptions struct {
	*RootOptions
	File   string
	Policy string
}

// NewComposeCommand creates the compose command.
func NewComposeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ComposeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Attach rank conditions to the normatives of a parameter combination",
		Long: `Read a compose request (YAML or JSON) and apply it in one transaction.

Each entry lands on the normative whose parameter set equals the request's
ldp_ids exactly: an existing one is merged into, a missing one is created.

Example request:
  discipline_id: 1
  ldp_ids: [1, 4, 7]
  requirement_id: 1
  entries:
    - {rank_id: 2, condition_value: "58.5"}

Example:
  normativ compose -f request.yaml --policy skip`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompose(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "-", "request file (- for stdin)")
	cmd.Flags().StringVar(&opts.Policy, "policy", "", "default conflict policy (reject|skip)")

	return cmd
}

func runCompose(opts *ComposeOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	req, err := readComposeRequest(cmd, opts.File)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeInput, err.Error(), nil)
	}
	f.VerboseLog("Composing %d entr(ies) over %d link(s)", len(req.Entries), len(req.LinkIDs))

	st, err := opts.openStore(cmd, f)
	if err != nil {
		return err
	}
	defer opts.closeStore(st)

	report, err := opts.newEngine(st).Compose(cmd.Context(), req)
	if err != nil {
		return f.EngineError(err)
	}
	return f.Success(report, formatComposeReport(report))
}

// readComposeRequest decodes a request from a file or stdin.
// Unknown fields are an error.
func readComposeRequest(cmd *cobra.Command, path string) (engine.ComposeRequest, error) {
	var req engine.ComposeRequest

	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return req, fmt.Errorf("reading request: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, errors.New("request is empty")
		}
		return req, fmt.Errorf("parsing request: %w", err)
	}
	return req, nil
}

func formatComposeReport(r *engine.ComposeReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ Composed: %d created, %d merged, %d rejected\n", len(r.Created), len(r.Merged), len(r.Rejected))
	fmt.Fprintf(&b, "  request:    %s\n", r.RequestID)
	fmt.Fprintf(&b, "  parameters: %s\n", r.ParameterSet)
	for _, o := range r.Outcomes {
		switch o.Kind {
		case engine.OutcomeRejected:
			fmt.Fprintf(&b, "  entries[%d] rank %d: rejected (%s)\n", o.Entry, o.RankID, o.Reason)
		default:
			fmt.Fprintf(&b, "  entries[%d] rank %d: %s normative %d\n", o.Entry, o.RankID, o.Kind, o.NormativeID)
		}
	}
	return b.String()
}
