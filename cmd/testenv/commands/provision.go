package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/catalog"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/config"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/db/repos"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/environment"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/orchestrator"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/probe"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/registry"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/transport"
)

// ProvisionOutput is the machine-readable result of the provision command.
type ProvisionOutput struct {
	RunID      string           `json:"run_id"`
	Label      string           `json:"label"`
	Mode       string           `json:"mode"`
	Plan       string           `json:"plan"`
	Steps      int              `json:"steps"`
	DurationMS int64            `json:"duration_ms"`
	Contracts  []registry.Entry `json:"contracts"`
}

func newProvisionCmd(st *state) *cobra.Command {
	var output, export string

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Deploy or attach to a test environment",
		Long: `Deploy a fresh lending market, or attach to an existing one when --fork is set,
and record the run in the address book.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			cfg := st.cfg

			cat, err := catalog.Load(cfg.CatalogPath)
			if err != nil {
				return err
			}

			book, closeBook, err := openBook(cfg)
			if err != nil {
				return err
			}
			defer closeBook()

			tr, err := newTransport(cfg)
			if err != nil {
				return err
			}

			mode := environment.ModeFromFork(cfg.Fork)
			opts := []environment.Option{
				environment.WithLabel(cfg.Label),
				environment.WithCatalog(cat),
				environment.WithTransport(tr),
				environment.WithSink(environment.NewAddressBookSink(book)),
			}
			if mode == environment.ModeExternal {
				p, err := newProbe(cfg, book)
				if err != nil {
					return err
				}
				opts = append(opts, environment.WithProbe(p))
			}

			res, err := environment.NewSelector(mode, opts...).Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("provision %s environment: %w", mode, err)
			}

			if export != "" {
				if err := probe.WriteFile(export, res.Label, res.RunID(), res.Snapshot); err != nil {
					return err
				}
			}
			return printResult(cmd.OutOrStdout(), output, res)
		},
	}

	cmd.Flags().String(flagFork, "", "Attach to the deployment of this fork instead of deploying (env: FORK)")
	cmd.Flags().String(flagNodeURL, "", "Base URL of a testenv node; empty runs an in-process chain (env: TESTENV_NODE_URL)")
	cmd.Flags().String(flagProbe, "", "Probe used with --fork: addressbook, file or pulumi (env: TESTENV_PROBE)")
	cmd.Flags().String(flagProbeFile, "", "Address-book YAML read by the file probe (env: TESTENV_PROBE_FILE)")
	cmd.Flags().String(flagPulumiStack, "", "Stack read by the pulumi probe (env: TESTENV_PULUMI_STACK)")
	cmd.Flags().StringVarP(&output, flagOutput, "o", outputTable, "Output format: table or json")
	cmd.Flags().StringVar(&export, flagExport, "", "Write the address book of the run to this YAML file")

	return cmd
}

// newTransport returns the HTTP transport when a node URL is configured and an
// in-process simulated chain otherwise.
func newTransport(cfg *config.Config) (transport.Transport, error) {
	if cfg.NodeURL == "" {
		return transport.NewSimulated(), nil
	}
	tr, err := transport.NewHTTP(transport.HTTPOptions{BaseURL: cfg.NodeURL})
	if err != nil {
		return nil, err
	}
	return tr, nil
}

// newProbe returns the probe external mode attaches through. The address-book
// probe reads the deployment recorded under the fork name.
func newProbe(cfg *config.Config, book *repos.AddressBookRepository) (orchestrator.Probe, error) {
	switch cfg.Probe {
	case config.ProbeFile:
		p, err := probe.LoadFile(cfg.ProbeFile)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.ProbePulumi:
		return probe.NewPulumiStack(cfg.PulumiStack, cfg.PulumiWorkDir), nil
	default:
		return probe.NewAddressBook(book, cfg.Fork), nil
	}
}

func printResult(w io.Writer, format string, res *environment.Result) error {
	out := ProvisionOutput{
		RunID:      res.RunID(),
		Label:      res.Label,
		Mode:       res.Mode.String(),
		Plan:       res.Report.Plan,
		Steps:      len(res.Report.Steps),
		DurationMS: res.Report.Duration.Milliseconds(),
		Contracts:  res.Snapshot.Entries(),
	}

	if format == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(w, "run %s: %s environment %q ready (%d steps, %dms)\n",
		out.RunID, out.Mode, out.Label, out.Steps, out.DurationMS)
	return printEntries(w, out.Contracts)
}

func printEntries(w io.Writer, entries []registry.Entry) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NAME", "HANDLE")
	for _, e := range entries {
		t.Row(string(e.Name), string(e.Handle))
	}
	_, err := fmt.Fprintln(w, t.String())
	return err
}
