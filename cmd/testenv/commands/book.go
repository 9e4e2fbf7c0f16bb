package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/db/models"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/registry"
)

func newBookCmd(st *state) *cobra.Command {
	var (
		output  string
		history bool
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "book",
		Short: "Show the address book of a label",
		Long: `Show the contracts of the latest completed deployment of a label, or with
--history the recorded runs of that label, newest first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			book, closeBook, err := openBook(st.cfg)
			if err != nil {
				return err
			}
			defer closeBook()

			label := st.cfg.Label
			if history {
				deployments, err := book.ListDeployments(cmd.Context(), label, &models.ListOptions{Limit: limit})
				if err != nil {
					return err
				}
				return printDeployments(cmd.OutOrStdout(), output, deployments)
			}

			contracts, err := book.ListContracts(cmd.Context(), label)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("no completed deployment recorded for %q", label)
			}
			if err != nil {
				return err
			}

			entries := make([]registry.Entry, len(contracts))
			for i, c := range contracts {
				entries[i] = registry.Entry{Name: registry.Name(c.Name), Handle: registry.Handle(c.Handle)}
			}
			if output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			return printEntries(cmd.OutOrStdout(), entries)
		},
	}

	cmd.Flags().StringVarP(&output, flagOutput, "o", outputTable, "Output format: table or json")
	cmd.Flags().BoolVar(&history, "history", false, "List the recorded runs instead of the contracts")
	cmd.Flags().IntVar(&limit, "limit", models.DefaultLimit, "Maximum number of runs listed with --history")

	return cmd
}

func printDeployments(w io.Writer, format string, deployments []models.Deployment) error {
	if format == outputJSON {
		return writeJSON(w, deployments)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("RUN", "MODE", "STATUS", "DURATION", "CREATED", "ERROR")
	for _, d := range deployments {
		t.Row(d.RunID, d.Mode, d.Status.String(), strconv.FormatInt(d.DurationMS, 10)+"ms",
			d.CreatedAt.Format("2006-01-02 15:04:05"), d.Error)
	}
	_, err := fmt.Fprintln(w, t.String())
	return err
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
