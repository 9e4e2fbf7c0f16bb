package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/catalog"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/market"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/orchestrator"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/registry"
)

// Plan formats
const (
	formatText    = "text"
	formatJSON    = "json"
	formatDOT     = "dot"
	formatMermaid = "mermaid"
)

func newPlanCmd(st *state) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the fresh deployment plan",
		Long:  "Print the steps of the fresh deployment plan with the resources each one requires and produces.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := catalog.Load(st.cfg.CatalogPath)
			if err != nil {
				return err
			}
			plan, err := market.FreshPlan(cat)
			if err != nil {
				return err
			}
			if err := plan.Validate(); err != nil {
				return err
			}
			return printPlan(cmd.OutOrStdout(), format, plan)
		},
	}

	cmd.Flags().StringVarP(&format, flagFormat, "f", formatText, "Output format: text, json, dot or mermaid")

	return cmd
}

func printPlan(w io.Writer, format string, plan orchestrator.Plan) error {
	switch format {
	case formatText:
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("#", "STEP", "REQUIRES", "PRODUCES")
		for _, info := range plan.Describe() {
			t.Row(strconv.Itoa(info.Index), info.ID, joinNames(info.Requires), joinNames(info.Produces))
		}
		_, err := fmt.Fprintln(w, t.String())
		return err
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(plan.Describe())
	case formatDOT:
		_, err := fmt.Fprint(w, plan.DOT())
		return err
	case formatMermaid:
		_, err := fmt.Fprint(w, plan.Mermaid())
		return err
	default:
		return fmt.Errorf("invalid plan format %q", format)
	}
}

func joinNames(names []registry.Name) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}
