package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"triage/internal/api"
	"triage/internal/session"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show review progress per media type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(func(sess *session.Session) error {
				total, err := sess.Stats(cmd.Context())
				if err != nil {
					return err
				}
				byType, err := sess.StatsByType(cmd.Context())
				if err != nil {
					return err
				}
				resp := api.FromStatsByType(total, byType)
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}

				rows := make([][]string, 0, len(resp.ByType)+1)
				for _, kind := range api.MediaTypesInOrder(resp.ByType) {
					rows = append(rows, countsRow(kind, resp.ByType[kind]))
				}
				rows = append(rows, countsRow("total", resp.Counts))
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(
					[]string{"Type", "Total", "Pending", "Kept", "Rejected", "Progress"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
}

func countsRow(label string, c api.Counts) []string {
	progress := "-"
	if c.Total > 0 {
		progress = fmt.Sprintf("%.0f%%", float64(c.Reviewed)*100/float64(c.Total))
	}
	return []string{
		label,
		strconv.Itoa(c.Total),
		strconv.Itoa(c.Pending),
		strconv.Itoa(c.Kept),
		strconv.Itoa(c.Rejected),
		progress,
	}
}
