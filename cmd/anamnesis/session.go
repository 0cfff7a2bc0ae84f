package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/anamnesis/internal/cli"
	"github.com/aretw0/anamnesis/internal/presentation/tui"
	"github.com/aretw0/anamnesis/pkg/domain"
	"github.com/aretw0/anamnesis/pkg/ports"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage persistent consultations",
	Long:  `List, inspect and report on consultations kept in the configured session store.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List consultations, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := ports.ListFilter{}
		filter.PatientID, _ = cmd.Flags().GetString("patient")
		filter.DoctorID, _ = cmd.Flags().GetString("doctor")
		statuses, _ := cmd.Flags().GetStringSlice("status")
		for _, s := range statuses {
			st := domain.Status(s)
			if !st.Valid() {
				return fmt.Errorf("unknown status %q", s)
			}
			filter.Statuses = append(filter.Statuses, st)
		}

		a, err := newApp(cmd, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.engine.List(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No consultations found.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPATIENT\tDOCTOR\tSTATUS\tANSWERS\tUPDATED")
		for _, c := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
				c.ID, c.PatientID, c.DoctorID, c.Status, len(c.History), c.UpdatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Inspect the state of a consultation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.engine.Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("load session '%s': %w", args[0], err)
		}

		// Pretty print JSON
		data, err := json.MarshalIndent(snap.Consultation, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var sessionReportCmd = &cobra.Command{
	Use:   "report <session-id>",
	Short: "Print the report of a completed consultation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.engine.Report(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		md := tui.ReportMarkdown(report)
		if cli.IsInteractive() {
			if rendered, err := tui.NewRenderer()(md); err == nil {
				md = rendered
			}
		}
		fmt.Fprintln(out, md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionReportCmd)

	sessionLsCmd.Flags().String("patient", "", "Only consultations of this patient")
	sessionLsCmd.Flags().String("doctor", "", "Only consultations of this doctor")
	sessionLsCmd.Flags().StringSlice("status", nil, "Only these statuses (active, draft, completed, canceled)")
	sessionReportCmd.Flags().Bool("json", false, "Print the report as JSON")
}
