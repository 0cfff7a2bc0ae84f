package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/anamnesis"
	"github.com/aretw0/anamnesis/internal/cli"
	"github.com/aretw0/anamnesis/internal/presentation/tui"
)

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Run a consultation interactively in the terminal",
	Long: `Asks the graph's questions one at a time until a diagnosis candidate is reached,
then records the final diagnosis. Ctrl+C saves a draft that --session resumes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		plain, _ := cmd.Flags().GetBool("plain")
		interactive := cli.IsInteractive()
		if !interactive && !plain {
			return fmt.Errorf("%w: use --plain to read answers from a pipe", cli.ErrNotInteractive)
		}

		patient, _ := cmd.Flags().GetString("patient")
		doctor, _ := cmd.Flags().GetString("doctor")
		sessionID, _ := cmd.Flags().GetString("session")
		if sessionID == "" && (patient == "" || doctor == "") {
			return fmt.Errorf("--patient and --doctor are required to start a consultation")
		}

		a, err := newApp(cmd, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()

		opts := cli.InterviewOptions{
			PatientID: patient,
			DoctorID:  doctor,
			SessionID: sessionID,
			In:        os.Stdin,
			Out:       cmd.OutOrStdout(),
			Logger:    a.logger,
		}
		if interactive && !plain {
			tui.PrintBanner(opts.Out, strings.TrimSpace(anamnesis.Version))
			opts.Render = tui.NewRenderer()
		}

		_, err = cli.RunInterview(sc.Context, a.engine, opts)
		if sig := sc.Signal(); sig != nil {
			a.logger.Debug("Interview interrupted", "signal", sig.String())
		}
		return cli.HandleExecutionError(err)
	},
}

func init() {
	rootCmd.AddCommand(interviewCmd)

	interviewCmd.Flags().String("patient", "", "Patient id for a new consultation")
	interviewCmd.Flags().String("doctor", "", "Doctor id for a new consultation")
	interviewCmd.Flags().String("session", "", "Continue an active or draft consultation")
	interviewCmd.Flags().Bool("plain", false, "Plain prompts without markdown rendering")
}
