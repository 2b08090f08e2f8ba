package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/nightaudit/internal/model"
	"github.com/ppiankov/nightaudit/internal/ui"
	"github.com/ppiankov/nightaudit/internal/workflow"
)

var (
	noShowChargeFee bool
	runChargeFee    bool
)

func init() {
	noShowsCmd.Flags().BoolVar(&noShowChargeFee, "charge-fee", false, "Charge the no-show fee (default from config)")
	runCmd.Flags().BoolVar(&runChargeFee, "charge-fee", false, "Charge the no-show fee (default from config)")

	rootCmd.AddCommand(startCmd, postRevenueCmd, noShowsCmd, closeCmd, runCmd)
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the night audit for --date",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSingleStep(model.StepStart, false)
	},
}

var postRevenueCmd = &cobra.Command{
	Use:   "post-revenue",
	Short: "Post room revenue for every occupied room",
	Long:  "Posts one night's rate for each checked-in booking. Not idempotent: running it twice posts twice.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSingleStep(model.StepAutoPosting, false)
	},
}

var noShowsCmd = &cobra.Command{
	Use:   "no-shows",
	Short: "Process no-show bookings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSingleStep(model.StepNoShow, chargeFee(cmd, noShowChargeFee))
	},
}

var closeCmd = &cobra.Command{
	Use:   "close",
	Short: "Close the business day",
	Long:  "Runs end-of-day for the audit id reported by the loaded status. Fails without a network call when no audit has been started.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSingleStep(model.StepEndOfDay, false)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every remaining step in order, stopping at the first failure",
	Long: `Loads --date, then runs start, post revenue, no-shows, and close.

Start is skipped when the audit is already in progress. Nothing runs when
the day is already closed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAll(chargeFee(cmd, runChargeFee))
	},
}

// chargeFee prefers an explicit --charge-fee over the config default.
func chargeFee(cmd *cobra.Command, flag bool) bool {
	if cmd.Flags().Changed("charge-fee") {
		return flag
	}
	return cfg.Workflow.ChargeNoShowFee
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runSingleStep(step model.StepName, fee bool) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := signalContext()
	defer cancel()

	if _, err := s.load(ctx); err != nil {
		fmt.Print(ui.RenderView(s.ctl.View()))
		return fmt.Errorf("failed to load audit: %w", err)
	}
	res, err := s.ctl.Run(ctx, step, fee)
	v := s.ctl.View()
	if err != nil {
		fmt.Print(ui.RenderView(v))
		return stepFailure(v, err)
	}
	fmt.Println(ui.SuccessMsg("%s: %s", step.Title(), ui.ResultLine(res)))
	fmt.Println()
	fmt.Print(ui.RenderView(v))
	return nil
}

func runAll(fee bool) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := signalContext()
	defer cancel()

	v, err := s.load(ctx)
	if err != nil {
		fmt.Print(ui.RenderView(s.ctl.View()))
		return fmt.Errorf("failed to load audit: %w", err)
	}
	if v.State() == workflow.SessionClosed {
		fmt.Println(ui.InfoMsg("Night audit for %s is already closed", v.ProcessKey))
		return nil
	}

	unsubscribe := s.ctl.Subscribe(progressPrinter(os.Stdout))
	defer unsubscribe()

	for _, step := range model.Steps() {
		if step == model.StepStart && v.Status != nil && v.Status.Status == model.StateInProgress {
			fmt.Println(ui.InfoMsg("%s: already in progress, skipped", step.Title()))
			continue
		}
		res, err := s.ctl.Run(ctx, step, fee)
		v = s.ctl.View()
		if err != nil {
			fmt.Println()
			fmt.Print(ui.RenderView(v))
			return stepFailure(v, err)
		}
		fmt.Println(ui.SuccessMsg("%s: %s", step.Title(), ui.ResultLine(res)))
	}
	fmt.Println()
	fmt.Print(ui.RenderView(v))
	return nil
}

// stepFailure returns the operator-facing reason for err.
func stepFailure(v workflow.View, err error) error {
	return errors.New(v.ErrorText(err))
}
