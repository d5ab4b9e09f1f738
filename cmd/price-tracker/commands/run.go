package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/price-tracker/internal/models"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Collect prices once and merge them into the history",
	Long: `Collect the price of every catalog entry and merge the results into the
price history under the run date. Rows already stored for that date are
replaced. Entries without a price are reported, not fatal.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("date", "", "run date in DD.MM.YYYY (default today)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		logError("%v", err)
		return err
	}

	date := time.Now()
	if s, _ := cmd.Flags().GetString("date"); s != "" {
		date, err = models.ParseDate(s)
		if err != nil {
			logError("%v", err)
			return err
		}
	}

	logger := newLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	defer a.Close()

	rep, err := a.service.Execute(ctx, uuid.New().String(), date)
	if err != nil {
		logger.Error("run failed", "run_id", rep.RunID, "error", err)
		return err
	}
	return nil
}
