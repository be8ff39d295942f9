package cmd

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/smartalerte/smartalerte/internal/conf"
	"github.com/smartalerte/smartalerte/internal/logger"
)

// One-shot jobs never seed the default alert implicitly.
var noSeed = false

func sweepCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Evaluate every active stock alert against every product once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, conf.GetSettings(), info, bootstrapOptions{seedDefault: &noSeed})
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.alerting.Sweeper.RunOnce(ctx)
			if werr := writeJSON(cmd.OutOrStdout(), result); werr != nil {
				return werr
			}
			return err
		},
	}
}

func seedDefaultAlertCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-default-alert",
		Short: "Create the default low-stock alert for the first staff user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, conf.GetSettings(), info, bootstrapOptions{seedDefault: &noSeed})
			if err != nil {
				return err
			}
			defer a.close()

			alert, err := a.alerting.Engine.EnsureDefaultStockAlert(ctx)
			if err != nil {
				return err
			}
			if alert == nil {
				a.log.Warn("no staff user, default alert not created")
				return writeJSON(cmd.OutOrStdout(), map[string]any{"created": false})
			}
			a.log.Info("default stock alert ready", logger.Uint64("alert_id", uint64(alert.ID)))
			return writeJSON(cmd.OutOrStdout(), alert)
		},
	}
}

func cleanupCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete read notifications older than the retention window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, conf.GetSettings(), info, bootstrapOptions{seedDefault: &noSeed})
			if err != nil {
				return err
			}
			defer a.close()

			deleted, err := a.alerting.Sweeper.Cleanup(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"deleted":        deleted,
				"retention_days": a.settings.Alerting.NotificationRetentionDays,
			})
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
