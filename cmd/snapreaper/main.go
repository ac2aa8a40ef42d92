package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/opstools/snapreaper/internal/config"
	"github.com/opstools/snapreaper/internal/logger"
	"github.com/opstools/snapreaper/internal/mail"
	"github.com/opstools/snapreaper/internal/reaper"
	"github.com/opstools/snapreaper/internal/retention"
	"github.com/opstools/snapreaper/internal/schedule"
	"github.com/opstools/snapreaper/internal/vsphere"
	"github.com/spf13/cobra"
)

func main() {
	os.Exit(run())
}

func run() int {
	log := logger.New()
	root := newRootCmd(log)
	if err := root.Execute(); err != nil {
		log.Error("Run failed", logger.Error(err))
		return 1
	}
	return 0
}

func newRootCmd(log *logger.Logger) *cobra.Command {
	var (
		envFile    string
		configFile string

		retentionDays    int
		clusters         []string
		tagFilter        []string
		recipients       []string
		mailServer       string
		dryRun           bool
		interactiveCreds bool
		scheduleSpec     string
	)

	cmd := &cobra.Command{
		Use:           "snapreaper",
		Short:         "Delete aged VM snapshots across vSphere clusters and email a report",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithFile(envFile)
			if err != nil {
				return err
			}

			if configFile != "" {
				rc, err := config.LoadRunConfig(configFile)
				if err != nil {
					return err
				}
				cfg.Merge(rc)
			}

			// Flags win over the config file.
			if cmd.Flags().Changed("retention-days") {
				cfg.RetentionDays = retentionDays
			}
			if cmd.Flags().Changed("clusters") {
				cfg.Clusters = clusters
			}
			if cmd.Flags().Changed("tags") {
				cfg.Tags = tagFilter
			}
			if cmd.Flags().Changed("mail-server") {
				cfg.MailServer = mailServer
			}
			if cmd.Flags().Changed("recipients") {
				cfg.Recipients = recipients
			}
			if cmd.Flags().Changed("schedule") {
				cfg.Schedule = scheduleSpec
			}
			cfg.DryRun = dryRun
			cfg.InteractiveMailCreds = interactiveCreds

			if err := cfg.Validate(); err != nil {
				return err
			}

			var creds mail.CredentialProvider = mail.Static{
				Username: cfg.SMTPUsername,
				Password: cfg.SMTPPassword,
			}
			if cfg.InteractiveMailCreds {
				creds = &mail.Interactive{}
			}

			sender, err := mail.NewSender(cfg.MailServer, cfg.MailFrom, creds)
			if err != nil {
				return err
			}

			r := &reaper.Reaper{
				Logger:     log,
				Sessions:   vsphere.NewProvider(cfg, log),
				Mail:       sender,
				Policy:     retention.Policy{Days: cfg.RetentionDays},
				Clusters:   cfg.Clusters,
				Tags:       cfg.Tags,
				Recipients: cfg.Recipients,
				DryRun:     cfg.DryRun,
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runOnce := func() error {
				_, err := r.Run(ctx)
				return err
			}

			if cfg.Schedule != "" {
				return schedule.Run(ctx, cfg.Schedule, log, runOnce)
			}
			return runOnce()
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", ".env", "Path to .env file with credentials")
	cmd.Flags().StringVar(&configFile, "config", "", "Path to TOML run configuration")
	cmd.Flags().IntVar(&retentionDays, "retention-days", config.DefaultRetentionDays, "Minimum snapshot age in days for deletion")
	cmd.Flags().StringSliceVar(&clusters, "clusters", nil, "Cluster endpoints to process, in order")
	cmd.Flags().StringSliceVar(&tagFilter, "tags", nil, "Only process VMs carrying at least one of these tags")
	cmd.Flags().StringVar(&mailServer, "mail-server", "", "SMTP endpoint for report delivery (host or host:port)")
	cmd.Flags().StringSliceVar(&recipients, "recipients", nil, "Report recipients")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Evaluate and report only, delete nothing")
	cmd.Flags().BoolVar(&interactiveCreds, "interactive-mail-creds", false, "Prompt for SMTP credentials instead of using the service identity")
	cmd.Flags().StringVar(&scheduleSpec, "schedule", "", "Cron schedule for periodic runs (default: run once)")

	return cmd
}
