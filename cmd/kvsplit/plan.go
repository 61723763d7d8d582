package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/kvsplit/pkg/codec"
	"github.com/ajitpratap0/kvsplit/pkg/compression"
	"github.com/ajitpratap0/kvsplit/pkg/config"
	"github.com/ajitpratap0/kvsplit/pkg/input"
	"github.com/ajitpratap0/kvsplit/pkg/logger"
	"github.com/ajitpratap0/kvsplit/pkg/split"
	"github.com/ajitpratap0/kvsplit/pkg/staging"
)

type planSplit struct {
	Index    int    `json:"index"`
	Location string `json:"location"`
	Keys     int    `json:"keys"`
}

type planReport struct {
	Job       string      `json:"job"`
	JobID     string      `json:"job_id,omitempty"`
	StagedTo  string      `json:"staged_to,omitempty"`
	Strategy  string      `json:"strategy"`
	TotalKeys int         `json:"total_keys"`
	Splits    []planSplit `json:"splits"`
}

func newPlanCommand(v *viper.Viper) *cobra.Command {
	var jobID string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Discover keys and compute splits",
		Long: `Discover the job's record ids against its endpoints and partition them into splits.
When a staging URL is configured the splits are staged under a job id for workers.

Example:
  kvsplit plan -c job.yaml --staging-url s3://bucket/kvsplit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadJob(v)
			if err != nil {
				return err
			}
			return runPlan(cmd, cfg, jobID)
		},
	}
	cmd.Flags().StringVar(&jobID, "job-id", "", "Job id used when staging (default: random)")
	return cmd
}

func runPlan(cmd *cobra.Command, cfg *config.JobConfig, jobID string) error {
	dialer, shutdown, err := setup(cfg)
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	props, err := input.PropertiesFromConfig(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Staging.URL != "" && jobID == "" {
		jobID = staging.NewJobID()
	}
	if jobID != "" {
		ctx = logger.ContextWithJobID(ctx, jobID)
	}
	log := logger.WithContext(ctx).With(zap.String("component", "kvsplit-cli"))

	format := input.NewInputFormat(dialer, log)
	splits, err := format.ComputeSplits(ctx, props)
	if err != nil {
		return err
	}

	report := newPlanReport(cfg, splits)
	if cfg.Staging.URL != "" {
		if err := stage(ctx, cfg, jobID, splits, log); err != nil {
			return err
		}
		report.JobID = jobID
		report.StagedTo = cfg.Staging.URL
	}

	data, err := codec.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func newPlanReport(cfg *config.JobConfig, splits []*split.Split) planReport {
	report := planReport{
		Job:      cfg.Name,
		Strategy: cfg.Discovery.Strategy,
		Splits:   make([]planSplit, len(splits)),
	}
	for i, s := range splits {
		report.Splits[i] = planSplit{Index: i, Location: s.Location().String(), Keys: s.Len()}
		report.TotalKeys += s.Len()
	}
	return report
}

func openStager(ctx context.Context, cfg *config.JobConfig, log *zap.Logger) (*staging.Stager, func() error, error) {
	store, err := staging.Open(ctx, cfg.Staging.URL)
	if err != nil {
		return nil, nil, err
	}
	stager, err := staging.NewStager(store, staging.StagerOptions{
		Compression: compression.Algorithm(cfg.Staging.Compression),
		Logger:      log,
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return stager, store.Close, nil
}

func stage(ctx context.Context, cfg *config.JobConfig, jobID string, splits []*split.Split, log *zap.Logger) error {
	stager, closeStore, err := openStager(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	_, err = stager.Stage(ctx, jobID, splits)
	return err
}
