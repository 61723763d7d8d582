package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/kvsplit/pkg/codec"
	"github.com/ajitpratap0/kvsplit/pkg/config"
	"github.com/ajitpratap0/kvsplit/pkg/errors"
	"github.com/ajitpratap0/kvsplit/pkg/input"
	"github.com/ajitpratap0/kvsplit/pkg/logger"
	"github.com/ajitpratap0/kvsplit/pkg/mapper"
	"github.com/ajitpratap0/kvsplit/pkg/models"
	"github.com/ajitpratap0/kvsplit/pkg/output"
)

type readOptions struct {
	jobID       string
	split       int
	resolve     string
	skipFailed  bool
	writeOutput bool
}

type readLine struct {
	Container string `json:"container"`
	Key       string `json:"key"`
	Value     string `json:"value"`
}

func newReadCommand(v *viper.Viper) *cobra.Command {
	var opts readOptions
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Fetch the records of one staged split",
		Long: `Load a staged split and fetch its records from the split's endpoint.
Each record is printed as one JSON line. With --write-output the values are
also stored into the job's output container.

Example:
  kvsplit read -c job.yaml --job-id 6f1c... --split 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadJob(v)
			if err != nil {
				return err
			}
			return runRead(cmd, cfg, opts)
		},
	}
	cmd.Flags().StringVar(&opts.jobID, "job-id", "", "Staged job id (required)")
	cmd.Flags().IntVar(&opts.split, "split", 0, "Index of the split to read")
	cmd.Flags().StringVar(&opts.resolve, "resolve", "first", "Sibling conflict resolution (first, single)")
	cmd.Flags().BoolVar(&opts.skipFailed, "skip-failed", false, "Skip records whose fetch fails")
	cmd.Flags().BoolVar(&opts.writeOutput, "write-output", false, "Store values into the output container")
	_ = cmd.MarkFlagRequired("job-id")
	return cmd
}

func resolverFor(name string) (mapper.ConflictResolver[[]byte], error) {
	switch name {
	case "first", "":
		return mapper.First[[]byte](), nil
	case "single":
		return mapper.Single[[]byte](), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown resolution %q", name)
	}
}

func runRead(cmd *cobra.Command, cfg *config.JobConfig, opts readOptions) error {
	if cfg.Staging.URL == "" {
		return errors.New(errors.ErrorTypeConfig, "read needs a staging url")
	}
	resolver, err := resolverFor(opts.resolve)
	if err != nil {
		return err
	}

	dialer, shutdown, err := setup(cfg)
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.ContextWithSplit(logger.ContextWithJobID(ctx, opts.jobID), opts.split)
	log := logger.WithContext(ctx).With(zap.String("component", "kvsplit-cli"))

	stager, closeStore, err := openStager(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	manifest, err := stager.Manifest(ctx, opts.jobID)
	if err != nil {
		return err
	}
	sp, err := stager.LoadSplit(ctx, manifest, opts.split)
	if err != nil {
		return err
	}

	var writer *output.RecordWriter
	if opts.writeOutput {
		props, err := input.PropertiesFromConfig(cfg)
		if err != nil {
			return err
		}
		if writer, err = output.NewRecordWriter(ctx, dialer, props, log); err != nil {
			return err
		}
		defer writer.Close()
	}

	format := input.NewInputFormat(dialer, log)
	reader, err := format.OpenReader(ctx, sp)
	if err != nil {
		return err
	}
	defer reader.Close()

	mapOpts := []mapper.Option{mapper.WithLogger(log)}
	if opts.skipFailed {
		mapOpts = append(mapOpts, mapper.WithSkipFetchErrors())
	}
	m := mapper.New(mapper.Bytes(), resolver, mapOpts...)

	stats, err := m.Run(ctx, reader, emitter(cmd.OutOrStdout(), writer))
	log.Info("split read",
		zap.Int("read", stats.Read),
		zap.Int("mapped", stats.Mapped),
		zap.Int("not_found", stats.NotFound),
		zap.Int("failed", stats.Failed))
	return err
}

// emitter prints each value as a JSON line and, when w is not nil, stores it
// into the output container.
func emitter(out io.Writer, w *output.RecordWriter) func(context.Context, models.RecordID, []byte) error {
	return func(ctx context.Context, id models.RecordID, value []byte) error {
		if err := codec.Encode(out, readLine{Container: id.Container, Key: id.Key, Value: string(value)}); err != nil {
			return err
		}
		if w == nil {
			return nil
		}
		return w.Write(ctx, id.Key, value)
	}
}
