package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	humanize "github.com/dustin/go-humanize"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/studio1767/s3site/internal/cdn"
	"github.com/studio1767/s3site/internal/fault"
	"github.com/studio1767/s3site/internal/job"
	"github.com/studio1767/s3site/internal/observer"
	"github.com/studio1767/s3site/internal/ops"
	"github.com/studio1767/s3site/internal/s3io"
	"github.com/studio1767/s3site/internal/site"
)

const (
	exitUser   = 1
	exitSystem = 2
)

type options struct {
	config  string
	report  string
	verbose bool
	job     job.Job
}

func main() {
	logger := log.New()
	logger.SetOutput(os.Stderr)

	var runErr error
	cmd := newCommand(newOptions(), logger, &runErr)

	if err := cmd.Execute(); err != nil {
		if runErr == nil {
			// bad flags or arguments
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(exitUser)
		}
		logger.Error(err)
		if fault.IsUserError(err) {
			os.Exit(exitUser)
		}
		os.Exit(exitSystem)
	}
}

func newOptions() *options {
	return &options{
		job: *job.Default(),
	}
}

func newCommand(opts *options, logger *log.Logger, runErr *error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "s3site [flags] <host-name> <folder>",
		Short: "Publish a folder as a static website on S3 and CloudFront",
		Long: `Synchronise a local folder to an S3 bucket configured for website
hosting, and make sure a CloudFront distribution serves it under the host name.

Changed files are uploaded, files removed locally are deleted from the bucket,
and changed paths are invalidated in CloudFront.

Example:
  s3site www.example.com ./public
  s3site --no-cdn --bucket-region eu-west-1 www.example.com ./public`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			*runErr = run(cmd, opts, args, logger)
			return *runErr
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.config, "config", "c", "", "YAML or TOML file with job settings")
	flags.StringVar(&opts.report, "report", "", "write a CSV line per processed key to this file")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose reporting")

	flags.StringVar(&opts.job.AccessKeyID, "access-key-id", "", "AWS access key id")
	flags.StringVar(&opts.job.SecretAccessKey, "secret-access-key", "", "AWS secret access key")
	flags.StringVarP(&opts.job.Profile, "profile", "p", "", "AWS profile for credentials and configuration")
	flags.StringVar(&opts.job.Index, "index", opts.job.Index, "name of the index document served for folders")
	flags.StringVar(&opts.job.ErrorPage, "error-page", opts.job.ErrorPage, "document served for 4xx errors, empty for none")
	flags.StringVar(&opts.job.BucketRegion, "bucket-region", opts.job.BucketRegion, "region new buckets are created in")
	flags.BoolVar(&opts.job.Repair, "repair", false, "re-upload unchanged files that are not publicly readable")
	flags.BoolVar(&opts.job.AllowHidden, "allow-hidden", false, "sync files and folders whose names start with '.'")
	flags.BoolVar(&opts.job.NoCDN, "no-cdn", false, "serve straight from the bucket, without CloudFront")
	flags.BoolVar(&opts.job.SkipWait, "skip-wait", false, "do not wait for CloudFront to propagate changes")
	flags.BoolVar(&opts.job.TakeOverBucket, "take-over-bucket", false, "manage an existing bucket not created by s3site")
	flags.IntVarP(&opts.job.Workers, "workers", "w", opts.job.Workers, "number of files synced in parallel")

	return cmd
}

// resolveJob layers the config file over the defaults and the flags the user
// actually set over the file.
func resolveJob(cmd *cobra.Command, opts *options, args []string) (*job.Job, error) {
	j, err := job.Load(opts.config)
	if err != nil {
		return nil, fault.BadUser("%s", err)
	}

	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("access-key-id", func() { j.AccessKeyID = opts.job.AccessKeyID })
	set("secret-access-key", func() { j.SecretAccessKey = opts.job.SecretAccessKey })
	set("profile", func() { j.Profile = opts.job.Profile })
	set("index", func() { j.Index = opts.job.Index })
	set("error-page", func() { j.ErrorPage = opts.job.ErrorPage })
	set("bucket-region", func() { j.BucketRegion = opts.job.BucketRegion })
	set("repair", func() { j.Repair = opts.job.Repair })
	set("allow-hidden", func() { j.AllowHidden = opts.job.AllowHidden })
	set("no-cdn", func() { j.NoCDN = opts.job.NoCDN })
	set("skip-wait", func() { j.SkipWait = opts.job.SkipWait })
	set("take-over-bucket", func() { j.TakeOverBucket = opts.job.TakeOverBucket })
	set("workers", func() { j.Workers = opts.job.Workers })

	j.HostName = args[0]
	j.Folder = args[1]
	j.Normalize()

	if err := j.Validate(); err != nil {
		return nil, fault.BadUser("%s", err)
	}

	return j, nil
}

func loadAWSConfig(ctx context.Context, j *job.Job) (aws.Config, error) {
	lopts := []func(*config.LoadOptions) error{
		config.WithRegion(s3io.DefaultRegion),
	}
	if j.Profile != "" {
		lopts = append(lopts, config.WithSharedConfigProfile(j.Profile))
	}
	if j.AccessKeyID != "" || j.SecretAccessKey != "" {
		if j.AccessKeyID == "" || j.SecretAccessKey == "" {
			return aws.Config{}, fault.BadUser("both an access key id and a secret access key are needed")
		}
		lopts = append(lopts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(j.AccessKeyID, j.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, lopts...)
	if err != nil {
		return aws.Config{}, fault.BadUser("failed to load AWS configuration: %s", err)
	}
	return cfg, nil
}

func run(cmd *cobra.Command, opts *options, args []string, logger *log.Logger) error {
	if opts.verbose {
		logger.SetLevel(log.DebugLevel)
	}

	j, err := resolveJob(cmd, opts, args)
	if err != nil {
		return err
	}

	// interrupts cancel the run at the next file boundary
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadAWSConfig(ctx, j)
	if err != nil {
		return err
	}

	var reportWriter io.Writer
	if opts.report != "" {
		rfile, err := os.Create(filepath.Clean(opts.report))
		if err != nil {
			return fault.BadUser("failed to create report: %s", err)
		}
		defer rfile.Close()
		reportWriter = rfile
	}

	engine := site.Engine{
		Store:        s3io.NewClient(cfg),
		Fs:           afero.NewOsFs(),
		Clock:        clockwork.NewRealClock(),
		Observer:     observer.NewLogger(logger),
		ReportWriter: reportWriter,
	}
	if !j.NoCDN {
		engine.CDN = cdn.NewClient(cfg)
	}

	result, err := engine.Run(ctx, j)
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("interrupted; re-run to finish converging the site: %w", err)
	}
	if err != nil {
		return err
	}

	printSummary(os.Stdout, result)
	return nil
}

func printSummary(w io.Writer, result *site.Result) {
	report := result.Report

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Sync Summary\n")
	fmt.Fprintf(w, "       bucket: %s (%s)\n", result.Bucket, result.Region)
	if result.Distribution != nil {
		fmt.Fprintf(w, " distribution: %s (%s)\n", result.Distribution.ID, result.Distribution.DomainName)
	}
	fmt.Fprintf(w, " keys:\n")
	fmt.Fprintf(w, "        total: %d\n", report.Total())
	fmt.Fprintf(w, "    unchanged: %d\n", report.Count(ops.Unchanged))
	fmt.Fprintf(w, "     uploaded: %d (%s)\n", report.Count(ops.Uploaded), humanize.Bytes(uint64(report.BytesUploaded())))
	fmt.Fprintf(w, "     repaired: %d\n", report.Count(ops.AccessRepaired))
	fmt.Fprintf(w, "      deleted: %d\n", report.Count(ops.Deleted))
	if result.Distribution != nil {
		fmt.Fprintf(w, "  invalidated: %d keys in %d batches\n", len(result.Changes), result.Batches)
	}
	fmt.Fprintln(w)
}
