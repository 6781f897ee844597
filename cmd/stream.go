package cmd

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanq16/radiograb/internal/config"
	"github.com/tanq16/radiograb/internal/output"
	"github.com/tanq16/radiograb/internal/utils"
)

func newStreamCmd() *cobra.Command {
	var outputDir string
	var outputPath string
	var duration time.Duration
	var maxSize int64

	cmd := &cobra.Command{
		Use:     "stream [high|mid|URL] [--duration DURATION]",
		Short:   "Record the ByteFM live stream (or any HTTP audio stream)",
		Aliases: []string{"record", "radio"},
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			selector := cfg.Stream.Quality
			if len(args) == 1 {
				selector = args[0]
			}
			stream := cfg.Stream
			if cmd.Flags().Changed("output-dir") {
				stream.OutputDir = outputDir
			}
			job, err := buildStreamJob(stream, selector, outputPath, time.Now())
			if err != nil {
				return err
			}
			job.MaxDuration = duration
			job.MaxBytes = maxSize
			log.Debug().Str("op", "cmd/stream").Msgf("Recording %s quality from %s", job.Quality, job.URL)
			if duration == 0 && maxSize == 0 && cfg.Download.MaxDuration == 0 && cfg.Download.MaxBytes == 0 {
				output.PrintInfo("Recording until interrupted, press Ctrl+C to stop")
			}
			return runJobs(cmd.Context(), []utils.Job{job})
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "d", ".", "Directory for generated file names")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: [timestamp]_stream_[quality].mp3)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop recording after this long (eg. 1h, 90m); 0 records until interrupted")
	cmd.Flags().Int64Var(&maxSize, "max-size", 0, "Stop recording after this many bytes (0 for unlimited)")
	return cmd
}

// buildStreamJob resolves selector to a stream URL and picks a destination.
// The timestamp in generated names comes from now.
func buildStreamJob(s config.Stream, selector, outputPath string, now time.Time) (utils.Job, error) {
	link, quality, err := utils.ResolveQuality(selector, s.HighURL, s.MidURL)
	if err != nil {
		return utils.Job{}, err
	}
	if outputPath == "" {
		dir, err := s.OutputDirAbs()
		if err != nil {
			return utils.Job{}, err
		}
		outputPath = filepath.Join(dir, utils.StreamFileName(now, quality))
	}
	if _, err := os.Stat(outputPath); err == nil {
		outputPath = utils.RenewOutputPath(outputPath)
	}
	return utils.Job{
		ID:         uuid.NewString(),
		JobType:    "stream",
		URL:        link,
		Quality:    quality,
		OutputPath: outputPath,
	}, nil
}
