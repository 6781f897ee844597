package cmd

import (
	"fmt"
	u "net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tanq16/radiograb/internal/utils"
)

func newHTTPCmd() *cobra.Command {
	var outputPath string
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "http [URL] [--output OUTPUT_PATH]",
		Short: "Download a stream or file via HTTP/HTTPS",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := buildHTTPJob(args[0], outputPath)
			if err != nil {
				return err
			}
			job.MaxDuration = duration
			return runJobs(cmd.Context(), []utils.Job{job})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: last URL path segment)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long; 0 reads until the server ends the body")
	return cmd
}

func buildHTTPJob(link, outputPath string) (utils.Job, error) {
	parsed, err := u.Parse(link)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return utils.Job{}, fmt.Errorf("invalid URL %q", link)
	}
	if outputPath == "" {
		outputPath = utils.FileNameFromURL(link)
	}
	if _, err := os.Stat(outputPath); err == nil {
		outputPath = utils.RenewOutputPath(outputPath)
	}
	return utils.Job{
		JobType:    "http",
		URL:        link,
		OutputPath: outputPath,
	}, nil
}
