package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tanq16/radiograb/internal/config"
	"github.com/tanq16/radiograb/internal/output"
	"github.com/tanq16/radiograb/internal/utils"
	"gopkg.in/yaml.v3"
)

type BatchEntry struct {
	OutputPath string        `yaml:"op,omitempty"`
	Link       string        `yaml:"link,omitempty"`
	Quality    string        `yaml:"quality,omitempty"`
	Duration   time.Duration `yaml:"duration,omitempty"`
	MaxSize    int64         `yaml:"max_size,omitempty"`
}

type BatchFile map[string][]BatchEntry

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [YAML_FILE] [OPTIONS]",
		Short: "Process multiple recordings from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read batch file: %w", err)
			}
			jobs, warnings, err := parseBatchFile(data, cfg.Stream, time.Now())
			for _, w := range warnings {
				output.PrintWarning(w)
			}
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				return fmt.Errorf("no valid jobs found in the batch file")
			}
			return runJobs(cmd.Context(), jobs)
		},
	}
	return cmd
}

// parseBatchFile builds jobs from YAML, skipping entries it cannot use and
// reporting them as warnings. Sections are processed in sorted order and no
// two jobs share a destination.
func parseBatchFile(data []byte, s config.Stream, now time.Time) ([]utils.Job, []string, error) {
	var batchFile BatchFile
	if err := yaml.Unmarshal(data, &batchFile); err != nil {
		return nil, nil, fmt.Errorf("parse batch file: %w", err)
	}
	sections := make([]string, 0, len(batchFile))
	for jobType := range batchFile {
		sections = append(sections, jobType)
	}
	sort.Strings(sections)

	var jobs []utils.Job
	var warnings []string
	seen := make(map[string]bool)
	for _, jobType := range sections {
		normalizedType := normalizeJobType(jobType)
		if normalizedType == "" {
			warnings = append(warnings, fmt.Sprintf("Unknown job type '%s', skipping", jobType))
			continue
		}
		for i, entry := range batchFile[jobType] {
			var job utils.Job
			var err error
			switch normalizedType {
			case "stream":
				selector := entry.Link
				if selector == "" {
					selector = entry.Quality
				}
				if selector == "" {
					selector = s.Quality
				}
				job, err = buildStreamJob(s, selector, entry.OutputPath, now)
			case "http":
				if entry.Link == "" {
					err = fmt.Errorf("empty link")
				} else {
					job, err = buildHTTPJob(entry.Link, entry.OutputPath)
				}
			}
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("Entry %d in %s section: %v, skipping", i+1, jobType, err))
				continue
			}
			job.OutputPath = uniquePath(job.OutputPath, seen)
			job.MaxDuration = entry.Duration
			job.MaxBytes = entry.MaxSize
			jobs = append(jobs, job)
		}
	}
	return jobs, warnings, nil
}

func normalizeJobType(jobType string) string {
	typeMap := map[string]string{
		"stream": "stream",
		"radio":  "stream",
		"record": "stream",
		"bytefm": "stream",
		"http":   "http",
		"https":  "http",
	}
	return typeMap[strings.ToLower(strings.TrimSpace(jobType))]
}

// uniquePath appends a -(n) suffix until outputPath is neither on disk nor
// already claimed in seen, then claims it.
func uniquePath(outputPath string, seen map[string]bool) string {
	candidate := outputPath
	ext := filepath.Ext(outputPath)
	name := strings.TrimSuffix(outputPath, ext)
	for index := 1; ; index++ {
		if _, err := os.Stat(candidate); !seen[candidate] && os.IsNotExist(err) {
			break
		}
		candidate = fmt.Sprintf("%s-(%d)%s", name, index, ext)
	}
	seen[candidate] = true
	return candidate
}
