package cmd

import (
	"context"
	"fmt"
	"io"
	u "net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanq16/radiograb/internal/config"
	"github.com/tanq16/radiograb/internal/observability"
	"github.com/tanq16/radiograb/internal/output"
	"github.com/tanq16/radiograb/internal/scheduler"
	"github.com/tanq16/radiograb/internal/utils"
)

var (
	cfg              *config.Config
	globalHTTPConfig utils.HTTPClientConfig
	metrics          *observability.Metrics
	logCloser        io.Closer
	proxyUsername    string
	proxyPassword    string
	headers          []string
)

var RadiograbVersion = "dev"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "radiograb",
		Short:         "Radiograb records live internet radio streams to disk",
		Version:       RadiograbVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			closer, err := utils.InitLogger(cfg.App.Debug, cfg.App.LogFile)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			logCloser = closer
			globalHTTPConfig = buildHTTPConfig()
			metrics = observability.New()
			if cfg.App.MetricsAddr != "" {
				go func() {
					if err := metrics.Serve(cmd.Context(), cfg.App.MetricsAddr); err != nil {
						log.Error().Str("op", "cmd/root").Err(err).Msg("Metrics server stopped")
					}
				}()
			}
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.DurationVarP(&cfg.HTTP.Timeout, "timeout", "t", cfg.HTTP.Timeout, "Connect and idle read timeout (eg. 5s, 1m)")
	pf.DurationVarP(&cfg.HTTP.KeepAliveTimeout, "keep-alive-timeout", "k", cfg.HTTP.KeepAliveTimeout, "Keep-alive timeout for client (eg. 10s, 1m, 80s)")
	pf.StringVarP(&cfg.HTTP.UserAgent, "user-agent", "a", cfg.HTTP.UserAgent, "User agent (randomize picks a browser agent)")
	pf.StringVarP(&cfg.HTTP.Proxy, "proxy", "p", cfg.HTTP.Proxy, "HTTP/HTTPS proxy URL (e.g., proxy.example.com:8080)")
	pf.StringVar(&proxyUsername, "proxy-username", "", "Proxy username (if not provided in proxy URL)")
	pf.StringVar(&proxyPassword, "proxy-password", "", "Proxy password (if not provided in proxy URL)")
	pf.StringArrayVarP(&headers, "header", "H", []string{}, "Custom headers (like 'Icy-MetaData: 1'); can be specified multiple times")
	pf.BoolVar(&cfg.HTTP.UseHTTP2, "http2", cfg.HTTP.UseHTTP2, "Negotiate HTTP/2 with the stream server")
	pf.IntVarP(&cfg.Download.MaxRetries, "retries", "r", cfg.Download.MaxRetries, "Retries after the first attempt")
	pf.DurationVar(&cfg.Download.Backoff, "backoff", cfg.Download.Backoff, "Base backoff; retry n waits n times this")
	pf.IntVar(&cfg.Download.ChunkSize, "chunk-size", cfg.Download.ChunkSize, "Read chunk size in bytes")
	pf.Int64Var(&cfg.Download.RateLimit, "limit-rate", cfg.Download.RateLimit, "Maximum bytes per second per recording (0 for unlimited)")
	pf.IntVarP(&cfg.App.Workers, "workers", "w", cfg.App.Workers, "Number of recordings to run in parallel")
	pf.BoolVar(&cfg.App.Debug, "debug", cfg.App.Debug, "Enable debug logging on stderr")
	pf.StringVar(&cfg.App.LogFile, "log-file", cfg.App.LogFile, "Append JSON logs to a file (--log-file=PATH, bare flag uses "+utils.LogFile+")")
	pf.Lookup("log-file").NoOptDefVal = utils.LogFile
	pf.StringVar(&cfg.App.MetricsAddr, "metrics-addr", cfg.App.MetricsAddr, "Serve Prometheus metrics on this address (eg. :9090)")

	rootCmd.AddCommand(newStreamCmd())
	rootCmd.AddCommand(newHTTPCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newCleanCmd())
	return rootCmd
}

func Execute() {
	loaded, err := config.New()
	if err != nil {
		output.PrintError(fmt.Sprintf("Invalid environment configuration: %v", err))
		os.Exit(1)
	}
	cfg = loaded

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = newRootCmd().ExecuteContext(ctx)
	stop()
	if logCloser != nil {
		logCloser.Close()
	}
	if err != nil {
		output.PrintError(err.Error())
		os.Exit(1)
	}
}

func buildHTTPConfig() utils.HTTPClientConfig {
	userAgent := cfg.HTTP.UserAgent
	if userAgent == "randomize" {
		userAgent = utils.GetRandomUserAgent()
	}
	proxyURL := cfg.HTTP.Proxy
	user, pass := proxyUsername, proxyPassword
	// Check if proxy URL contains auth
	parsedProxy, err := u.Parse(proxyURL)
	if err == nil && parsedProxy.User != nil && user == "" {
		user = parsedProxy.User.Username()
		if password, set := parsedProxy.User.Password(); set {
			pass = password
		}
		parsedProxy.User = nil
		proxyURL = parsedProxy.String()
	}
	return utils.HTTPClientConfig{
		Timeout:       cfg.HTTP.Timeout,
		KATimeout:     cfg.HTTP.KeepAliveTimeout,
		ProxyURL:      proxyURL,
		ProxyUsername: user,
		ProxyPassword: pass,
		UserAgent:     userAgent,
		Headers:       utils.ParseHeaderArgs(headers),
		UseHTTP2:      cfg.HTTP.UseHTTP2,
	}
}

// runJobs applies the global tuning and client settings to jobs and hands
// them to the scheduler.
func runJobs(ctx context.Context, jobs []utils.Job) error {
	tuning := cfg.Tuning()
	for i := range jobs {
		tuning.Apply(&jobs[i])
		jobs[i].HTTPClientConfig = globalHTTPConfig
		if jobs[i].ID == "" {
			jobs[i].ID = uuid.NewString()
		}
	}
	outputMgr := output.NewManager()
	if cfg.App.Debug {
		outputMgr.DisableLiveDisplay()
	}
	log.Debug().Str("op", "cmd/root").Msgf("Starting scheduler with %d jobs", len(jobs))
	return scheduler.Run(ctx, jobs, cfg.App.Workers, scheduler.Options{
		Metrics: metrics,
		Output:  outputMgr,
	})
}
