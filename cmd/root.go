package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"videoripper/downloader"
	"videoripper/internal"
	"videoripper/utils"
)

var (
	configPath string
	loader     *viper.Viper
	config     *internal.Config
	envLoaded  bool
)

// flagKeys maps command line flags to configuration keys
var flagKeys = map[string]string{
	"output":       "output",
	"threads":      "threads",
	"timeout":      "timeout",
	"retries":      "retries",
	"page-retries": "page_retries",
	"retry-delay":  "retry_delay",
	"cookies":      "cookies",
	"proxy":        "proxy",
	"input":        "input",
	"quiet":        "quiet",
	"debug":        "debug",
	"log-level":    "log_level",
	"log-file":     "log_file",
}

var rootCmd = &cobra.Command{
	Use:     "videoripper [OPTIONS] [IDENTIFIER...]",
	Short:   "Download every video of accounts and hashtag collections",
	Version: "v1.0.0",
	Long: `VideoRipper downloads every video posted by a short-video account, or
listed under a hashtag collection, into one directory per identifier.

Identifiers are numeric account IDs or hashtags prefixed with '#'. They are
read from the command line (space or comma separated) or, when none are
given, from the input file.

Examples:
  videoripper 12345678
  videoripper 12345678,#dance
  videoripper -t 4 -o videos '#dance' 12345678
  videoripper resolve 12345678

Environment Variables:
  VIDEORIPPER_THREADS      Number of concurrent downloads
  VIDEORIPPER_OUTPUT       Download root directory
  VIDEORIPPER_COOKIES      Path to cookie file
  VIDEORIPPER_PROXY        Proxy URL
  VIDEORIPPER_LOG_LEVEL    Log level

Variables may also be set in a .env file in the working directory.

DISCLAIMER: Respect the provider's Terms of Service and copyright laws.`,
	Args: cobra.ArbitraryArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfiguration(); err != nil {
			return fmt.Errorf("configuration error: %v", err)
		}

		if err := internal.InitLogger(config); err != nil {
			return fmt.Errorf("failed to initialize logger: %v", err)
		}

		internal.LogInfo("VideoRipper starting up")
		if !envLoaded {
			internal.LogDebug("No .env file loaded")
		}
		internal.LogDebug("Configuration loaded: threads=%d, timeout=%v, retries=%d, page_retries=%d, output=%s",
			config.Threads, config.Timeout, config.Retries, config.PageRetries, config.OutputDir)

		if !config.QuietMode {
			fmt.Fprintln(os.Stderr, "DISCLAIMER: Respect the provider's Terms of Service and copyright laws.")
			fmt.Fprintln(os.Stderr, "")
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		identifiers, err := utils.CollectIdentifiers(args, config.InputFile)
		if err != nil {
			var validationErr *internal.ValidationError
			if errors.As(err, &validationErr) {
				internal.LogValidationError(validationErr)
			}
			fmt.Fprint(os.Stderr, utils.Usage(config.InputFile))
			return err
		}

		internal.LogInfo("Processing %d identifier(s) into %s", len(identifiers), config.OutputDir)
		return executeRun(cmd, identifiers)
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <IDENTIFIER>",
	Short: "List the media references of an identifier without downloading",
	Long: `Look an identifier up and walk its listing, printing one media reference
per line. Nothing is written to disk; if an earlier download run saved a
snapshot of the identifier, its time is logged.

Examples:
  videoripper resolve 12345678
  videoripper resolve '#dance'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := internal.ParseIdentifier(args[0])
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client, cookies, err := newHTTPClient(config)
		if err != nil {
			return err
		}
		defer releaseCookies(client, cookies)

		resolver := downloader.NewPaginatedResolver(client, config.ProviderProfile(), nil, resolverConfig(config))
		resolution, err := resolver.ResolveAll(ctx, id, "")
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", id, err)
		}
		if !resolution.Found() {
			internal.LogCrawlError(internal.NewNotFoundError(id))
			return fmt.Errorf("%s not found", id)
		}

		internal.LogInfo("%s %s (key %s): %d videos", id.Kind, id, resolution.Key, len(resolution.References))
		snapshotPath := downloader.SnapshotPath(filepath.Join(config.OutputDir, id.DirName()), resolution.Key)
		if previous, err := downloader.ReadSnapshot(snapshotPath); err == nil {
			internal.LogInfo("Last crawled %s at %s", id, previous.SavedAt.Format(time.RFC3339))
		}
		out := cmd.OutOrStdout()
		for _, ref := range resolution.References {
			fmt.Fprintln(out, ref)
		}
		return nil
	},
}

// loadConfiguration merges defaults, the optional config file, the
// environment and command line flags
func loadConfiguration() error {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read .env file: %w", err)
		}
	} else {
		envLoaded = true
	}

	cfg, err := internal.LoadConfig(loader, configPath)
	if err != nil {
		return err
	}
	config = cfg
	return nil
}

// newHTTPClient builds the shared client with the configured proxy and cookies
func newHTTPClient(cfg *internal.Config) (*utils.HTTPClient, *downloader.CookieStore, error) {
	store := downloader.NewCookieStore()
	clientConfig := &utils.HTTPClientConfig{ProxyURL: cfg.ProxyURL}

	if cfg.CookiesFile != "" {
		internal.LogInfo("Loading cookies from: %s", cfg.CookiesFile)
		cookies, err := store.LoadCookies(cfg.CookiesFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load cookies: %w", err)
		}
		clientConfig.Cookies = cookies
	}

	client, err := utils.NewHTTPClientWithConfig(clientConfig)
	if err != nil {
		store.Cleanup()
		return nil, nil, err
	}
	return client, store, nil
}

// releaseCookies stops sending cookies and blanks their values
func releaseCookies(client *utils.HTTPClient, store *downloader.CookieStore) {
	client.SetCookies(nil)
	store.Cleanup()
}

func backoffConfig(cfg *internal.Config) *utils.RetryConfig {
	backoff := utils.DefaultRetryConfig()
	backoff.BaseDelay = cfg.RetryDelay
	return backoff
}

func resolverConfig(cfg *internal.Config) downloader.ResolverConfig {
	return downloader.ResolverConfig{
		PageRetries: cfg.PageRetries,
		Timeout:     cfg.Timeout,
		Backoff:     backoffConfig(cfg),
	}
}

// executeRun wires the components and processes identifiers in order
func executeRun(cmd *cobra.Command, identifiers []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, cookies, err := newHTTPClient(config)
	if err != nil {
		return err
	}
	defer releaseCookies(client, cookies)

	if err := utils.NewFileOperations().EnsureDir(config.OutputDir); err != nil {
		return internal.NewValidationErrorWithValue("output", "cannot create output directory", config.OutputDir).
			WithContext("error", err.Error())
	}

	profile := config.ProviderProfile()
	resolver := downloader.NewPaginatedResolver(client, profile, downloader.NewSnapshotWriter(), resolverConfig(config))
	fetcher := downloader.NewResourceFetcher(client, profile, downloader.FetcherConfig{
		Retries: config.Retries,
		Timeout: config.Timeout,
		Backoff: backoffConfig(config),
	})

	progress := utils.NewProgressTracker(config.QuietMode)
	pool := downloader.NewWorkerPool(downloader.PoolConfig{
		Workers: config.Threads,
		OnComplete: func(_ internal.WorkItem, outcome internal.DownloadOutcome) {
			progress.Increment(outcome)
		},
	}, fetcher)
	defer pool.Close()

	scheduler := downloader.NewScheduler(config.OutputDir, resolver, pool, progress)
	summary := scheduler.Run(ctx, identifiers)

	totals := summary.Totals()
	internal.LogInfo("Run finished: %d identifier(s), %d completed, %d not found, %d empty, %d errors",
		len(summary.Results), summary.Count(downloader.StatusCompleted), summary.Count(downloader.StatusNotFound),
		summary.Count(downloader.StatusEmpty), summary.Count(downloader.StatusError))
	internal.LogInfo("Videos: %d downloaded, %d already present, %d failed",
		totals.Succeeded, totals.Skipped, totals.Failed)

	if ctx.Err() != nil {
		internal.LogInfo("Run cancelled by user")
		return fmt.Errorf("run cancelled by user")
	}
	return nil
}

func init() {
	loader = internal.NewConfigLoader()
	defaults := internal.DefaultConfig()

	rootCmd.AddCommand(resolveCmd)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to a YAML, JSON or TOML config file")
	flags.StringP("output", "o", defaults.OutputDir, "Download root directory (env: VIDEORIPPER_OUTPUT)")
	flags.IntP("threads", "t", defaults.Threads, "Number of concurrent downloads (1-64) (env: VIDEORIPPER_THREADS)")
	flags.Duration("timeout", defaults.Timeout, "Timeout of each request attempt (env: VIDEORIPPER_TIMEOUT)")
	flags.Int("retries", defaults.Retries, "Attempts per video download (env: VIDEORIPPER_RETRIES)")
	flags.Int("page-retries", defaults.PageRetries, "Attempts per lookup or listing page (env: VIDEORIPPER_PAGE_RETRIES)")
	flags.Duration("retry-delay", defaults.RetryDelay, "Base backoff between attempts, 0 retries immediately (env: VIDEORIPPER_RETRY_DELAY)")
	flags.StringP("cookies", "c", "", "Path to Netscape-format cookie file (env: VIDEORIPPER_COOKIES)")
	flags.String("proxy", "", "HTTP/SOCKS5 proxy URL (env: VIDEORIPPER_PROXY)")
	flags.StringP("input", "i", defaults.InputFile, "File of identifiers used when none are given (env: VIDEORIPPER_INPUT)")
	flags.BoolP("quiet", "q", false, "Suppress progress bar output")

	// Logging flags
	flags.BoolP("debug", "d", false, "Enable debug logging with file and line information (env: VIDEORIPPER_DEBUG)")
	flags.String("log-level", "", "Set log level (debug, info, warn, error) (env: VIDEORIPPER_LOG_LEVEL)")
	flags.String("log-file", "", "Write logs to file instead of stderr (env: VIDEORIPPER_LOG_FILE)")

	for name, key := range flagKeys {
		if err := loader.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", name, err))
		}
	}
}

func Execute() error {
	return rootCmd.Execute()
}
