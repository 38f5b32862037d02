package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nao1215/linkscan/internal/config"
	"github.com/nao1215/linkscan/internal/crawler"
	"github.com/nao1215/linkscan/internal/database"
	"github.com/nao1215/linkscan/internal/pipeline"
	"github.com/nao1215/linkscan/internal/renderer"
	"github.com/nao1215/linkscan/internal/report"
	"github.com/nao1215/linkscan/internal/transport"
	"github.com/nao1215/linkscan/internal/urlnorm"
	"github.com/spf13/cobra"
)

// errDeadLinksFound is returned by scan --fail-on-dead when a report lists dead links.
var errDeadLinksFound = errors.New("dead links found")

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	if errors.Is(err, errDeadLinksFound) {
		return 2
	}
	return 1
}

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <seed-url>...",
		Short: "Crawl websites and report dead links",
		Long: `Scan crawls each seed URL's site and reports the dead links found on its pages.

Every page of the seed's site (same scheme, host and port) is loaded and
its links are followed. Links to other sites are loaded once to learn
their status. A link is dead when its target fails to load: DNS and
connection errors, timeouts, certificate problems and HTTP 4xx/5xx
responses all count.

While crawling, one line per page is printed to stderr:
  https://example.com/about [OK]

Examples:
  # Crawl a site
  linkscan scan https://example.com/

  # Render pages in headless Chrome and limit the crawl
  linkscan scan -e chrome -d 3 -p 500 https://example.com/

  # Crawl two sites at once and write a Markdown report
  linkscan scan -m -o report.md https://example.com/ https://example.org/

  # Crawl an onion service through an embedded Tor daemon
  linkscan scan --tor http://<address>.onion/

  # Fail a CI job when dead links are found
  linkscan scan --fail-on-dead --no-save https://staging.example.com/

Environment variables (LINKSCAN_WORKERS, LINKSCAN_ENGINE, ...) and a .env
file in the current directory override defaults; flags override both.

Configuration file (.linkscan) example:
  defaults:
    ignorePatterns:
      - "/logout*"
  sites:
    intranet.example.com:
      cookie: "session_id=abc123"
      depth: 3`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Crawl flags
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of pages fetched concurrently per site")
	cmd.Flags().IntP("depth", "d", 0,
		"Maximum number of links away from the seed (0 = unlimited)")
	cmd.Flags().IntP("max-pages", "p", 0,
		"Maximum number of URLs fetched per site (0 = unlimited)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page load")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of sites crawled concurrently")

	// Renderer flags
	cmd.Flags().StringP("engine", "e", config.DefaultEngine,
		"Page renderer: http, chrome or playwright")
	cmd.Flags().Int("retries", config.DefaultAttempts,
		"Number of attempts when a server aborts a request")
	cmd.Flags().Duration("navigation-delay", 0,
		"Delay before each page load, multiplied by the attempt number (e.g. 500ms)")
	cmd.Flags().Float64("rate", 0,
		"Maximum page loads per second per site (0 = unlimited)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Bool("insecure", false,
		"Skip TLS certificate verification")
	cmd.Flags().Bool("show-browser", false,
		"Show the browser window (chrome and playwright engines)")

	// Network flags
	cmd.Flags().String("proxy", "",
		"Route traffic through a SOCKS5 proxy (host:port)")
	cmd.Flags().Bool("tor", false,
		"Start an embedded Tor daemon and route traffic through it")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .linkscan in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false, "Output JSON report")
	cmd.Flags().BoolP("markdown", "m", false, "Output Markdown report")
	cmd.Flags().Bool("csv", false, "Output dead links as CSV")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("pages", false,
		"List every fetched page in the text report")
	cmd.Flags().BoolP("quiet", "q", false,
		"Do not print a progress line per page")

	// Archive flags
	cmd.Flags().Bool("no-save", false, "Do not archive the reports")
	cmd.Flags().String("db", "",
		"Archive database: SQLite file path or postgres:// URL (default: XDG data directory)")

	cmd.Flags().Bool("fail-on-dead", false,
		"Exit with status 2 when dead links are found")

	return cmd
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := newLogger(cmd, cfg.Verbose, cfg.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := scanOptions{
		showPages: getBoolFlag(cmd, "pages"),
		quiet:     getBoolFlag(cmd, "quiet"),
		stdout:    cmd.OutOrStdout(),
		stderr:    cmd.ErrOrStderr(),
	}
	return runScan(ctx, cfg, opts, logger)
}

// scanOptions are the output settings of a scan that are not part of Config.
type scanOptions struct {
	showPages bool
	quiet     bool
	stdout    io.Writer
	stderr    io.Writer
}

// buildConfig creates a Config from defaults, the environment and the
// flags the user set, in increasing order of precedence.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	if err := config.LoadEnv(cfg, config.DefaultEnvFile); err != nil {
		return nil, err
	}

	o := &flagOverlay{cmd: cmd}
	o.intVar("workers", &cfg.Workers)
	o.intVar("depth", &cfg.MaxDepth)
	o.intVar("max-pages", &cfg.MaxPages)
	o.durationVar("timeout", &cfg.Timeout)
	o.intVar("batch", &cfg.BatchSize)
	o.stringVar("engine", &cfg.Engine)
	o.intVar("retries", &cfg.Attempts)
	o.durationVar("navigation-delay", &cfg.NavigationDelay)
	o.float64Var("rate", &cfg.Rate)
	o.stringVar("user-agent", &cfg.UserAgent)
	o.boolVar("insecure", &cfg.InsecureTLS)
	o.boolVar("show-browser", &cfg.ShowBrowser)
	o.stringVar("proxy", &cfg.ProxyAddress)
	o.boolVar("tor", &cfg.UseTor)
	o.durationVar("tor-timeout", &cfg.TorStartupTimeout)
	o.stringVar("config", &cfg.ConfigFilePath)
	o.stringVar("db", &cfg.DBDSN)
	o.boolVar("fail-on-dead", &cfg.FailOnDead)
	var noSave bool
	o.boolVar("no-save", &noSave)
	if noSave {
		cfg.SaveToDB = false
	}
	if o.err != nil {
		return nil, o.err
	}

	flags := cmd.Flags()
	var err error
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.CSVReport, err = flags.GetBool("csv"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	// An explicitly named config file must exist; the default search is optional.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}

	cfg.Seeds = args
	return cfg, nil
}

// flagOverlay copies the flags the user set onto config fields, leaving
// fields of unset flags at their default or environment value.
type flagOverlay struct {
	cmd *cobra.Command
	err error
}

func (o *flagOverlay) changed(name string) bool {
	return o.err == nil && o.cmd.Flags().Changed(name)
}

func (o *flagOverlay) intVar(name string, dst *int) {
	if o.changed(name) {
		*dst, o.err = o.cmd.Flags().GetInt(name)
	}
}

func (o *flagOverlay) boolVar(name string, dst *bool) {
	if o.changed(name) {
		*dst, o.err = o.cmd.Flags().GetBool(name)
	}
}

func (o *flagOverlay) stringVar(name string, dst *string) {
	if o.changed(name) {
		*dst, o.err = o.cmd.Flags().GetString(name)
	}
}

func (o *flagOverlay) float64Var(name string, dst *float64) {
	if o.changed(name) {
		*dst, o.err = o.cmd.Flags().GetFloat64(name)
	}
}

func (o *flagOverlay) durationVar(name string, dst *time.Duration) {
	if o.changed(name) {
		*dst, o.err = o.cmd.Flags().GetDuration(name)
	}
}

// runScan crawls every seed and writes one report per seed.
func runScan(ctx context.Context, cfg *config.Config, opts scanOptions, logger *slog.Logger) error {
	if err := checkSeeds(cfg); err != nil {
		return err
	}

	logger.Info("starting scan",
		"seeds", cfg.Seeds,
		"engine", cfg.Engine,
		"workers", cfg.Workers,
		"batch", cfg.BatchSize,
		"save", cfg.SaveToDB,
	)

	netw, err := openNetwork(ctx, cfg, opts.stderr, logger)
	if err != nil {
		return err
	}
	defer netw.close(logger)

	var archive *database.Archive
	if cfg.SaveToDB {
		archive, err = openArchive(ctx, cfg.DBDSN)
		if err != nil {
			return err
		}
		defer archive.Close()
		logger.Info("archive opened", "driver", archive.Driver(), "location", archive.Location())
	}

	output, closeOutput, err := openOutput(cfg.ReportFile, opts.stdout)
	if err != nil {
		return err
	}
	defer closeOutput()
	writer := newReportWriter(cfg, output, opts.showPages)

	var progress *report.Progress
	if !opts.quiet {
		progress = report.NewProgress(opts.stderr)
	}

	bp := pipeline.NewBatchProcessor(
		func(seed string) (*pipeline.Pipeline, error) {
			return buildPipeline(cfg, seed, netw, archive, progress, logger)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	var (
		mu        sync.Mutex
		failed    int
		deadFound bool
	)
	startTime := time.Now()
	bp.ProcessBatchWithCallback(ctx, cfg.Seeds, func(scan *pipeline.Scan, _ int) {
		mu.Lock()
		defer mu.Unlock()

		if scan.Err != nil && !errors.Is(scan.Err, context.Canceled) {
			failed++
			fmt.Fprintf(opts.stderr, "Scan error for %s: %v\n", scan.Seed, scan.Err)
		}
		if scan.Report == nil {
			return
		}
		if scan.HasDeadLinks() {
			deadFound = true
		}
		if _, err := writer.Write(scan.Report); err != nil {
			logger.Error("report failed", "seed", scan.Seed, "error", err)
		}
	})

	logger.Info("scan finished", "elapsed", time.Since(startTime).Round(time.Millisecond))

	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("scan interrupted: %w", ctx.Err())
	case failed > 0:
		return fmt.Errorf("%d of %d scans failed", failed, len(cfg.Seeds))
	case cfg.FailOnDead && deadFound:
		return errDeadLinksFound
	}
	return nil
}

// checkSeeds rejects seeds that cannot be crawled before any work starts.
func checkSeeds(cfg *config.Config) error {
	for _, seed := range cfg.Seeds {
		u, err := urlnorm.Normalize(seed, "")
		if err != nil {
			return fmt.Errorf("%w: %q: %w", crawler.ErrInvalidSeed, seed, err)
		}
		host := urlnorm.Host(u)
		if !transport.IsOnionHost(host) {
			continue
		}
		if err := transport.ValidateOnionHost(host); err != nil {
			return fmt.Errorf("invalid seed %q: %w", seed, err)
		}
		if !cfg.UseTor && cfg.ProxyAddress == "" {
			return fmt.Errorf("seed %q is an onion service: use --tor or --proxy with a Tor proxy", seed)
		}
	}
	return nil
}

// buildPipeline creates the crawl (and archive) pipeline for one seed,
// with the seed's site settings applied.
func buildPipeline(
	cfg *config.Config,
	seed string,
	netw *network,
	archive *database.Archive,
	progress *report.Progress,
	logger *slog.Logger,
) (*pipeline.Pipeline, error) {
	u, err := urlnorm.Normalize(seed, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", crawler.ErrInvalidSeed, seed, err)
	}
	site := cfg.SiteConfigs.GetSiteConfig(urlnorm.Host(u))

	r, err := newRenderer(cfg, site, netw, logger)
	if err != nil {
		return nil, err
	}

	depth := cfg.MaxDepth
	if site.Depth > 0 {
		depth = site.Depth
	}

	stepOpts := []pipeline.CrawlStepOption{
		pipeline.WithCrawlLogger(logger),
		pipeline.WithCrawlerOptions(
			crawler.WithWorkers(cfg.Workers),
			crawler.WithMaxDepth(depth),
			crawler.WithMaxPages(cfg.MaxPages),
			crawler.WithIgnorePatterns(site.IgnorePatterns),
			crawler.WithFollowPatterns(site.FollowPatterns),
		),
	}
	if progress != nil {
		stepOpts = append(stepOpts, pipeline.WithPageCallback(progress.Page))
	}

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddStep(pipeline.NewCrawlStep(r, stepOpts...))
	if archive != nil {
		p.AddStep(pipeline.NewArchiveStep(archive, pipeline.WithArchiveLogger(logger)))
	}
	return p, nil
}

// newRenderer builds the page renderer for one site.
func newRenderer(cfg *config.Config, site config.SiteConfig, netw *network, logger *slog.Logger) (renderer.Renderer, error) {
	rcfg := renderer.Config{
		Engine:          cfg.Engine,
		Timeout:         cfg.Timeout,
		Attempts:        cfg.Attempts,
		NavigationDelay: cfg.NavigationDelay,
		Rate:            cfg.Rate,
		MaxBodySize:     cfg.MaxBodySize,
		ProxyAddress:    netw.proxyAddress(),
		UserAgent:       cfg.UserAgent,
		Cookie:          site.Cookie,
		Headers:         site.Headers,
		InsecureTLS:     cfg.InsecureTLS,
		ShowBrowser:     cfg.ShowBrowser,
		Logger:          logger,
	}

	if cfg.Engine == "" || strings.EqualFold(cfg.Engine, renderer.EngineHTTP) {
		clientOpts := []transport.Option{
			transport.WithTimeout(cfg.Timeout),
			transport.WithUserAgent(cfg.UserAgent),
			transport.WithCookie(site.Cookie),
			transport.WithHeaders(site.Headers),
		}
		if cfg.InsecureTLS {
			clientOpts = append(clientOpts, transport.WithInsecureTLS(true))
		}
		client, err := netw.newClient(clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		rcfg.Client = client
	}

	r, err := renderer.New(rcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s renderer: %w", cfg.Engine, err)
	}
	return r, nil
}

// network decides how connections leave the process: directly, through a
// SOCKS5 proxy, or through an embedded Tor daemon.
type network struct {
	proxy string
	tor   *transport.EmbeddedTor
}

// openNetwork starts the embedded Tor daemon or checks the proxy, as configured.
func openNetwork(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) (*network, error) {
	switch {
	case cfg.UseTor:
		return startEmbeddedTor(ctx, cfg, out, logger)
	case cfg.ProxyAddress != "":
		client, err := transport.NewClient(transport.WithProxy(cfg.ProxyAddress))
		if err != nil {
			return nil, fmt.Errorf("invalid proxy: %w", err)
		}
		if status := client.CheckConnection(ctx); status != transport.ProxyStatusOK {
			return nil, fmt.Errorf("proxy check failed: %s (make sure a SOCKS5 proxy is running at %s)",
				status, cfg.ProxyAddress)
		}
		logger.Info("proxy connection verified", "address", cfg.ProxyAddress)
		return &network{proxy: cfg.ProxyAddress}, nil
	default:
		return &network{}, nil
	}
}

// startEmbeddedTor starts an embedded Tor daemon using tornago.
func startEmbeddedTor(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) (*network, error) {
	fmt.Fprintln(out, "Starting embedded Tor daemon...")
	fmt.Fprintf(out, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	tor := transport.NewEmbeddedTor(transport.WithStartupTimeout(cfg.TorStartupTimeout))
	if err := tor.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}

	logger.Info("embedded Tor daemon started",
		"socksAddr", tor.SocksAddr(),
		"controlAddr", tor.ControlAddr(),
	)

	client, err := tor.NewClient()
	if err == nil {
		if status := client.CheckConnection(ctx); status != transport.ProxyStatusOK {
			err = fmt.Errorf("embedded Tor proxy check failed: %s", status)
		}
	}
	if err != nil {
		_ = tor.Stop() //nolint:errcheck // best effort cleanup
		return nil, err
	}

	fmt.Fprintf(out, "Embedded Tor daemon started (SOCKS proxy: %s)\n\n", tor.SocksAddr())
	return &network{proxy: tor.SocksAddr(), tor: tor}, nil
}

// newClient creates an HTTP transport client that dials the configured way.
func (n *network) newClient(opts ...transport.Option) (*transport.Client, error) {
	if n.tor != nil {
		return n.tor.NewClient(opts...)
	}
	if n.proxy != "" {
		opts = append([]transport.Option{transport.WithProxy(n.proxy)}, opts...)
	}
	return transport.NewClient(opts...)
}

func (n *network) proxyAddress() string {
	return n.proxy
}

func (n *network) close(logger *slog.Logger) {
	if n.tor == nil {
		return
	}
	logger.Info("stopping embedded Tor daemon")
	if err := n.tor.Stop(); err != nil {
		logger.Error("failed to stop embedded Tor", "error", err)
	}
}

// openArchive opens the report archive named by dsn, or the default
// SQLite database in the XDG data directory.
func openArchive(ctx context.Context, dsn string) (*database.Archive, error) {
	if dsn == "" {
		dsn = database.DefaultPath(config.XDGDataDir())
	}
	archive, err := database.Open(ctx, dsn, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return archive, nil
}

// openOutput returns the report destination: path, or stdout when path is empty.
func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports can reveal internal URLs; keep them private to the owner.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-provided path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// newReportWriter selects the report format.
func newReportWriter(cfg *config.Config, output io.Writer, showPages bool) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	case cfg.CSVReport:
		return report.NewCSVWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(showPages))
	}
}
