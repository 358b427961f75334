package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"cambridge-collector/internal/collect"
	"cambridge-collector/internal/config"
	"cambridge-collector/internal/index"
	"cambridge-collector/internal/portal"
	"cambridge-collector/internal/search"
	"cambridge-collector/internal/sku"
	"cambridge-collector/internal/types"
	"cambridge-collector/utils"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	// Parse command line flags
	var (
		inputFlag   = flag.String("input", "", "Input records file (JSON array)")
		outputFlag  = flag.String("output", "", "Output file path")
		configFlag  = flag.String("config", "", "Config file path (default: ./config.yaml if present)")
		modeFlag    = flag.String("mode", "", "Processing mode: skip or overwrite")
		startFlag   = flag.Int("start", -1, "First record index to process (0-based, inclusive)")
		endFlag     = flag.Int("end", -1, "Record index to stop at (exclusive)")
		rebuildFlag = flag.Bool("rebuild-index", false, "Rebuild the product indexes even if cached")
		catalogFlag = flag.Bool("catalog", false, "Use prebuilt index caches only, never crawl")
		httpOnly    = flag.Bool("http-only", false, "Use HTTP requests only (disable headless browser)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	// Setup logging
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		if level, err := logrus.ParseLevel(levelStr); err == nil {
			logger.SetLevel(level)
		}
	} else if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Flags override file and environment settings
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.InputFile = *inputFlag
		case "output":
			cfg.OutputFile = *outputFlag
		case "mode":
			cfg.ProcessingMode = *modeFlag
		case "start":
			cfg.StartRecord = *startFlag
		case "end":
			cfg.EndRecord = *endFlag
		case "rebuild-index":
			cfg.RebuildIndex = *rebuildFlag
		case "http-only":
			if *httpOnly {
				cfg.UseHeadlessBrowser = false
			}
		}
	})

	if err := config.Validate(cfg); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpClient := utils.NewHTTPClient(cfg, logger)
	defer httpClient.Close()

	var fetcher collect.PublicFetcher = httpClient
	if cfg.UseHeadlessBrowser {
		fetcher = &browserFetcher{client: utils.NewBrowserClient(cfg, logger)}
	}

	// Portal collection runs only with credentials; the run degrades to
	// public-only data without them.
	var portalClient *portal.Client
	if config.HasPortalCredentials(cfg) {
		portalClient = portal.NewClient(cfg, logger)
		defer portalClient.Close()
	} else {
		logger.Warn("No portal credentials configured, collecting public data only")
	}

	publicIndex, err := loadOrBuildPublicIndex(ctx, cfg, httpClient, logger, *catalogFlag)
	if err != nil {
		logger.Fatalf("Failed to prepare public index: %v", err)
	}

	var portalFinder collect.URLFinder
	if portalClient != nil {
		portalIndex, err := loadOrBuildPortalIndex(ctx, cfg, httpClient, portalClient, logger, *catalogFlag)
		if err != nil {
			logger.Fatalf("Failed to prepare portal index: %v", err)
		}
		portalFinder = search.NewPortalSearcher(cfg, portalIndex, logger)
	}

	skus, err := sku.NewGenerator(cfg.SKURegistryFile)
	if err != nil {
		logger.Fatalf("Failed to open SKU registry: %v", err)
	}

	publicFinder := search.NewSearcher(cfg, publicIndex, httpClient, logger)

	var portalFetcher collect.PortalFetcher
	if portalClient != nil {
		portalFetcher = portalClient
	}
	collector := collect.NewCollector(cfg, logger, publicFinder, portalFinder, fetcher, portalFetcher, skus)

	// First interrupt stops cooperatively, second one kills the run.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Warn("Interrupt received, finishing current family...")
		collector.Stop()
		<-sigs
		cancel()
	}()

	summary, err := collector.Run(ctx)
	if err != nil {
		logger.Fatalf("Run failed: %v", err)
	}

	logger.Infof("Families: %d total, %d success, %d skipped, %d failed",
		summary.TotalFamilies, summary.Success, summary.Skipped, summary.Failed)
	logger.Infof("Variants: %d success, %d skipped, %d failed",
		summary.VariantSuccess, summary.VariantSkipped, summary.VariantFailed)
	if summary.WarningFamilies > 0 {
		logger.Warnf("%d families produced warnings, see the run report", summary.WarningFamilies)
	}
}

// loadOrBuildPublicIndex returns a usable public index: the cache when
// fresh, otherwise a new crawl. Catalog mode never crawls and fails if no
// cache exists.
func loadOrBuildPublicIndex(ctx context.Context, cfg *types.Config, fetcher index.Fetcher, logger types.Logger, catalogOnly bool) (*types.ProductIndex, error) {
	idx, err := index.LoadCache(cfg.IndexCacheFile)
	if err != nil {
		logger.Warnf("Failed to load index cache: %v", err)
	}

	needsBuild := cfg.RebuildIndex || index.Stale(idx, cfg.IndexMaxAgeDays)
	if !needsBuild {
		logger.Infof("Using cached public index (%d products)", idx.TotalProducts)
		return idx, nil
	}
	if catalogOnly {
		if idx == nil {
			return nil, os.ErrNotExist
		}
		logger.Warnf("Public index cache is stale, using it anyway (catalog mode)")
		return idx, nil
	}

	idx = index.NewBuilder(cfg, fetcher, logger).BuildPublic(ctx)
	if err := index.SaveCache(cfg.IndexCacheFile, idx); err != nil {
		logger.Warnf("Failed to save index cache: %v", err)
	}
	return idx, nil
}

func loadOrBuildPortalIndex(ctx context.Context, cfg *types.Config, fetcher index.Fetcher, client *portal.Client, logger types.Logger, catalogOnly bool) (*types.ProductIndex, error) {
	idx, err := index.LoadCache(cfg.PortalCacheFile)
	if err != nil {
		logger.Warnf("Failed to load portal index cache: %v", err)
	}

	needsBuild := cfg.RebuildIndex || index.Stale(idx, cfg.IndexMaxAgeDays)
	if !needsBuild {
		logger.Infof("Using cached portal index (%d products)", idx.TotalProducts)
		return idx, nil
	}
	if catalogOnly {
		if idx == nil {
			return nil, os.ErrNotExist
		}
		logger.Warnf("Portal index cache is stale, using it anyway (catalog mode)")
		return idx, nil
	}

	idx = index.NewBuilder(cfg, fetcher, logger).BuildPortal(ctx, client)
	if err := index.SaveCache(cfg.PortalCacheFile, idx); err != nil {
		logger.Warnf("Failed to save portal index cache: %v", err)
	}
	return idx, nil
}

// browserFetcher adapts the headless browser client to the fetcher
// interface used for public pages.
type browserFetcher struct {
	client *utils.BrowserClient
}

func (b *browserFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	content, err := b.client.GetPageContent(ctx, url)
	if err != nil {
		return nil, err
	}
	return []byte(content), nil
}
