package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
	"go.uber.org/zap"

	"github.com/phishfinder/phishfinder/internal/adapters/source"
	"github.com/phishfinder/phishfinder/internal/allowlist"
	"github.com/phishfinder/phishfinder/internal/analysis"
	"github.com/phishfinder/phishfinder/internal/config"
	"github.com/phishfinder/phishfinder/internal/factory"
	"github.com/phishfinder/phishfinder/internal/logging"
)

var (
	// Reputation flags
	reputationProvider = flag.String("reputation", "disabled", "Reputation provider (safebrowsing, disabled)")
	safebrowsingKey    = flag.String("safebrowsing-api-key", "", "API key for Google Safe Browsing")

	// Authentication flags
	dnsLookups = flag.Bool("dns-lookups", false, "Enable DKIM verification and DMARC policy DNS lookups")
	dnsServer  = flag.String("dns-server", "", "Explicit DNS resolver (host:port)")

	// Detector flags
	detectorProvider = flag.String("detector", "disabled", "AI content detector (winston, openai, gemini, disabled)")
	winstonAPIKey    = flag.String("winston-api-key", "", "API key for Winston AI")
	openaiAPIKey     = flag.String("openai-api-key", "", "API key for OpenAI")
	openaiModelName  = flag.String("openai-model", "gpt-4o-mini", "OpenAI model name")
	geminiAPIKey     = flag.String("gemini-api-key", "", "API key for Google Gemini")
	geminiModelName  = flag.String("gemini-model", "gemini-1.5-flash", "Gemini model name")

	// Policy flags
	allowedDomains = flag.String("allowed-domains", "", "Comma-separated bulk-mail domains that suppress keyword caution")

	// Input flags
	inputFile  = flag.String("file", "", "Input email file (use stdin if not specified)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
	configFile = flag.String("config", "", "Path to config file (overrides command line flags)")
)

func main() {
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var cfg *config.Config
	if *configFile != "" {
		cfg, err = config.New()
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
	} else {
		cfg = createConfigFromFlags()
	}

	policy, err := factory.BuildPolicy(cfg)
	if err != nil {
		logger.Fatal("Failed to build risk policy", zap.Error(err))
	}

	reputation, err := factory.NewReputationFactory(cfg, logger).CreateReputationClient()
	if err != nil {
		logger.Fatal("Failed to create reputation client", zap.Error(err))
	}
	authenticator, err := factory.NewAuthFactory(cfg, logger).CreateAuthenticator()
	if err != nil {
		logger.Fatal("Failed to create authenticator", zap.Error(err))
	}
	detector, err := factory.NewDetectorFactory(cfg, logger).CreateContentDetector()
	if err != nil {
		logger.Fatal("Failed to create content detector", zap.Error(err))
	}
	history, err := factory.NewHistoryFactory(cfg, logger).CreateHistoryRepository()
	if err != nil {
		logger.Fatal("Failed to create history store", zap.Error(err))
	}

	checker := allowlist.NewChecker(cfg.GetStringSlice("policy.allowed_bulk_domains"), logger)
	service := analysis.NewService(
		analysis.NewSanitizer(logger),
		analysis.NewKeywordScanner(cfg.GetStringSlice("policy.keywords")),
		analysis.NewLinkAnalyzer(logger),
		analysis.NewAggregator(policy, checker),
		reputation,
		authenticator,
		history,
		detector,
		logger,
		analysis.ServiceOptions{DetectorMaxBody: cfg.GetInt("detector.max_body_size")},
	)

	var emailReader io.Reader
	if *inputFile != "" {
		file, err := os.Open(*inputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", *inputFile))
		}
		defer file.Close()
		emailReader = file
		logger.Info("Reading email from file", zap.String("file", *inputFile))
	} else {
		emailReader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	env, err := enmime.ReadEnvelope(bufio.NewReader(emailReader))
	if err != nil {
		logger.Fatal("Failed to parse email", zap.Error(err))
	}
	email := source.NormalizeEnvelope(env)

	fmt.Printf("\n=== Email Summary ===\n")
	fmt.Printf("Message-Id: %s\n", email.ID)
	fmt.Printf("From: %s\n", email.Sender.Address)
	fmt.Printf("Subject: %s\n", email.Subject)
	fmt.Printf("Body length: %d bytes\n", len(email.BodyPlainText)+len(email.BodyHTML))

	startTime := time.Now()
	result, err := service.AnalyzeEmail(context.Background(), email)
	if err != nil {
		logger.Fatal("Failed to analyze email", zap.Error(err))
	}
	duration := time.Since(startTime)

	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Risk level: %s\n", result.RiskLevel)
	fmt.Printf("Contributing signals: %v\n", result.ContributingSignals)
	fmt.Printf("Matched keywords: %v\n", result.MatchedKeywords)
	fmt.Printf("Links found: %d\n", len(result.Links))
	for _, link := range result.Links {
		fmt.Printf("  %s (ip=%t shortener=%t mismatch=%t unusual=%t)\n",
			link.TargetURL, link.IsIPLiteral, link.IsShortener, link.HasMismatch, link.HasUnusualHost)
	}
	fmt.Printf("Reputation matches: %d\n", len(result.ReputationMatches))
	fmt.Printf("Authentication: spf=%s dkim=%s dmarc=%s policy=%s\n",
		result.Authentication.SPF, result.Authentication.DKIM,
		result.Authentication.DMARC, result.Authentication.DMARCPolicy)
	if result.AIContentScore >= 0 {
		fmt.Printf("AI content score: %.4f\n", result.AIContentScore)
	}
	fmt.Printf("Processing time: %v\n", duration)

	if closer, ok := detector.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close content detector", zap.Error(err))
		}
	}
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	v.Set("history.type", "memory")

	v.Set("reputation.provider", *reputationProvider)
	v.Set("safebrowsing.api_key", *safebrowsingKey)

	v.Set("auth.dns_lookups", *dnsLookups)
	v.Set("auth.dns_server", *dnsServer)

	v.Set("detector.provider", *detectorProvider)
	switch *detectorProvider {
	case "winston":
		v.Set("winston.api_key", *winstonAPIKey)
	case "openai":
		v.Set("openai.api_key", *openaiAPIKey)
		v.Set("openai.model_name", *openaiModelName)
	case "gemini":
		v.Set("gemini.api_key", *geminiAPIKey)
		v.Set("gemini.model_name", *geminiModelName)
	}

	if *allowedDomains != "" {
		domains := strings.Split(*allowedDomains, ",")
		for i, domain := range domains {
			domains[i] = strings.TrimSpace(domain)
		}
		v.Set("policy.allowed_bulk_domains", domains)
	}

	return config.NewFromViper(v)
}
