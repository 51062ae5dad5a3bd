package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"stormlightlabs.org/rankcore/internal/alias"
	"stormlightlabs.org/rankcore/internal/api"
	"stormlightlabs.org/rankcore/internal/cache"
	"stormlightlabs.org/rankcore/internal/echo"
	"stormlightlabs.org/rankcore/internal/middleware"
	"stormlightlabs.org/rankcore/internal/repository"
)

// baseURL is the local default target for the fetch/health CLI helpers.
const baseURL string = "http://localhost:8080/v1/"

// ServerCmd creates the server command group.
func ServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Server operations",
		Long:  "Start and manage the rankcore API server.",
	}

	cmd.AddCommand(ServerStartCmd())
	cmd.AddCommand(ServerFetchCmd())
	cmd.AddCommand(ServerHealthCmd())
	cmd.AddCommand(ServerAuthCmd())
	return cmd
}

// ServerStartCmd creates the start command.
func ServerStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the API server",
		Long:  "Start the rankcore API HTTP server.",
		RunE:  startServer,
	}

	cmd.Flags().Bool("debug", false, "Enable debug mode (disables operator-token auth)")
	return cmd
}

// ServerFetchCmd creates the server fetch command.
func ServerFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch [path]",
		Short: "Test API endpoints",
		Long: `cURL-like tool for testing API endpoints with formatted output.

Path should be relative to /v1/ (e.g., 'rankings/u14/Male' or 'teams/<id>').`,
		Args: cobra.ExactArgs(1),
		RunE: fetchEndpoint,
	}

	cmd.Flags().BoolP("raw", "r", false, "Output raw JSON without a header (suitable for piping to jq)")
	cmd.Flags().StringP("token", "t", "", "Operator bearer token for authenticated routes")
	return cmd
}

// ServerHealthCmd creates the health command.
func ServerHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Long:  "Perform a health check on the running API server.",
		RunE:  checkHealth,
	}
}

// ServerAuthCmd creates the auth command.
func ServerAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Get operator authentication instructions",
		Long:  "Display instructions for authenticating as the review operator.",
		RunE:  authInstructions,
	}
}

func fetchEndpoint(cmd *cobra.Command, args []string) error {
	path := args[0]
	raw, _ := cmd.Flags().GetBool("raw")
	token, _ := cmd.Flags().GetString("token")

	url := baseURL + path

	if !raw {
		echo.Header("API Test")
		echo.Infof("Fetching: %s", url)
		echo.Info("")
	}

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return fmt.Errorf("error: failed to create request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("error: %w", err)
	}
	defer resp.Body.Close()

	if !raw {
		echo.Infof("Status: %s", resp.Status)
		echo.Info("")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error: failed to read response: %w", err)
	}

	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, body, "", "  "); err != nil {
		fmt.Println(string(body))
	} else if raw {
		fmt.Println(prettyJSON.String())
	} else {
		echo.Info(prettyJSON.String())
		echo.Info("")
		echo.Successf("✓ Request completed (%d bytes)", len(body))
	}
	return nil
}

func checkHealth(cmd *cobra.Command, args []string) error {
	echo.Header("Health Check")

	serverURL := "http://localhost:8080/v1/health"
	echo.Infof("Checking: %s", serverURL)
	echo.Info("")

	resp, err := http.Get(serverURL)
	if err != nil {
		return fmt.Errorf("error: server is not running or unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("error: server returned status: %s", resp.Status)
	}

	echo.Successf("✓ Server is healthy (Status: %s)", resp.Status)
	return nil
}

func authInstructions(cmd *cobra.Command, args []string) error {
	echo.Header("Operator Authentication")
	echo.Info("")
	echo.Info("Review-mutation endpoints (/v1/review/{id}/approve, /reject, /requeue)")
	echo.Info("require a single operator bearer token, minted via GitHub OAuth.")
	echo.Info("")
	echo.Info("Step 1: Log in")
	echo.Info("  Visit: http://localhost:8080/v1/auth/github")
	echo.Info("")
	echo.Info("Step 2: Use the saved token")
	echo.Info("  The token is written to $HOME/.rankcore/operator-token.json")
	echo.Info("  Start the server with RANKCORE_OPERATOR_TOKEN set to that token, then:")
	echo.Info("  curl -H 'Authorization: Bearer <token>' http://localhost:8080/v1/review/1/approve -X POST")
	echo.Info("")
	echo.Success("✓ For local development, start the server with --debug to disable the gate")
	echo.Infof("  rankcore server start --debug")
	echo.Info("")
	return nil
}

func startServer(cmd *cobra.Command, args []string) error {
	echo.Header("Starting Server")
	echo.Info("Loading configuration...")

	cfg, err := loadConfigForCmd(cmd)
	if err != nil {
		return fmt.Errorf("error: failed to load config: %w", err)
	}

	debugMode, _ := cmd.Flags().GetBool("debug")
	if debugMode {
		cfg.Server.DebugMode = true
	}
	if cfg.Server.DebugMode {
		echo.Info("⚠ Debug mode enabled - operator-token auth disabled")
	}

	echo.Info("Connecting to database...")
	database, err := connectToDB(cmd)
	if err != nil {
		return fmt.Errorf("error: %w", err)
	}
	defer database.Close()
	echo.Success("✓ Connected to database")

	echo.Info("Connecting to Redis...")
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("error: failed to parse Redis URL: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	if _, err := redisClient.Ping(cmd.Context()).Result(); err != nil {
		echo.Infof("⚠ Redis connection failed: %v", err)
		echo.Info("  Caching and rate limiting will be disabled")
		redisClient = nil
	} else {
		echo.Success("✓ Connected to Redis")
	}

	cacheClient := cache.NewClient(redisClient, cache.Config{
		App:     "rankcore",
		Env:     envName(cfg.Server.DebugMode),
		Version: cfg.Cache.Version,
		Enabled: redisClient != nil,
		TTLs: cache.TTLConfig{
			Entity:   time.Duration(cfg.Cache.TTLs.Entity) * time.Second,
			List:     time.Duration(cfg.Cache.TTLs.List) * time.Second,
			Search:   time.Duration(cfg.Cache.TTLs.Search) * time.Second,
			Upstream: time.Duration(cfg.Cache.TTLs.Upstream) * time.Second,
			Negative: time.Duration(cfg.Cache.TTLs.Negative) * time.Second,
		},
	})

	aliasRepo := repository.NewAliasRepository(database.DB)
	refreshEvery := cfg.Matching.ConnectionRefreshInterval
	if refreshEvery <= 0 {
		refreshEvery = 1000
	}
	aliasCache := alias.New(aliasRepo, refreshEvery, database.Refresh)
	aliasCache.SetConfidenceCeiling(cfg.Matching.FuzzyConfidenceCeiling)

	operatorToken := os.Getenv("RANKCORE_OPERATOR_TOKEN")
	if cfg.Server.DebugMode {
		operatorToken = ""
	}

	server := api.NewServer(database.DB, cacheClient, aliasCache, operatorToken)

	timeFmt := time.DateTime
	if cfg.Server.DebugMode {
		timeFmt = time.Kitchen
	}
	logger := log.NewWithOptions(cmd.OutOrStdout(), log.Options{
		ReportTimestamp: true,
		TimeFormat:      timeFmt,
		Prefix:          "rankcore",
		ReportCaller:    cfg.Server.DebugMode,
	})

	rateLimiter := middleware.NewRateLimiter(redisClient, cfg.Server.DebugMode, 120, 30, time.Minute)

	var handler http.Handler = server
	handler = middleware.Logger(logger)(handler)

	if !cfg.Server.DebugMode && redisClient != nil {
		handler = rateLimiter.Middleware(handler)
		echo.Info("✓ Rate limiting enabled")
	} else {
		echo.Info("⚠ Rate limiting disabled (debug mode or Redis unavailable)")
	}

	echo.Info("✓ Request logging enabled")

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	echo.Success(fmt.Sprintf("✓ Server starting on %s", addr))
	if !cfg.Server.DebugMode {
		echo.Info("✓ Operator auth enabled")
		echo.Info("  GitHub OAuth: /v1/auth/github")
	}
	echo.Info("Press Ctrl+C to stop")
	echo.Info("")
	return http.ListenAndServe(addr, handler)
}

func envName(debug bool) string {
	if debug {
		return "dev"
	}
	return "prod"
}
