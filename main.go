package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"atomrouter/controllers"
	"atomrouter/services"
	"atomrouter/utils"

	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

var (
	portFlag      string
	envFileFlag   string
	enableDiscord bool
)

var rootCmd = &cobra.Command{
	Use:   "atomrouter",
	Short: "Chat intent router for text, PDF and chart requests",
	Long: `atomrouter answers chat messages through a hosted or a local LLM provider.

Requests asking to generate a PDF or a chart are turned into downloadable
artifacts; everything else is returned as a conversational answer.`,
	SilenceUsage: true,
	RunE:         runServer,
}

func init() {
	rootCmd.Flags().StringVar(&portFlag, "port", "", "Port to listen on (overrides PORT)")
	rootCmd.Flags().StringVar(&envFileFlag, "env-file", "", "Load only this .env file instead of the standard locations")
	rootCmd.Flags().BoolVar(&enableDiscord, "discord", false, "Start the Discord bot frontend")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := utils.LoadEnvWithFallback(envFileFlag); err != nil {
		return err
	}

	cfg, err := utils.LoadConfig()
	if err != nil {
		return err
	}
	if portFlag != "" {
		cfg.Port = portFlag
	}

	logCloser, err := utils.InitLogging(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	store, err := services.NewArtifactStore(cfg.FilesDir)
	if err != nil {
		return err
	}

	httpClient := services.NewHTTPClient(cfg.ProviderTimeout)
	gateway := services.NewProviderGateway(
		services.NewChatGPTService(cfg.OpenAI, httpClient),
		services.NewLocalLLMService(cfg.LocalLLM, httpClient),
	)
	router := services.NewRouter(
		gateway,
		services.NewDocumentRenderer(),
		services.NewChartRenderer(),
		store,
		cfg.PublicBaseURL,
	)

	var discordService *services.DiscordService
	if enableDiscord {
		discordService = services.NewDiscordService(cfg.Discord, router, store)
	}

	controller := controllers.NewController(router, store, gateway, discordService, version)

	addr := cfg.Port
	if !strings.HasPrefix(addr, ":") {
		addr = ":" + addr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           withCORS(controller.Routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server starting", "addr", addr, "files_dir", store.Dir(), "public_url", cfg.PublicBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return controller.StartServices(enableDiscord)
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := controller.StopServices(); err != nil {
			slog.Error("failed to stop background services", "error", err)
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// withCORS accepts any origin, echoing it back so credentialed requests work
func withCORS(h http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowOriginFunc:  func(string) bool { return true },
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodHead, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(h)
}
