package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lanonasis/mcp-gateway/auth"
	"github.com/lanonasis/mcp-gateway/broker"
	brokermemory "github.com/lanonasis/mcp-gateway/broker/memory"
	brokerredis "github.com/lanonasis/mcp-gateway/broker/redis"
	"github.com/lanonasis/mcp-gateway/config"
	"github.com/lanonasis/mcp-gateway/gatewayhttp"
	"github.com/lanonasis/mcp-gateway/gatewayws"
	"github.com/lanonasis/mcp-gateway/internal/connhub"
	"github.com/lanonasis/mcp-gateway/internal/logctx"
	"github.com/lanonasis/mcp-gateway/memoryapi"
	"github.com/lanonasis/mcp-gateway/oauth"
	"github.com/lanonasis/mcp-gateway/storage"
	storagememory "github.com/lanonasis/mcp-gateway/storage/memory"
	storageredis "github.com/lanonasis/mcp-gateway/storage/redis"
	"github.com/lanonasis/mcp-gateway/tools"
)

const (
	codeStoreMaxItems = 4096
	shutdownGrace     = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the gateway over HTTP, WebSocket and SSE",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// gateway holds the wired component graph shared by the serve and
// stdio commands.
type gateway struct {
	cfg        *config.Config
	log        *slog.Logger
	dispatcher *tools.Dispatcher
	resolver   *auth.Resolver
	oauthH     *oauth.Handler
	events     broker.Broker
	hub        *connhub.Hub
	closers    []func() error
}

func (g *gateway) close() {
	for i := len(g.closers) - 1; i >= 0; i-- {
		if err := g.closers[i](); err != nil {
			g.log.Warn("close failed", slog.String("err", err.Error()))
		}
	}
}

// buildGateway loads configuration and wires every component. It fails
// fast: a missing secret or unreachable dependency aborts startup
// before any listener binds.
func buildGateway(log *slog.Logger) (*gateway, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	g := &gateway{cfg: cfg, log: log}

	issuer, err := oauth.NewIssuer(cfg.TokenSigningSecret, cfg.BaseURL, cfg.TokenAudience)
	if err != nil {
		return nil, fmt.Errorf("failed to build token issuer: %w", err)
	}

	var (
		codeStorage storage.Storage
		events      broker.Broker
	)
	if cfg.RedisURL != "" {
		redisOpts, err := goredis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		client := goredis.NewClient(redisOpts)
		g.closers = append(g.closers, client.Close)

		codeStorage, err = storageredis.New(storageredis.Config{Client: client})
		if err != nil {
			return nil, err
		}
		events, err = brokerredis.New(brokerredis.Config{Client: client})
		if err != nil {
			return nil, err
		}
	} else {
		codeStorage, err = storagememory.New(codeStoreMaxItems)
		if err != nil {
			return nil, err
		}
		events = brokermemory.New()
	}
	g.closers = append(g.closers, codeStorage.Close, events.Close)
	g.events = events

	clients := oauth.NewClientRegistry(&oauth.Client{
		ID:                  cfg.OAuthClientID,
		Secret:              cfg.OAuthClientSecret,
		AllowedRedirectURIs: cfg.RedirectURIs(),
	})
	codes := oauth.NewCodeStore(codeStorage, cfg.CodeTTL)
	server := oauth.NewServer(clients, codes, issuer,
		oauth.WithLogger(log),
		oauth.WithBaseURL(cfg.BaseURL),
	)
	g.oauthH = oauth.NewHandler(server, log)

	api, err := memoryapi.NewClient(cfg.MemoryAPIURL, cfg.MemoryAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build memory API client: %w", err)
	}

	registry, err := tools.NewRegistry(memoryapi.Tools(api)...)
	if err != nil {
		return nil, fmt.Errorf("failed to build tool registry: %w", err)
	}
	g.dispatcher = tools.NewDispatcher(registry, log)

	g.resolver = auth.NewResolver(issuer,
		auth.WithVendorKeyVerifier(api),
		auth.WithResolverLogger(log),
	)
	g.hub = connhub.New(log)

	return g, nil
}

func runServe(ctx context.Context) error {
	log := slog.New(logctx.NewHandler(newLogger(os.Stderr).Handler()))
	slog.SetDefault(log)

	g, err := buildGateway(log)
	if err != nil {
		log.Error("startup failed", slog.String("err", err.Error()))
		return err
	}
	defer g.close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpHandler := gatewayhttp.New(gatewayhttp.Config{
		Dispatcher: g.dispatcher,
		Resolver:   g.resolver,
		Events:     g.events,
		Hub:        g.hub,
		OAuth:      g.oauthH,
		Logger:     log,
	})
	wsHandler := gatewayws.New(gatewayws.Config{
		Dispatcher: g.dispatcher,
		Resolver:   g.resolver,
		Hub:        g.hub,
		Logger:     log,
	})

	mux := http.NewServeMux()
	mux.Handle("GET /ws", wsHandler)
	mux.Handle("/", httpHandler)

	srv := &http.Server{
		Addr:              g.cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return g.hub.Run(egCtx, g.events)
	})
	eg.Go(func() error {
		log.Info("listening", slog.String("addr", g.cfg.ListenAddr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutdown complete")
	return nil
}
