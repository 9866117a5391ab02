// Package main runs the chain relay gateway: it republishes engine events on
// the bus and answers block, transaction and account requests.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	zmqbus "github.com/goodnatureofminers/chainrelay7000-backend/internal/bus/zmq"
	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/bitcoin"
	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/repository/clickhouse"
	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/service"
	"github.com/goodnatureofminers/chainrelay7000-backend/internal/metrics"
)

type config struct {
	ClickhouseDSN    string        `long:"clickhouse-dsn" env:"GATEWAY_CLICKHOUSE_DSN" description:"ClickHouse DSN of the output index"`
	Network          string        `long:"network" env:"GATEWAY_NETWORK" description:"network name" default:"mainnet"`
	RPCURL           string        `long:"rpc-url" env:"GATEWAY_RPC_URL" description:"engine RPC URL" default:"http://127.0.0.1:8332"`
	RPCUser          string        `long:"rpc-user" env:"GATEWAY_RPC_USER" description:"engine RPC username"`
	RPCPassword      string        `long:"rpc-password" env:"GATEWAY_RPC_PASSWORD" description:"engine RPC password"`
	NodeZMQAddr      string        `long:"node-zmq-addr" env:"GATEWAY_NODE_ZMQ_ADDR" description:"engine ZMQ publisher address"`
	PubAddr          string        `long:"pub-addr" env:"GATEWAY_PUB_ADDR" description:"bus publish bind address" default:"tcp://*:28332"`
	SubAddr          string        `long:"sub-addr" env:"GATEWAY_SUB_ADDR" description:"bus request bind address" default:"tcp://*:28333"`
	TemplateInterval time.Duration `long:"template-interval" env:"GATEWAY_TEMPLATE_INTERVAL" description:"mining template poll interval" default:"10s"`
	AccountRPS       int           `long:"account-rps" env:"GATEWAY_ACCOUNT_RPS" description:"account requests per second, 0 disables the throttle" default:"10"`
	MetricsAddr      string        `long:"metrics-addr" env:"GATEWAY_METRICS_ADDR" description:"address for metrics server" default:":2112"`
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if cfg.ClickhouseDSN == "" {
		logger.Fatal("ClickHouse DSN is required")
	}
	if cfg.NodeZMQAddr == "" {
		logger.Fatal("engine ZMQ address is required")
	}

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("gateway failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	startMetricsServer(ctx, cfg.MetricsAddr, logger)

	store, err := clickhouse.NewRepository(cfg.ClickhouseDSN, cfg.Network, metrics.NewRepository(cfg.Network))
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	decoder, err := bitcoin.NewScriptDecoder(cfg.Network)
	if err != nil {
		return fmt.Errorf("init script decoder: %w", err)
	}

	rpcConn, err := newRPCClient(cfg.RPCURL, cfg.RPCUser, cfg.RPCPassword)
	if err != nil {
		return fmt.Errorf("init rpc client: %w", err)
	}
	defer func() {
		rpcConn.Shutdown()
		rpcConn.WaitForShutdown()
	}()
	rpc := bitcoin.NewRPCClient(rpcConn, metrics.NewRPCClient(cfg.Network))
	engine := bitcoin.NewEngine(rpc, decoder, logger)

	sessionCfg := zmqbus.DefaultConfig()
	sessionCfg.PubAddr = cfg.PubAddr
	sessionCfg.SubAddr = cfg.SubAddr
	session, err := zmqbus.NewSession(sessionCfg, logger, metrics.NewBus())
	if err != nil {
		return fmt.Errorf("init bus session: %w", err)
	}
	defer func() {
		_ = session.Close()
	}()

	gatewayMetrics := metrics.NewGateway()
	router := service.NewFilterRouter(session, logger, gatewayMetrics)
	gateway, err := service.NewGateway(session, router, logger, gatewayMetrics)
	if err != nil {
		return fmt.Errorf("init gateway: %w", err)
	}

	responder := service.NewResponder(
		store,
		engine,
		session,
		service.NewReconstructor(logger),
		service.ResponderConfig{AccountRequestRPS: cfg.AccountRPS},
		logger,
		metrics.NewResponder(),
	)
	if err := responder.Register(ctx); err != nil {
		return fmt.Errorf("register responder: %w", err)
	}
	session.Start(ctx)

	listener, err := bitcoin.NewListener(
		bitcoin.ListenerConfig{Addr: cfg.NodeZMQAddr},
		decoder,
		gateway,
		logger,
	)
	if err != nil {
		return fmt.Errorf("init engine listener: %w", err)
	}
	poller := bitcoin.NewTemplatePoller(rpc, decoder, gateway, logger, cfg.TemplateInterval)

	errCh := make(chan error, 2)
	go func() {
		errCh <- listener.Run(ctx)
	}()
	go func() {
		errCh <- poller.Run(ctx)
	}()

	logger.Info("gateway started",
		zap.String("network", cfg.Network),
		zap.String("pub_addr", cfg.PubAddr),
		zap.String("sub_addr", cfg.SubAddr))

	return <-errCh
}

func startMetricsServer(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           cors.Default().Handler(mux),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("starting metrics server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", zap.Error(err))
		}
	}()
}

func newRPCClient(rawURL, user, password string) (*rpcclient.Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse rpc url: %w", err)
	}
	if parsed.Scheme != "http" {
		return nil, fmt.Errorf("rpc url scheme %q not supported, use http", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("rpc url missing host")
	}

	cfg := &rpcclient.ConnConfig{
		Host:         parsed.Host,
		User:         user,
		Pass:         password,
		HTTPPostMode: true,
		DisableTLS:   true,
	}
	return rpcclient.New(cfg, nil)
}
