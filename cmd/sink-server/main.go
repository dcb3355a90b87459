package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/juju/loggo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"download-sink/internal/channel"
	"download-sink/internal/config"
	grpcServer "download-sink/internal/grpc"
	"download-sink/internal/handlers"
	"download-sink/internal/metrics"
	"download-sink/internal/redis"
	"download-sink/internal/registry"
	"download-sink/internal/sink"
)

var logger = loggo.GetLogger("sink.server")

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		httpPort string
		grpcPort string
		strategy string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:           "sink-server",
		Short:         "Serve the saveToDownloads method channel over HTTP and gRPC",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("http-port") {
				cfg.HTTP.Port = httpPort
			}
			if cmd.Flags().Changed("grpc-port") {
				cfg.GRPC.Port = grpcPort
			}
			if cmd.Flags().Changed("strategy") {
				cfg.Sink.Strategy = strategy
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			if err := loggo.ConfigureLoggers(fmt.Sprintf("<root>=%s", cfg.LogLevel)); err != nil {
				return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
			}
			err = serve(cfg)
			if err != nil {
				logger.Errorf("%v", err)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&httpPort, "http-port", "", "HTTP listen port (overrides HTTP_PORT)")
	cmd.Flags().StringVar(&grpcPort, "grpc-port", "", "gRPC listen port (overrides GRPC_PORT)")
	cmd.Flags().StringVar(&strategy, "strategy", "", "storage strategy: auto, registry or direct (overrides SINK_STRATEGY)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	return cmd
}

func serve(cfg *config.Config) error {
	downloads, closer, err := buildSink(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()
	logger.Infof("using %s storage strategy (host level %d)", downloads.Strategy(), cfg.Sink.HostLevel)

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ch := channel.NewDownloads(downloads, metrics.New(promRegistry))

	// Initialize gRPC server
	server := grpcServer.NewServer(cfg.GRPC.Port, ch)

	// Setup HTTP server for the channel, read-back and metrics
	router := handlers.NewRouter(
		handlers.NewChannelHandler(ch),
		handlers.NewDownloadsHandler(downloads),
		promRegistry,
	)

	// Setup pprof endpoints
	router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)

	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTP.Port,
		Handler: router,
	}

	errCh := make(chan error, 2)

	// Start HTTP server
	go func() {
		logger.Infof("HTTP server starting on port %s", cfg.HTTP.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	// Start gRPC server
	go func() {
		if err := server.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var runErr error
wait:
	for {
		select {
		case sig := <-quit:
			if sig == syscall.SIGQUIT {
				dumpGoroutines("sink-server")
				continue
			}
			break wait
		case runErr = <-errCh:
			break wait
		}
	}

	logger.Infof("shutting down servers")
	server.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Errorf("HTTP server shutdown error: %v", err)
	}

	logger.Infof("servers exited")
	return runErr
}

// buildSink selects the storage strategy once and wires its backend. The
// returned closer releases the backend connection.
func buildSink(cfg *config.Config) (sink.DownloadSink, io.Closer, error) {
	strategy, err := sink.ParseStrategy(cfg.Sink.Strategy)
	if err != nil {
		return nil, nil, err
	}

	opts := sink.Options{
		Strategy:     strategy,
		HostLevel:    cfg.Sink.HostLevel,
		DownloadsDir: cfg.Sink.DownloadsDir,
		Subdir:       cfg.Sink.Subdir,
		MimeType:     cfg.Sink.MimeType,
	}

	var closer io.Closer = nopCloser{}
	if strategy.Resolve(cfg.Sink.HostLevel) == sink.StrategyRegistry {
		switch cfg.Registry.Backend {
		case "memory":
			opts.Registry = registry.NewMemory()
		default:
			client, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password)
			if err != nil {
				return nil, nil, err
			}
			opts.Registry = client
			closer = client
		}
	}

	downloads, err := sink.New(opts)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return downloads, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// dumpGoroutines writes a goroutine dump to a file, falling back to stderr
func dumpGoroutines(serverName string) {
	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("goroutine-dump-%s-%s.txt", serverName, timestamp)

	file, err := os.Create(filename)
	if err != nil {
		logger.Warningf("failed to create goroutine dump file: %v", err)
		fmt.Fprintf(os.Stderr, "\n=== Goroutine Dump for %s at %s ===\n", serverName, time.Now().Format(time.RFC3339))
		pprof.Lookup("goroutine").WriteTo(os.Stderr, 2)
		return
	}
	defer file.Close()

	fmt.Fprintf(file, "=== Goroutine Dump for %s at %s ===\n", serverName, time.Now().Format(time.RFC3339))
	fmt.Fprintf(file, "Total goroutines: %d\n\n", runtime.NumGoroutine())
	pprof.Lookup("goroutine").WriteTo(file, 2)

	logger.Infof("goroutine dump written to %s", filename)
}
