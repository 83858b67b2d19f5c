package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/clipinski/animal-service/internal/animal"
	"github.com/clipinski/animal-service/internal/api"
	"github.com/clipinski/animal-service/internal/config"
	"github.com/clipinski/animal-service/internal/guard"
	"github.com/clipinski/animal-service/internal/logging"
	"github.com/clipinski/animal-service/internal/server"
)

// Options are the command line flags. Non-zero values override the
// configuration file and the environment.
type Options struct {
	Config     string `short:"f" long:"config" description:"configuration YAML path or URL"`
	Host       string `long:"host" description:"listen host"`
	Port       int    `short:"p" long:"port" description:"listen port"`
	AcceptPool int    `short:"n" long:"accept-pool" description:"number of outstanding accept operations"`
	LogLevel   string `long:"log-level" description:"debug, info, warn or error"`
	NetHTTP    bool   `long:"net-http" description:"serve with net/http instead of the accept-pool server"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts := &Options{}
	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(stdout, err)
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	logger := logging.New(cfg.Log, stderr)

	dispatcher, err := newDispatcher(logger)
	if err != nil {
		logger.Error("failed to register routes", "err", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if waitForEnter(stdin) {
			cancel()
		}
	}()

	if opts.NetHTTP {
		fmt.Fprintf(stdout, "Serving with net/http on %s. Press Enter to stop.\n", cfg.ServerAddress())
		if err := server.StartHTTPServer(ctx, cfg, dispatcher, logger); err != nil {
			logger.Error("net/http server failed", "err", err)
			return 1
		}
		return 0
	}

	srv := server.New(cfg.Server, dispatcher, logger)
	if err := srv.Start(ctx); err != nil {
		logger.Error("failed to start server", "err", err)
		return 1
	}
	fmt.Fprintf(stdout, "Listening on %s. Press Enter to stop.\n", srv.Addr())

	select {
	case <-ctx.Done():
	case <-srv.Done():
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Server.GracePeriod+time.Second)
	defer stopCancel()
	if err := srv.Stop(stopCtx); err != nil {
		logger.Error("shutdown did not complete", "err", err)
		return 1
	}
	return 0
}

func loadConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(context.Background(), opts.Config)
	if err != nil {
		return nil, err
	}
	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	if opts.Port != 0 {
		cfg.Server.Port = opts.Port
	}
	if opts.AcceptPool != 0 {
		cfg.Server.AcceptPool = opts.AcceptPool
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return cfg, nil
}

// newDispatcher wires the animal collection and its routes.
func newDispatcher(logger *slog.Logger) (*api.Dispatcher, error) {
	router := api.NewRouter()
	animals := guard.New(animal.Seed())
	if err := animal.NewHandlers(animals).Register(router); err != nil {
		return nil, err
	}
	for _, r := range router.Routes() {
		logger.Debug("route registered", "method", r.Method, "route", "/"+r.Route)
	}
	return api.NewDispatcher(router, logger), nil
}

// waitForEnter blocks until a line arrives on r. It reports false when r
// ends without input, so a detached stdin never triggers a shutdown.
func waitForEnter(r io.Reader) bool {
	line, err := bufio.NewReader(r).ReadString('\n')
	return err == nil || line != ""
}
