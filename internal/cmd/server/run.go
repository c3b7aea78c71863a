package serverrun

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	cfgpkg "github.com/rzbill/filings/internal/config"
	"github.com/rzbill/filings/internal/runtime"
	grpcserver "github.com/rzbill/filings/internal/server/grpc"
	httpserver "github.com/rzbill/filings/internal/server/http"
	pebblestore "github.com/rzbill/filings/internal/storage/pebble"
	logpkg "github.com/rzbill/filings/pkg/log"
)

type Options struct {
	DataDir  string
	GRPCAddr string
	HTTPAddr string
	Fsync    pebblestore.FsyncMode
	Config   cfgpkg.Config
	// Logger defaults to one built from Config.Log.
	Logger logpkg.Logger
	// OnReady, when set, is called with the bound addresses once both
	// listeners are open.
	OnReady func(httpAddr, grpcAddr string)
}

// Run opens the runtime, starts the dispatcher and both servers, and blocks
// until ctx is cancelled or a signal arrives.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}

	procLogger := opts.Logger
	if procLogger == nil {
		var err error
		procLogger, err = logpkg.ApplyConfig(&opts.Config.Log)
		if err != nil {
			return errors.Wrap(err, "build logger")
		}
	}
	// Pebble and database/sql log through the standard library logger.
	logpkg.RedirectStdLog(procLogger)

	rt, err := runtime.Open(runtime.Options{
		DataDir: opts.DataDir,
		Fsync:   opts.Fsync,
		Config:  opts.Config,
		Logger:  procLogger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil {
			procLogger.Error("close runtime", logpkg.Err(cerr))
		}
	}()

	hl, err := net.Listen("tcp", opts.HTTPAddr)
	if err != nil {
		return errors.Wrapf(err, "listen http %s", opts.HTTPAddr)
	}
	gl, err := net.Listen("tcp", opts.GRPCAddr)
	if err != nil {
		_ = hl.Close()
		return errors.Wrapf(err, "listen grpc %s", opts.GRPCAddr)
	}

	procLogger.Info("starting filings server",
		logpkg.Str("data_dir", opts.DataDir),
		logpkg.Str("http", hl.Addr().String()),
		logpkg.Str("grpc", gl.Addr().String()),
		logpkg.Str("counter_backend", opts.Config.IDs.CounterBackend),
		logpkg.Str("level", opts.Config.Log.Level),
	)

	hsrv := httpserver.New(rt, procLogger)
	gsrv := grpcserver.New(rt, procLogger)

	g, gctx := errgroup.WithContext(sctx)
	g.Go(func() error { return rt.Run(gctx) })
	g.Go(func() error { return hsrv.Serve(gctx, hl) })
	g.Go(func() error { return gsrv.Serve(gctx, gl) })

	if opts.OnReady != nil {
		opts.OnReady(hl.Addr().String(), gl.Addr().String())
	}

	err = g.Wait()
	procLogger.Info("filings server stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
