package main

import (
	"context"
	"fmt"
	"net"

	"github.com/desertthunder/songbook/internal/server"
	"github.com/desertthunder/songbook/internal/shared"
	"github.com/desertthunder/songbook/internal/web"
	"github.com/urfave/cli/v3"
)

var openBrowser = shared.OpenBrowser

// Serve runs the browser UI until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}

	lib, done, err := r.library(r.logger)
	if err != nil {
		return err
	}
	defer done()

	app, err := web.New(web.Options{
		Library: lib,
		BaseURL: r.config.Catalog.BaseURL,
		Logger:  r.logger,
	})
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Addr(), err)
	}

	url := fmt.Sprintf("http://%s/songs", browsable(ln.Addr()))
	r.writePlain("Serving songbook at %s (Ctrl+C to stop)\n", url)

	if cmd.Bool("open") {
		if err := openBrowser(url); err != nil {
			r.logger.Warn("failed to open browser", "url", url, "error", err)
		}
	}

	return server.New(cfg.Addr(), app.Handler(), r.logger).Serve(ctx, ln)
}

// browsable swaps a wildcard listen host for localhost.
func browsable(addr net.Addr) string {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok || tcp.IP == nil || tcp.IP.IsUnspecified() {
		if ok {
			return fmt.Sprintf("localhost:%d", tcp.Port)
		}
		return addr.String()
	}
	return tcp.String()
}
