package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/tray"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func serveCommand(c *cli) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session API, live feed and metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				c.settings.Server.Addr = addr
			}

			ctx, stop := signalContext()
			defer stop()

			svc, err := openServices(ctx, c.settings)
			if err != nil {
				return err
			}
			defer svc.Close()

			srv := svc.newServer(c.settings)
			defer srv.Close()

			return srv.ListenAndServe(ctx, c.settings.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func runCommand(c *cli) *cobra.Command {
	var (
		withTray bool
		noServer bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Recognize gestures from the local camera",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("tray") {
				c.settings.Tray.Enabled = withTray
			}

			ctx, stop := signalContext()
			defer stop()

			svc, err := openServices(ctx, c.settings)
			if err != nil {
				return err
			}
			defer svc.Close()

			a, err := app.New(app.Config{
				Gesture:    c.settings.Gesture,
				Camera:     c.settings.Camera,
				Detector:   c.settings.Detector,
				Store:      svc.store,
				Dispatcher: svc.dispatcher,
				Metrics:    svc.metrics,
			})
			if err != nil {
				return err
			}
			if err := a.Start(); err != nil {
				return fmt.Errorf("start pipeline: %w", err)
			}
			defer a.Stop()

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			errc := make(chan error, 1)
			if !noServer {
				srv := svc.newServer(c.settings)
				defer srv.Close()
				go func() {
					errc <- srv.ListenAndServe(ctx, c.settings.Server.Addr)
					cancel()
				}()
			}

			if c.settings.Tray.Enabled {
				t := tray.New(a.IsEnabled())
				t.OnToggle(a.SetEnabled)
				t.OnReset(a.Reset)
				t.OnQuit(cancel)
				svc.dispatcher.Register(t)

				go func() {
					<-ctx.Done()
					t.Quit()
				}()
				// The tray owns the main thread until it quits.
				t.Run()
				cancel()
			}

			<-ctx.Done()
			if !noServer {
				if err := <-errc; err != nil {
					return err
				}
			}
			slog.Info("shutting down")
			return nil
		},
	}
	cmd.Flags().BoolVar(&withTray, "tray", false, "show the system tray indicator (overrides tray.enabled)")
	cmd.Flags().BoolVar(&noServer, "no-server", false, "do not start the HTTP server")
	return cmd
}

func configCommand(c *cli) *cobra.Command {
	var defaults bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				out []byte
				err error
			)
			if defaults {
				out, err = config.DefaultYAML()
			} else {
				out, err = config.Encode(c.settings)
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().BoolVar(&defaults, "defaults", false, "print the built-in defaults instead")
	return cmd
}
