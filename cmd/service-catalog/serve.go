package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ritzau/service-catalog/pkg/config"
	"github.com/ritzau/service-catalog/pkg/logging"
	"github.com/ritzau/service-catalog/pkg/source"
	"github.com/ritzau/service-catalog/pkg/store"
	"github.com/ritzau/service-catalog/pkg/watcher"
	"github.com/ritzau/service-catalog/pkg/web"
)

const (
	watchQuietPeriod = 300 * time.Millisecond
	watchMaxWait     = 2 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the catalog HTTP server",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.Int("port", 8080, "Port for the HTTP server")
	f.Bool("watch", false, "Reload the metadata file when it changes")
	f.Bool("seed-store", false, "Seed the catalog store from the loaded metadata")
	f.String("cors-origin", "*", "Access-Control-Allow-Origin value; empty disables CORS")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logging.New("serve")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader, err := newLoader(ctx, cfg)
	if err != nil {
		return err
	}

	st := store.New()
	if cfg.SeedStore {
		n := st.Seed(loader.Services())
		log.Info("seeded catalog store", "count", n)
	}

	server := web.NewServer(st, loader,
		web.WithCORSOrigin(cfg.CORSOrigin),
		web.WithTopN(cfg.Top),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(ctx, cfg.Port)
	})
	if cfg.Watch {
		g.Go(func() error {
			return watchMetadata(ctx, loader)
		})
	}
	return g.Wait()
}

func newLoader(ctx context.Context, cfg *config.Config) (*source.Loader, error) {
	opts := []source.Option{source.WithTimeout(cfg.FetchTimeout)}
	if cfg.MetadataFile != "" {
		opts = append(opts, source.WithFile(cfg.MetadataFile))
	}
	if cfg.MetadataURL != "" {
		opts = append(opts, source.WithURL(cfg.MetadataURL))
	}

	loader, err := source.New(opts...)
	if err != nil {
		return nil, err
	}
	if err := loader.Load(ctx); err != nil {
		return nil, err
	}
	return loader, nil
}

// watchMetadata reloads the metadata file after it settles. A removed file
// leaves the current dataset in place until it is written again.
func watchMetadata(ctx context.Context, loader *source.Loader) error {
	log := logging.New("watch")

	fw, err := watcher.NewFileWatcher(loader.File())
	if err != nil {
		return err
	}
	fw.Start(ctx)

	debouncer := watcher.NewDebouncer(fw.Events(), watchQuietPeriod, watchMaxWait)
	debouncer.Start(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-debouncer.Output():
			if !ok {
				return nil
			}
			analysis := watcher.AnalyzeChanges(event)
			switch {
			case analysis.FileRemoved:
				log.Warn("metadata file removed, keeping current dataset", "files", analysis.ChangedFiles)
			case analysis.NeedReload:
				if err := loader.ReloadFile(); err != nil {
					log.Error("reload failed", "error", err)
				}
			}
		}
	}
}
