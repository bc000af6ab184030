// Command dictv manages a bilingual English/German dictionary store and
// serves lookups over HTTP.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/sagerenn/dictv/internal/catalog"
	"github.com/sagerenn/dictv/internal/config"
	"github.com/sagerenn/dictv/internal/httpx"
	"github.com/sagerenn/dictv/internal/manager"
	"github.com/sagerenn/dictv/internal/observability"
	"github.com/sagerenn/dictv/internal/search"
	"github.com/sagerenn/dictv/internal/service"
)

func main() {
	app := &cli.App{
		Name:  "dictv",
		Usage: "English/German dictionary lookup service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "base-dir",
				Usage: "dictionary store directory (default ~/.dictv)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug, info, warn, error)",
				Value: "info",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			importCommand(),
			rebuildCommand(),
			queryCommand(),
			statsCommand(),
			sourcesCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "dictv:", err)
		os.Exit(1)
	}
}

func newManager(c *cli.Context, log *observability.Logger) (*manager.Manager, error) {
	baseDir := c.String("base-dir")
	if baseDir == "" {
		var err error
		if baseDir, err = manager.DefaultBaseDir(); err != nil {
			return nil, err
		}
	}
	return manager.New(baseDir, log)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve lookups over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to JSON config",
			},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Default()
			if path := c.String("config"); path != "" {
				var err error
				if cfg, err = config.Load(path); err != nil {
					return err
				}
			}
			if dir := c.String("base-dir"); dir != "" {
				cfg.BaseDir = dir
			}
			if cfg.BaseDir == "" {
				var err error
				if cfg.BaseDir, err = manager.DefaultBaseDir(); err != nil {
					return err
				}
			}

			log := observability.New(cfg.Log.Level)
			mgr, err := manager.New(cfg.BaseDir, log)
			if err != nil {
				return err
			}

			svc := service.New(mgr, cfg.Cache.Size, cfg.Cache.TTL)
			if err := svc.Reload(); err != nil {
				// The server still answers /health and /stats; searches
				// return 503 until an import succeeds.
				log.Warn("no index loaded", "error", err)
			}

			srv := &http.Server{
				Addr:         cfg.Listen,
				Handler:      httpx.NewRouter(svc, log),
				ReadTimeout:  cfg.ReadTimeout,
				WriteTimeout: cfg.WriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("server listening", "addr", cfg.Listen)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			shutdown := make(chan os.Signal, 1)
			signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case <-shutdown:
			}

			ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(ctx)
			log.Info("server stopped")
			return nil
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "import a dictionary into the store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "download",
				Usage: "download and import the named catalog source",
			},
			&cli.StringFlag{
				Name:  "dict",
				Usage: "local .dict.dz or .dict file",
			},
			&cli.StringFlag{
				Name:  "index",
				Usage: "local .index file",
			},
			&cli.StringFlag{
				Name:  "stardict",
				Usage: "local stardict .ifo file",
			},
			&cli.StringFlag{
				Name:  "lang",
				Usage: "language direction (en-de or de-en)",
			},
		},
		Action: func(c *cli.Context) error {
			log := observability.New(c.String("log-level"))
			mgr, err := newManager(c, log)
			if err != nil {
				return err
			}

			var n int
			switch {
			case c.String("download") != "":
				n, err = mgr.ImportArchive(c.String("download"))
			case c.String("stardict") != "":
				n, err = mgr.ImportStardict(c.String("stardict"), c.String("lang"))
			case c.String("dict") != "" && c.String("index") != "":
				n, err = mgr.ImportLocal(c.String("dict"), c.String("index"), c.String("lang"))
			default:
				return fmt.Errorf("specify --download NAME, --stardict IFO, or --dict and --index")
			}
			if err != nil {
				return err
			}
			fmt.Printf("imported %d entries\n", n)
			return nil
		},
	}
}

func rebuildCommand() *cli.Command {
	return &cli.Command{
		Name:  "rebuild",
		Usage: "rebuild the index from all imported sources",
		Action: func(c *cli.Context) error {
			log := observability.New(c.String("log-level"))
			mgr, err := newManager(c, log)
			if err != nil {
				return err
			}
			return mgr.Rebuild()
		},
	}
}

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "run a query against the index",
		ArgsUsage: "QUERY",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "mode",
				Usage: "retrieval mode (exact, fuzzy, prefix)",
				Value: "fuzzy",
			},
			&cli.StringFlag{
				Name:  "lang",
				Usage: "language direction (en-de or de-en)",
				Value: "de-en",
			},
			&cli.IntFlag{
				Name:  "max-distance",
				Usage: "maximum edit distance for fuzzy queries",
				Value: search.MaxDistance,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "maximum number of results",
				Value: 20,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one QUERY argument")
			}
			mode, err := search.ParseMode(c.String("mode"))
			if err != nil {
				return err
			}
			lang, err := search.ParseLanguage(c.String("lang"))
			if err != nil {
				return err
			}

			log := observability.New("error")
			mgr, err := newManager(c, log)
			if err != nil {
				return err
			}
			svc := service.New(mgr, 1, time.Second)
			if err := svc.Reload(); err != nil {
				return err
			}

			results, err := svc.Search(c.Args().First(), mode, lang, c.Int("max-distance"), c.Int("limit"))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "print index statistics",
		Action: func(c *cli.Context) error {
			log := observability.New("error")
			mgr, err := newManager(c, log)
			if err != nil {
				return err
			}
			stats, err := mgr.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("total entries:    %d\n", stats.TotalEntries)
			fmt.Printf("en-de entries:    %d\n", stats.ByLanguage["en-de"])
			fmt.Printf("de-en entries:    %d\n", stats.ByLanguage["de-en"])
			fmt.Printf("index size bytes: %d\n", stats.IndexSizeBytes)
			return nil
		},
	}
}

func sourcesCommand() *cli.Command {
	return &cli.Command{
		Name:  "sources",
		Usage: "manage the source catalog",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list known sources",
				Action: func(c *cli.Context) error {
					cat, err := openCatalog(c)
					if err != nil {
						return err
					}
					defer cat.Close()
					sources, err := cat.List()
					if err != nil {
						return err
					}
					for _, s := range sources {
						status := "never imported"
						if s.LastStatus != nil {
							status = *s.LastStatus
							if s.LastImport != nil {
								status += " at " + time.Unix(*s.LastImport, 0).UTC().Format(time.RFC3339)
							}
							if s.LastError != nil {
								status += ": " + *s.LastError
							}
						}
						fmt.Printf("%s\t%s\t%d entries\t%s\n\t%s\n", s.Name, s.Language, s.EntryCount, status, s.URL)
					}
					return nil
				},
			},
			{
				Name:      "set-url",
				Usage:     "override the download URL for a source",
				ArgsUsage: "NAME URL",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return fmt.Errorf("expected NAME and URL arguments")
					}
					cat, err := openCatalog(c)
					if err != nil {
						return err
					}
					defer cat.Close()
					return cat.SetURL(c.Args().Get(0), c.Args().Get(1))
				},
			},
		},
	}
}

func openCatalog(c *cli.Context) (*catalog.DB, error) {
	log := observability.New("error")
	mgr, err := newManager(c, log)
	if err != nil {
		return nil, err
	}
	return catalog.Open(mgr.CatalogPath())
}
