package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-mapbox/internal/config"
	"github.com/joeblew999/plat-mapbox/internal/logging"
	"github.com/joeblew999/plat-mapbox/internal/server"
	"github.com/joeblew999/plat-mapbox/internal/templates"
)

// Options defines all CLI flags and env vars for the map server.
// Flags: --host, --port, --data-dir, --config, --log-level, --dev
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_CONFIG, SERVICE_LOG_LEVEL, SERVICE_DEV
type Options struct {
	Host     string `doc:"Host to bind to" default:"0.0.0.0"`
	Port     int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir  string `doc:"Directory for visibility state and the duckdb database" default:".data"`
	Config   string `doc:"Page configuration YAML file" short:"c" default:"mapbox.yaml"`
	LogLevel string `doc:"Log level (overrides log.level in the config file)"`
	Dev      bool   `doc:"Re-read the page template on every /map request"`
}

func loadPage(opts *Options) (*config.Config, zerolog.Logger, error) {
	page, err := config.Load(opts.Config)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	level := page.Log.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	return page, logging.New(level), nil
}

func serverConfig(opts *Options, page *config.Config, logger zerolog.Logger) server.Config {
	return server.Config{
		Host:    opts.Host,
		Port:    fmt.Sprintf("%d", opts.Port),
		DataDir: opts.DataDir,
		Page:    page,
		Logger:  logger,

		ReloadTemplates: opts.Dev,
	}
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		var srv *server.Server

		hooks.OnStart(func() {
			page, logger, err := loadPage(opts)
			if err != nil {
				fatal("Error loading config", err)
			}
			srv, err = server.New(context.Background(), serverConfig(opts, page, logger))
			if err != nil {
				fatal("Error building map", err)
			}

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-mapbox server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Config:  %s\n", opts.Config)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Println()
			fmt.Printf("  Map:     %s/map\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			if err := http.ListenAndServe(addr, srv); err != nil {
				logger.Fatal().Err(err).Msg("server error")
			}
		})

		hooks.OnStop(func() {
			if srv != nil {
				srv.Close()
			}
		})
	})

	cli.Root().Use = "mapbox"
	cli.Root().Short = "Mapbox maps with layer group toggle controls"
	cli.Root().Version = "0.1.0"

	// render subcommand: write a self-contained HTML page
	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Render the map to a static HTML file",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			page, logger, err := loadPage(opts)
			if err != nil {
				fatal("Error loading config", err)
			}
			if out, _ := cmd.Flags().GetString("output"); out != "" {
				page.Output = out
			}

			built, err := server.BuildStyle(context.Background(), page, opts.DataDir, logger)
			if err != nil {
				fatal("Error building map", err)
			}
			token, err := server.AccessToken(page)
			if err != nil {
				fatal("Error reading access token", err)
			}
			data, err := server.NewPageData(page, token, built.Style, built.Policy)
			if err != nil {
				fatal("Error preparing page", err)
			}
			renderer, err := templates.New(page.Template)
			if err != nil {
				fatal("Error loading template", err)
			}
			if err := renderer.WritePage(page.Output, data); err != nil {
				fatal("Error writing page", err)
			}
			fmt.Printf("Map written to %s (%d features, %d layers)\n",
				page.Output, built.Features, len(built.Style.Layers))
		}),
	}
	renderCmd.Flags().StringP("output", "o", "", "Output HTML file (overrides output in the config file)")
	cli.Root().AddCommand(renderCmd)

	// init subcommand: write a starter config
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default page configuration",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			if _, err := os.Stat(opts.Config); err == nil {
				fatal("Error writing config", fmt.Errorf("%s already exists", opts.Config))
			}
			if err := config.Save(opts.Config, config.DefaultConfig()); err != nil {
				fatal("Error writing config", err)
			}
			fmt.Printf("Config written to %s\n", opts.Config)
		}),
	}
	cli.Root().AddCommand(initCmd)

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv, err := server.ForSpec(server.Config{
				Host:   opts.Host,
				Port:   fmt.Sprintf("%d", opts.Port),
				Logger: zerolog.Nop(),
			})
			if err != nil {
				fatal("Error creating server", err)
			}
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fatal("Error marshaling spec", err)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	cli.Run()
}
