package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/kardianos/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sdwan-sites/internal/client"
	"sdwan-sites/internal/config"
	"sdwan-sites/internal/logger"
	"sdwan-sites/internal/metrics"
	"sdwan-sites/internal/pipeline"
	"sdwan-sites/pkg/models"
)

var serviceAction string // "install", "uninstall", "start", "stop"

// --- SERVICE WRAPPER ---

// program implements the kardianos/service interface
type program struct {
	settings config.Settings
	log      zerolog.Logger
	pipe     *pipeline.Pipeline
	server   *http.Server
}

func (p *program) Start(s service.Service) error {
	// Everything Stop touches is built here, before the serving goroutine starts.
	registry := prometheus.NewRegistry()
	p.pipe = pipeline.New(p.settings, p.log, registry)

	registry.MustRegister(&metrics.SiteCollector{
		Scrape: scrapeWithRelogin(p.pipe),
		Log:    p.log,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorLog: log.Default(),
	}))

	p.server = &http.Server{
		Addr:              fmt.Sprintf(":%s", p.settings.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start should not block. Do the actual work async.
	go p.run()
	return nil
}

func (p *program) run() {
	p.log.Info().Str("controller", p.settings.BaseURL).Msg("Attempting initial login")
	if err := p.pipe.Controller.Authenticate(); err != nil {
		// Scrapes retry the login, so a failure here is not fatal.
		p.log.Error().Err(err).Msg("Initial login failed")
	}

	p.log.Info().Str("addr", p.server.Addr).Msg("SD-WAN site exporter listening")

	if err := p.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		p.log.Error().Err(err).Msg("HTTP server error")
	}
}

func (p *program) Stop(s service.Service) error {
	// Stop should not block. Signal the app to stop.
	p.log.Info().Msg("Stopping service")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if p.server == nil {
		return nil
	}
	if err := p.server.Shutdown(ctx); err != nil {
		p.log.Warn().Err(err).Msg("Server forced to shutdown")
	}
	return nil
}

// scrapeWithRelogin collects the inventory, logging in again once when the
// controller session has expired.
func scrapeWithRelogin(p *pipeline.Pipeline) func() (*models.SiteMap, error) {
	return func() (*models.SiteMap, error) {
		sites, err := p.Collect()
		if err == nil {
			return sites, nil
		}
		if isAuthError(err) {
			if e := p.Controller.Authenticate(); e == nil {
				return p.Collect()
			}
		}
		return nil, err
	}
}

func isAuthError(err error) bool {
	var se *client.StatusError
	return errors.As(err, &se) && se.Unauthorized()
}

// --- COMMAND ---

var exporterCmd = &cobra.Command{
	Use:   "exporter",
	Short: "Start Prometheus exporter for the site inventory",
	Long: `Starts a long-running HTTP server that exposes site, device and TLOC
metrics on /metrics. Each scrape refreshes the inventory; geocoded
addresses are cached for the lifetime of the process.
Can be installed as a system service.`,
	Run: func(cmd *cobra.Command, args []string) {
		var s config.Settings
		if serviceAction == "" || serviceAction == "install" {
			s = loadSettings()
		}

		// Arguments passed to the binary when run as a service. The password
		// is left to the environment or config file.
		svcArgs := []string{"exporter", "--port", viper.GetString(config.KeyMetricsPort)}
		if used := viper.ConfigFileUsed(); used != "" {
			svcArgs = append(svcArgs, "--config", used)
		}

		svcConfig := &service.Config{
			Name:        "sdwan-sites-exporter",
			DisplayName: "SD-WAN Site Inventory Exporter",
			Description: "Exposes SD-WAN site inventory metrics to Prometheus",
			Arguments:   svcArgs,
		}

		prg := &program{
			settings: s,
			log:      logger.WithComponent("exporter"),
		}

		svc, err := service.New(prg, svcConfig)
		if err != nil {
			log.Fatal(err)
		}

		// Handle Service Control Actions (Install, Start, Stop, Uninstall)
		if serviceAction != "" {
			if err := service.Control(svc, serviceAction); err != nil {
				log.Fatalf("Failed to %s service: %v", serviceAction, err)
			}
			fmt.Printf("Service action '%s' completed successfully.\n", serviceAction)
			return
		}

		// Run the Service (Blocking)
		svcLogger, err := svc.Logger(nil)
		if err != nil {
			log.Fatal(err)
		}
		if err = svc.Run(); err != nil {
			_ = svcLogger.Error(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(exporterCmd)
	exporterCmd.Flags().String("port", "9101", "Port to listen on")
	exporterCmd.Flags().StringVar(&serviceAction, "service", "", "Service action: install, uninstall, start, stop")

	bindFlags(exporterCmd, map[string]string{
		config.KeyMetricsPort: "port",
	})
}
