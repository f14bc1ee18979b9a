// Package pipeline sequences a run: authenticate, fetch inventory, aggregate
// sites, render the reports and export the site map.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"sdwan-sites/internal/report"
	"sdwan-sites/internal/sites"
	"sdwan-sites/pkg/models"
)

var (
	// ErrInventory means the device list could not be fetched.
	ErrInventory = errors.New("failed to get device data")
	// ErrNoSites means the controller returned no devices to group.
	ErrNoSites = errors.New("no devices returned by controller")
)

// Controller is the subset of the controller client a run needs.
type Controller interface {
	Authenticate() error
	GetDevices() ([]models.RawDevice, error)
	GetTlocs() ([]models.RawTloc, error)
}

type Pipeline struct {
	Controller Controller
	Aggregator *sites.Aggregator
	Log        zerolog.Logger
}

type Options struct {
	// OutputPath receives the JSON export.
	OutputPath string
	// MarkdownPath, when set, receives a markdown rendition of the report.
	MarkdownPath string
}

// Collect fetches devices and TLOCs and aggregates them. A TLOC failure is
// logged and the sites are built without network connection details.
func (p *Pipeline) Collect() (*models.SiteMap, error) {
	p.Log.Info().Msg("Getting device data")
	devices, err := p.Controller.GetDevices()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInventory, err)
	}

	p.Log.Info().Msg("Getting TLOC data")
	tlocs, err := p.Controller.GetTlocs()
	if err != nil {
		p.Log.Warn().Err(err).Msg("TLOC data unavailable, continuing without network connections")
		tlocs = nil
	}

	p.Log.Info().Int("devices", len(devices)).Int("tlocs", len(tlocs)).Msg("Processing devices and geocoding locations")
	return p.Aggregator.Aggregate(devices, tlocs), nil
}

// Run performs a full report run, writing console output to out.
func (p *Pipeline) Run(out io.Writer, opts Options) (*models.SiteMap, error) {
	p.Log.Info().Msg("Authenticating")
	if err := p.Controller.Authenticate(); err != nil {
		return nil, err
	}
	p.Log.Info().Msg("Authentication successful")

	siteMap, err := p.Collect()
	if err != nil {
		return nil, err
	}
	if siteMap.Len() == 0 {
		return nil, ErrNoSites
	}

	if err := report.WriteSiteReport(out, siteMap); err != nil {
		return siteMap, fmt.Errorf("write site report: %w", err)
	}
	if err := report.WriteLocationSummary(out, siteMap); err != nil {
		return siteMap, fmt.Errorf("write location summary: %w", err)
	}

	if err := report.ExportJSON(opts.OutputPath, siteMap); err != nil {
		return siteMap, err
	}
	fmt.Fprintf(out, "\nSites with geocoded locations saved to: %s\n", opts.OutputPath)

	if opts.MarkdownPath != "" {
		if err := writeMarkdownFile(opts.MarkdownPath, siteMap); err != nil {
			return siteMap, err
		}
		fmt.Fprintf(out, "Markdown report saved to: %s\n", opts.MarkdownPath)
	}

	if err := report.WriteUsageGuide(out); err != nil {
		return siteMap, fmt.Errorf("write usage guide: %w", err)
	}

	return siteMap, nil
}

func writeMarkdownFile(path string, siteMap *models.SiteMap) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	if err := report.WriteMarkdown(f, siteMap); err != nil {
		return fmt.Errorf("write markdown report: %w", err)
	}
	return nil
}
