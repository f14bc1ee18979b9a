package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sdwan-sites/internal/report"
	"sdwan-sites/pkg/models"
)

var sitesFile string

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List sites from a saved JSON export",
	Long: `Reads a site map written by 'report' and lists each site with its
classification, device count and resolved location. No controller or
geocoding requests are made.`,
	Example: `  sdwan-sites sites --file sdwan_sites_geocoded.json`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := listSites(os.Stdout, sitesFile, jsonOutput); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

// listSites prints the export at path as a table, or re-encodes it when asJSON is set.
func listSites(w io.Writer, path string, asJSON bool) error {
	sites, err := report.LoadJSON(path)
	if err != nil {
		return fmt.Errorf("loading sites: %w", err)
	}

	// --- JSON OUTPUT ---
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(sites); err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		return nil
	}
	// -------------------

	if sites.Len() == 0 {
		_, err := fmt.Fprintln(w, "No sites found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "SITE\tTYPE\tDEVICES\tONLINE\tLOCATION")
	fmt.Fprintln(tw, "----\t----\t-------\t------\t--------")

	sites.Each(func(key string, site *models.Site) {
		online := 0
		for _, d := range site.Devices {
			if d.Reachable() {
				online++
			}
		}

		location := "-"
		if site.GeocodedLocation != nil {
			location = site.GeocodedLocation.FormattedAddress
		}

		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			key,
			site.SiteType,
			len(site.Devices),
			online,
			location,
		)
	})
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(sitesCmd)
	sitesCmd.Flags().StringVarP(&sitesFile, "file", "f", "sdwan_sites_geocoded.json", "JSON export to read")
}
