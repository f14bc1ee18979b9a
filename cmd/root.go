package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sdwan-sites/internal/config"
	"sdwan-sites/internal/logger"
)

var cfgFile string
var jsonOutput bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sdwan-sites",
	Short: "Build an SD-WAN site inventory with geocoded locations",
	Long: `Reads the device inventory and TLOC state from an SD-WAN controller,
groups devices into sites by site-id, and resolves each site's GPS
coordinates into a street address.

Credentials come from flags, the config file or SDWAN_* environment variables.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sdwan-sites.yaml)")
	pf.BoolVar(&jsonOutput, "json", false, "Output results as JSON")

	pf.String("base-url", "", "Controller base URL (e.g. https://vmanage.example.com)")
	pf.StringP("username", "u", "", "Controller username")
	pf.StringP("password", "p", "", "Controller password (prefer SDWAN_PASSWORD)")
	pf.Bool("insecure", true, "Skip TLS verification of the controller certificate")
	pf.Duration("request-timeout", 30*time.Second, "Controller request timeout")

	pf.String("geocode-url", "https://nominatim.openstreetmap.org/reverse", "Reverse geocoding endpoint")
	pf.Duration("geocode-timeout", 10*time.Second, "Reverse geocoding request timeout")
	pf.Duration("geocode-delay", time.Second, "Pause after every geocoding request")
	pf.String("user-agent", "SD-WAN-Location-Mapper/1.0", "User-Agent sent to the geocoding service")

	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.Bool("debug", false, "Enable debug logging")

	bindFlags(rootCmd, map[string]string{
		config.KeyBaseURL:        "base-url",
		config.KeyUsername:       "username",
		config.KeyPassword:       "password",
		config.KeyInsecure:       "insecure",
		config.KeyRequestTimeout: "request-timeout",
		config.KeyGeocodeURL:     "geocode-url",
		config.KeyGeocodeTimeout: "geocode-timeout",
		config.KeyGeocodeDelay:   "geocode-delay",
		config.KeyUserAgent:      "user-agent",
		config.KeyLogLevel:       "log-level",
		config.KeyDebug:          "debug",
	})
}

func initConfig() {
	config.InitConfig(cfgFile)

	if err := logger.Init(logger.Config{
		Level:   viper.GetString(config.KeyLogLevel),
		Debug:   viper.GetBool(config.KeyDebug),
		Console: true,
	}); err != nil {
		fmt.Printf("Error: invalid log level: %v\n", err)
		os.Exit(1)
	}
}

// bindFlags maps viper keys to the persistent or local flags of cmd. It panics
// on a flag that was never defined, which can only be a programming error.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		f := cmd.PersistentFlags().Lookup(name)
		if f == nil {
			f = cmd.Flags().Lookup(name)
		}
		if f == nil {
			panic(fmt.Sprintf("bind %s: command %q has no flag --%s", key, cmd.Name(), name))
		}
		if err := viper.BindPFlag(key, f); err != nil {
			panic(fmt.Sprintf("bind %s: %v", key, err))
		}
	}
}

// loadSettings resolves the configuration or exits like the other commands do.
func loadSettings() config.Settings {
	s, err := config.Load()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	return s
}
