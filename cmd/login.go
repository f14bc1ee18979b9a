package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"sdwan-sites/internal/client"
	"sdwan-sites/internal/config"
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Verify controller credentials and save the profile",
	Long: `Logs in with the provided credentials and fetches the XSRF token to
confirm access, then saves the controller URL and username to the config file
so later commands only need the password (flag or SDWAN_PASSWORD).

The password is never written to disk.`,
	Example: `  sdwan-sites login --base-url https://vmanage.example.com -u admin -p secret`,
	Run: func(cmd *cobra.Command, args []string) {
		s := loadSettings()

		fmt.Printf("Authenticating against %s as user '%s'...\n", s.BaseURL, s.Username)

		api := client.New(client.ClientConfig{
			BaseURL:  s.BaseURL,
			Username: s.Username,
			Password: s.Password,
			Insecure: s.Insecure,
			Timeout:  s.RequestTimeout,
		})

		if err := api.Authenticate(); err != nil {
			log.Fatalf("Fatal: Login failed: %v", err)
		}

		fmt.Println("Login successful. Saving configuration...")

		if err := config.SaveProfile(s.BaseURL, s.Username); err != nil {
			log.Fatalf("Failed to save configuration file: %v", err)
		}

		fmt.Println("Profile saved. You can now run './sdwan-sites report'.")
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
