package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"wifitransfer/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const binaryName = "wifi-transfer"

var (
	cfg     *config.Config
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   binaryName,
	Short: "Send a file to another machine on your local network",
	Long: `wifi-transfer moves a single file between two machines on the same local network.

The sender advertises a short session id over mDNS and serves the file over HTTP.
The receiver looks the id up on the network, or connects to an address directly
when multicast discovery is blocked, and streams the file to disk.

Usage:
  Send a file:    wifi-transfer send --file /path/to/file
  Accept a file:  wifi-transfer accept --id <id> --out /path/to/save/file`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !verbose {
			log.SetOutput(io.Discard)
		}

		// Initialize viper configuration
		initConfig()

		loaded, err := config.Load(viper.GetViper())
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		cfg = loaded
		return nil
	},
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.wifi-transfer.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print diagnostic logs")

	// Set up viper environment variable support
	viper.SetEnvPrefix("WIFI_TRANSFER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			log.Printf("Warning: Could not find home directory: %v", err)
			return
		}

		// Search config in home directory with name ".wifi-transfer" (without extension)
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".wifi-transfer")
	}

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		log.Printf("Using config file: %s", viper.ConfigFileUsed())
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
