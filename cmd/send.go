package cmd

import (
	"fmt"
	"math/rand"

	"wifitransfer/internal/app"
	"wifitransfer/internal/discovery"
	"wifitransfer/internal/processor"
	"wifitransfer/internal/ui"
	"wifitransfer/pkg/utils"

	"github.com/spf13/cobra"
)

const (
	minRandomPort = 1024
	maxRandomPort = 65534
)

type SendFlags struct {
	FilePath string
	Port     int
}

var sendFlags SendFlags

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a file",
	Long: `Send a file to a receiver on the local network. This will:

1. Start an HTTP server for the file on --port
2. Advertise a short session id over mDNS
3. Print the id and the commands the receiver can run
4. Stream the file to the first receiver that connects, then exit

Use --file to specify the path to the file you want to send.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateSendFlags(&sendFlags)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSenderApp(cmd, &sendFlags)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	// Define flags with struct binding
	sendCmd.Flags().StringVarP(&sendFlags.FilePath, "file", "f", "", "Path to file to send (required)")
	sendCmd.Flags().IntVarP(&sendFlags.Port, "port", "p", randomPort(), "Port to bind on, random between 1024 and 65534 by default")

	// Mark required flags
	sendCmd.MarkFlagRequired("file")
}

func randomPort() int {
	return minRandomPort + rand.Intn(maxRandomPort-minRandomPort+1)
}

// validateSendFlags validates the send command flags
func validateSendFlags(flags *SendFlags) error {
	if flags.FilePath == "" {
		return fmt.Errorf("file path is required")
	}
	if flags.Port <= 0 || flags.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", flags.Port)
	}
	return utils.ValidateSourcePath(flags.FilePath)
}

// runSenderApp creates and runs the sender application
func runSenderApp(cmd *cobra.Command, flags *SendFlags) error {
	advertiser := discovery.NewAdvertiser(&cfg.Discovery, nil)
	resolver := discovery.NewResolver(&cfg.Discovery, nil)

	opts := &app.SenderOptions{
		FilePath: flags.FilePath,
		Port:     flags.Port,
	}

	senderApp := app.NewSenderApp(cfg, advertiser, resolver, processor.NewFileService(), ui.NewConsoleUI(binaryName))
	return senderApp.Run(cmd.Context(), opts)
}
