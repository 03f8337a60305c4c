package cmd

import (
	"fmt"
	"time"

	"wifitransfer/internal/app"
	"wifitransfer/internal/discovery"
	"wifitransfer/internal/processor"
	"wifitransfer/internal/transport"
	"wifitransfer/internal/ui"
	"wifitransfer/pkg/utils"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type AcceptFlags struct {
	SessionID string
	DstPath   string
	Address   string
	Port      int
	Yes       bool
	Timeout   time.Duration
}

var acceptFlags AcceptFlags

// acceptCmd represents the accept command
var acceptCmd = &cobra.Command{
	Use:   "accept",
	Short: "Accept a file",
	Long: `Accept a file from a sender on the local network. This will:

1. Look up the sender's session id over mDNS, unless --ip and --port are given
2. Download the file over HTTP with a progress bar
3. Save it to --out

If --out already exists you are asked before it is overwritten.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateAcceptFlags(&acceptFlags)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReceiverApp(cmd, &acceptFlags)
	},
}

func init() {
	rootCmd.AddCommand(acceptCmd)

	// Define flags with struct binding
	acceptCmd.Flags().StringVarP(&acceptFlags.SessionID, "id", "i", "", "Session id from the sender (required)")
	acceptCmd.Flags().StringVarP(&acceptFlags.DstPath, "out", "o", "", "File to save the download to (required)")
	acceptCmd.Flags().StringVarP(&acceptFlags.Address, "ip", "a", "", "Sender IP, if discovery does not work")
	acceptCmd.Flags().IntVarP(&acceptFlags.Port, "port", "p", 0, "Sender port, if discovery does not work")
	acceptCmd.Flags().BoolVarP(&acceptFlags.Yes, "yes", "y", false, "Overwrite --out without asking")
	acceptCmd.Flags().DurationVar(&acceptFlags.Timeout, "timeout", 0, "Give up discovery after this long (0 waits forever)")

	// Mark required flags
	acceptCmd.MarkFlagRequired("id")
	acceptCmd.MarkFlagRequired("out")

	// Bind flags to viper so config files and env vars can set them too
	viper.BindPFlag("discovery.resolve_timeout", acceptCmd.Flags().Lookup("timeout"))
}

// validateAcceptFlags validates the accept command flags
func validateAcceptFlags(flags *AcceptFlags) error {
	if flags.SessionID == "" {
		return fmt.Errorf("you need the id from the other person")
	}
	if !utils.IsValidCode(flags.SessionID) {
		return fmt.Errorf("invalid session id %q", flags.SessionID)
	}
	if flags.DstPath == "" {
		return fmt.Errorf("destination path is required")
	}
	if (flags.Address == "") != (flags.Port == 0) {
		return fmt.Errorf("--ip and --port must be given together")
	}
	if flags.Port < 0 || flags.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", flags.Port)
	}
	if flags.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return utils.ValidateDestinationPath(flags.DstPath)
}

// runReceiverApp creates and runs the receiver application
func runReceiverApp(cmd *cobra.Command, flags *AcceptFlags) error {
	console := ui.NewConsoleUI(binaryName)

	if utils.FileExists(flags.DstPath) && !flags.Yes {
		ok, err := console.ConfirmOverwrite(cmd.Context())
		if err != nil {
			return err
		}
		if !ok {
			console.ShowMessage("Not overwriting. Exiting.")
			return nil
		}
	}

	var resolver app.Resolver
	if flags.Address == "" {
		resolver = discovery.NewResolver(&cfg.Discovery, nil)
	}

	client := transport.NewClient(&cfg.Transfer)

	opts := &app.ReceiverOptions{
		SessionID: flags.SessionID,
		DestPath:  flags.DstPath,
		Address:   flags.Address,
		Port:      flags.Port,
	}

	receiverApp := app.NewReceiverApp(cfg, resolver, client, processor.NewFileService(), console)
	return receiverApp.Run(cmd.Context(), opts)
}
