package main

import (
	"fmt"
	"os"

	"github.com/sigreer/sptinv/internal/inventory"
	"github.com/sigreer/sptinv/internal/version"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sptinv",
	Short: "SAS/SATA drive and enclosure inventory",
	Long: `sptinv lists the disks and SES enclosures attached to this host using
spt, lsscsi and smartctl. Each disk is reported with its identity, capacity
and temperature, and with the enclosure slot it sits in when its SAS
address is found in an enclosure's additional element status page.

Run without a subcommand it behaves like "sptinv list".`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(int(runList(cmd)))
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("sptinv", version.String())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/sptinv/config.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "Log file, truncated per run")
	rootCmd.PersistentFlags().String("spt-path", "", "Path to the spt tool (default $SPT_PATH, ./spt, spt)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Per-command timeout")

	addListFlags(rootCmd)

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(int(inventory.ExitError))
	}
}
