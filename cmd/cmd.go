package cmd

import (
	"github.com/TaikerLiang/shipment-crawler/cmd/worker"
	"github.com/TaikerLiang/shipment-crawler/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print version.",
	Long:  "print version.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		version.Printer()
	},
}

func Execute() {
	var rootCmd = &cobra.Command{Use: "shipment-crawler"}
	rootCmd.AddCommand(worker.WorkerCmd, versionCmd)
	rootCmd.Execute()
}
