package cmd

import (
	"fmt"
	"os"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/cmd/admin"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/cmd/serve"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "skydream",
		Short: "controller application records",
		Long: fmt.Sprintf(`SkyDream (v%s)

Stores accounts, applications, exams, activities and attachments of
controller applicants as JSON documents on a file, SQL or object backend.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of SkyDream",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("SkyDream v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(admin.AdminCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
