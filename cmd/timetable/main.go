package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:          "timetable",
	Short:        "Offline study timetable generator",
	Long:         "Generate study timetables from a YAML subject file without a database or the HTTP API",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log generation details to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, appErrors.ErrInvalidRequest) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
