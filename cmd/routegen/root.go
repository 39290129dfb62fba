package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile      string
	outputFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "routegen",
	Short: "Schema driven HTTP API client",
	Long: `routegen compiles a route schema into a typed API client.

Every route of the schema becomes an endpoint addressed by namespace and
function. Parameters are validated and coerced before anything is sent.

Quick start:
  routegen validate            # Compile the schema and report problems
  routegen routes              # List compiled endpoints
  routegen call repos get -p owner=octo -p repo=hello

Introspection:
  routegen inspect --listen :9090   # Serve namespaces, OpenAPI and metrics
  routegen history -n 20            # Show recent calls from the journal`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "routegen.yaml", "config file path")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml")
}
