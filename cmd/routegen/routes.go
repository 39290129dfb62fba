package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/routegen/config"
	"github.com/artpar/routegen/core/formatter"
	"github.com/artpar/routegen/core/registry"
)

var routesCmd = &cobra.Command{
	Use:   "routes [namespace]",
	Short: "List compiled endpoints",
	Long: `List the endpoints compiled from the route schema.
Required parameters are marked with '*'.

Examples:
  routegen routes
  routegen routes repos
  routegen routes repos -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRoutes,
}

func init() {
	rootCmd.AddCommand(routesCmd)
}

func runRoutes(cmd *cobra.Command, args []string) error {
	f, err := formatter.Get(outputFormat)
	if err != nil {
		return err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	reg, err := compileFile(cfg.Schema.Path, cfg.Client.Version)
	if err != nil {
		return err
	}

	namespaces := reg.Namespaces()
	if len(args) == 1 {
		ns, ok := reg.Namespace(args[0])
		if !ok {
			return fmt.Errorf("namespace %q not found", args[0])
		}
		namespaces = []*registry.Namespace{ns}
	}

	return f.FormatList(cmd.OutOrStdout(), endpointListing(namespaces), formatter.FormatOptions{MaxWidth: 80})
}

func endpointListing(namespaces []*registry.Namespace) formatter.Listing {
	l := formatter.Listing{
		Kind:    "endpoints",
		Columns: []string{"endpoint", "accessor", "method", "url", "params"},
	}
	for _, ns := range namespaces {
		for _, ep := range ns.Endpoints() {
			l.Records = append(l.Records, map[string]any{
				"endpoint": ep.ID(),
				"accessor": ns.Accessor,
				"method":   strings.ToUpper(ep.Route.Method),
				"url":      ep.Route.URL,
				"params":   paramNames(ep),
			})
		}
	}
	return l
}

// paramNames marks required parameters with a trailing '*'.
func paramNames(ep *registry.Endpoint) []string {
	names := make([]string, 0, len(ep.Route.Params))
	for _, p := range ep.Route.Params {
		name := p.Name
		if p.Rule.Required {
			name += "*"
		}
		names = append(names, name)
	}
	return names
}
