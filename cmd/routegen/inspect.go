package main

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/routegen/bootstrap"
)

const defaultInspectListen = "127.0.0.1:9090"

var inspectListen string

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Serve the compiled surface over HTTP",
	Long: `Start the introspection server.

Routes:
  GET /healthz                           - liveness and endpoint count
  GET /namespaces                        - compiled namespaces
  GET /namespaces/{namespace}/{function} - one resolved endpoint
  GET /openapi.json                      - OpenAPI 3 document
  GET /swagger/                          - Swagger UI
  GET /calls?limit=20                    - recent calls from the journal
  GET /metrics                           - Prometheus metrics (metrics.enabled)

The config and schema files are watched and reloaded on change or SIGHUP.

Examples:
  routegen inspect
  routegen inspect --listen 127.0.0.1:9090`,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&inspectListen, "listen", "", "listen address (overrides inspect.listen)")
}

func runInspect(cmd *cobra.Command, args []string) error {
	a, err := bootstrap.NewWithOptions(cfgFile, bootstrap.Options{Watch: true})
	if err != nil {
		return err
	}

	if inspectListen != "" || a.HTTPServer == nil {
		addr := inspectListen
		if addr == "" {
			addr = defaultInspectListen
		}
		a.HTTPServer = &http.Server{
			Addr:              addr,
			Handler:           a.Inspect,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	return a.Run(cmd.Context())
}
