package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var (
	port     int
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long: `Start the HTTP server with a browser page for asking questions and a
JSON API:

  POST /api/ask       {"question": "..."}
  POST /api/query     {"query": "MATCH ..."}
  POST /api/validate  {"query": "MATCH ..."}
  GET  /api/schema
  GET  /api/history[?limit=N]
  GET  /api/history/{id}`,
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run the server on (default from config, 8080)")
}

func runServe() {
	app, cleanup, err := InitApp(context.Background(), dataDir, InitOptions{})
	if err != nil {
		HandleError(err, "Failed to initialize")
	}
	defer cleanup()

	if port == 0 {
		port = app.Config.Server.Port
	}

	fmt.Printf("Starting cypherqa web server...\n")
	fmt.Printf("Neo4j: %s (%s)\n", app.Config.Neo4j.URI, app.Config.Neo4j.Database)
	fmt.Printf("Port: %d\n\n", port)

	if StartServer == nil {
		HandleError(fmt.Errorf("server not available"), "Failed to start server")
	}
	if err := StartServer(app, port); err != nil {
		log.Fatalf("Server failed: %v\n", err)
	}
}
