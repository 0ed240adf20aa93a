package main

import (
	"log"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the studio HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			app.Config.Server.Addr = addr
		}
		log.Printf("Storage: %s", app.Config.Storage.Backend)
		log.Printf("Blobs: %s", app.Config.Blobs.Backend)
		log.Printf("Starting server on: %s", app.Config.Server.Addr)
		return app.Serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Address to bind the webserver, overrides server.addr")
}
