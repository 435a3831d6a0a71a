package main

import (
	"context"
	"flag"
	"log"

	"playhouse/engine/internal/app"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config (defaults to PLAYHOUSE_CONFIG)")
	clientDir := flag.String("client", "", "directory with the browser client to serve")
	flag.Parse()

	if err := app.Run(context.Background(), app.Config{
		ConfigPath: *configPath,
		ClientDir:  *clientDir,
	}); err != nil {
		log.Fatalf("%v", err)
	}
}
