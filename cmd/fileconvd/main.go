// Command fileconvd runs the fileconv queue worker as a long-lived process.
// It reads the configuration from $FILECONV_CONFIG, or the default locations
// when unset, and exits on SIGINT or SIGTERM once in-flight jobs return.
package main

import (
	"context"
	"log"
	"os"

	"fileconv/internal/config"
	"fileconv/internal/daemonrun"
)

func main() {
	cfg, _, _, err := config.Load(os.Getenv("FILECONV_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err != nil {
		log.Fatalf("fileconvd: %v", err)
	}
}
