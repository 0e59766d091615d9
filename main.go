package main

import (
	"log"
)

// Build information injected through ldflags.
var (
	GitCommit string
	GitTag    string
	BuildTime string
)

func main() {
	app, err := NewApp()
	if err != nil {
		log.Fatal("library api failed to initialize: ", err)
	}
	if err = app.Run(); err != nil {
		log.Fatal("library api exited with error. check the logs for details: ", err)
	}
}
