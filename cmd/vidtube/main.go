package main

import (
	"fmt"
	"os"

	"vidtube/cmd/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "vidtube: %v\n", err)
		os.Exit(1)
	}
}
