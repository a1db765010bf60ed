package main

import (
	"fmt"
	"os"

	"github.com/sahilchouksey/course-review-api/app"
)

func main() {
	// setup and run app
	if err := app.SetupAndRunServer(); err != nil {
		fmt.Fprintln(os.Stderr, "server exited:", err)
		os.Exit(1)
	}
}
