package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/projecteru2/cocoond/cmd"
	"github.com/projecteru2/cocoond/daemon"
)

func main() {
	err := cmd.Execute()
	if err == nil {
		return
	}
	var exitErr *daemon.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
