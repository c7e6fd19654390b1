package main

import (
	"errors"
	"fmt"
	"os"

	"bulwark/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}

	// Commands render their own output before returning an ExitError;
	// anything else (flag parse failures, unknown commands) still needs
	// to be shown.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
