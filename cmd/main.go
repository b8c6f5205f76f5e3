package main

import (
	"fmt"
	"os"

	"github.com/nudriin/humbet-cli/internal/interfaces/cli"
	"github.com/nudriin/humbet-cli/internal/interfaces/di"
)

func main() {
	container, err := di.NewContainer(configPathFromArgs(os.Args[1:]))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	cli.Execute(container)
}

// configPathFromArgs pre-scans for the --config flag so the container can
// load the right file before cobra parses anything.
func configPathFromArgs(args []string) string {
	for i, arg := range args {
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if len(arg) > len("--config=") && arg[:len("--config=")] == "--config=" {
			return arg[len("--config="):]
		}
	}
	return ""
}
