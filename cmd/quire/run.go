package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run <specifier>",
	Short: "Load one module and print its exported value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer logger.Sync()

		rt, err := newRuntime(logger)
		if err != nil {
			return err
		}
		defer rt.Stop(false)

		exports, err := rt.Require(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		return printExports(exports)
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <specifier>",
	Short: "Print the absolute path a specifier resolves to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := zap.NewNop()

		rt, err := newRuntime(logger)
		if err != nil {
			return err
		}
		defer rt.Stop(false)

		path, err := rt.Resolve(args[0])
		if err != nil {
			return err
		}

		fmt.Println(path)
		return nil
	},
}

// printExports renders the exported value as JSON; values JSON cannot
// express (functions, cycles) fall back to the Go representation.
func printExports(exports any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(exports); err != nil {
		fmt.Printf("%v\n", exports)
	}
	return nil
}
