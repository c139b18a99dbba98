package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sokinpui/ask.go/internal/app"
	"github.com/sokinpui/ask.go/internal/cli"
)

func main() {
	root := cli.NewRootCommand(cli.Handlers{
		Chat: func(cmd *cobra.Command, cfg *cli.Config) error {
			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			return a.RunChat(cmd.Context())
		},
		Apply: func(_ *cobra.Command, cfg *cli.Config) error {
			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			return a.RunApply()
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
