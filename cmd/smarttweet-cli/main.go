// SmartTweet CLI — управление отложенными публикациями через HTTP API.
//
// Использование:
//
//	smarttweet [--api-url URL] [--owner ID] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	owner  Регистрация владельцев
//	post   Планирование, публикация и управление записями
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shaiso/SmartTweet/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var ownerID int64
	var jsonOutput bool

	defaultOwner := int64(0)
	if v, err := strconv.ParseInt(os.Getenv("SMARTTWEET_OWNER"), 10, 64); err == nil {
		defaultOwner = v
	}

	rootCmd := &cobra.Command{
		Use:           "smarttweet",
		Short:         "SmartTweet CLI: schedule and publish posts",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().Int64Var(&ownerID, "owner", defaultOwner, "Owner ID (env SMARTTWEET_OWNER)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL, ownerID) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewOwnerCmd(clientFn, outputFn),
		cli.NewPostCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
