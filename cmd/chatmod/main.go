// chatmod
//
// A command-line chat client that screens what you send to a language model
// and redacts what comes back.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/run-bigpig/chatmod/pkg/config"
	"github.com/run-bigpig/chatmod/pkg/guardrails"
	"github.com/run-bigpig/chatmod/pkg/logging"
)

var (
	version    = "dev"
	configPath string
	overrides  config.Overrides
)

var rootCmd = &cobra.Command{
	Use:   "chatmod",
	Short: "chatmod - moderated LLM chat",
	Long: `chatmod forwards your messages to a language model, refusing messages that
contain banned terms and redacting banned terms from the replies.

  chatmod                     Start an interactive chat
  chatmod ask "some question" Run a single turn
  chatmod terms               Show the banned-term list`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		defer a.Close(context.WithoutCancel(ctx))

		return a.session.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Run one moderated turn and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		defer a.Close(context.WithoutCancel(ctx))

		turn := a.session.ProcessInput(ctx, strings.Join(args, " "))
		fmt.Fprintln(cmd.OutOrStdout(), turn.Output())
		return nil
	},
}

var termsCmd = &cobra.Command{
	Use:   "terms",
	Short: "Print the banned-term list in match order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Read(configPath, overrides)
		if err != nil {
			return err
		}
		filter, err := guardrails.NewContentFilter(cfg.Moderation.BannedTerms)
		if err != nil {
			return err
		}
		for _, term := range filter.Terms() {
			fmt.Fprintln(cmd.OutOrStdout(), term)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CHATMOD_CONFIG"), "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error, off)")
	rootCmd.PersistentFlags().StringVar(&overrides.Model, "model", "", "model name")
	rootCmd.PersistentFlags().StringVar(&overrides.Provider, "provider", "", "LLM provider (openai, anthropic)")

	rootCmd.AddCommand(askCmd, termsCmd)
}

func loadApp() (*app, error) {
	cfg, err := config.Load(configPath, overrides)
	if err != nil {
		return nil, err
	}
	logger := logging.New(logging.WithLevel(cfg.LogLevel))
	return newApp(cfg, logger)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
