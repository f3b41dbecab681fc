package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/config"
	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/services/alerts"
	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/services/assistant"
	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/services/ledger"
	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/services/store"

	"github.com/spf13/cobra"
)

// buildAssistant creates the Gemini client grounded against the store.
// Operator queries go straight to the collaborator: no rate limiting, no
// validation, no usage accounting.
func buildAssistant(cfg *config.Config, cmd *cobra.Command) (*assistant.Client, error) {
	client, err := assistant.NewClient(cmd.Context(), cfg.Assistant)
	if err != nil {
		return nil, err
	}

	svc := store.New(client.Genai(), cfg.Assistant)
	if fileStore, err := svc.EnsureStore(cmd.Context()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: knowledge base unavailable, answers will not be grounded: %v\n", err)
	} else {
		client.UseStore(fileStore.Name)
	}

	return client, nil
}

func newAskCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the assistant one question, bypassing the safety layer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := buildAssistant(cfg, cmd)
			if err != nil {
				return err
			}

			answer, err := client.Ask(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			fmt.Println(answer.Text)
			fmt.Printf("\n(%d tokens)\n", answer.TotalTokens)
			return nil
		},
	}
}

func newChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant interactively, bypassing the safety layer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := buildAssistant(cfg, cmd)
			if err != nil {
				return err
			}

			fmt.Println("Chat with the lab assistant. Type 'exit' to quit.")

			var transcript strings.Builder
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("you> ")
				if !scanner.Scan() {
					fmt.Println()
					return scanner.Err()
				}
				question := strings.TrimSpace(scanner.Text())
				if question == "" {
					continue
				}
				if question == "exit" || question == "quit" {
					return nil
				}

				prompt := transcript.String() + "User: " + question + "\nAssistant:"
				answer, err := client.Ask(cmd.Context(), prompt)
				if err != nil {
					fmt.Printf("assistant> %v\n\n", err)
					continue
				}

				fmt.Printf("assistant> %s\n\n", answer.Text)
				fmt.Fprintf(&transcript, "User: %s\n\nAssistant: %s\n\n", question, answer.Text)
			}
		},
	}
}

func newReportCommand() *cobra.Command {
	var (
		date  string
		month string
	)

	cmd := &cobra.Command{
		Use:   "report [daily|monthly]",
		Short: "Print a usage and cost report from the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			usageLedger, err := ledger.New(cfg.Logging.Dir, cfg.Pricing)
			if err != nil {
				return err
			}
			defer func() { _ = usageLedger.Close() }()

			switch args[0] {
			case "daily":
				var day time.Time
				if date != "" {
					day, err = time.Parse("2006-01-02", date)
					if err != nil {
						return fmt.Errorf("invalid date format, use YYYY-MM-DD: %w", err)
					}
				}
				fmt.Println(usageLedger.DailyReport(day))
			case "monthly":
				now := time.Now().UTC()
				year, m := now.Year(), now.Month()
				if month != "" {
					t, err := time.Parse("2006-01", month)
					if err != nil {
						return fmt.Errorf("invalid month format, use YYYY-MM: %w", err)
					}
					year, m = t.Year(), t.Month()
				}
				fmt.Println(usageLedger.MonthlyReport(year, m))
			default:
				return fmt.Errorf("unknown report %q, use daily or monthly", args[0])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "day to report on (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&month, "month", "", "month to report on (YYYY-MM, default this month)")
	return cmd
}

func newTestAlertCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test-alert",
		Short: "Send a test notification to the configured ntfy topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			dispatcher := alerts.New(cfg.Alerts)
			if !dispatcher.Enabled() {
				return fmt.Errorf("alerts are not configured: set alerts.topic in config.yaml")
			}
			if !dispatcher.Test() {
				return fmt.Errorf("test alert was not accepted by the topic")
			}
			fmt.Println("Test alert sent.")
			return nil
		},
	}
}
