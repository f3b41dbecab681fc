package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/config"
	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/services/assistant"
	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/services/store"

	"github.com/spf13/cobra"
)

func buildStore(cfg *config.Config, cmd *cobra.Command) (*store.Service, error) {
	client, err := assistant.NewClient(cmd.Context(), cfg.Assistant)
	if err != nil {
		return nil, err
	}
	return store.New(client.Genai(), cfg.Assistant), nil
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the store and its sync state against the knowledge directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, err := buildStore(cfg, cmd)
			if err != nil {
				return err
			}

			status, err := svc.Status(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Store: %s (%s)\n", status.DisplayName, status.StoreName)
			if !status.CreateTime.IsZero() {
				fmt.Printf("Created: %s\n", status.CreateTime.Format("2006-01-02 15:04:05"))
			}
			fmt.Printf("Indexed documents: %d\n", len(status.Remote))
			fmt.Printf("Local documents: %d\n", len(status.Local))
			if len(status.PendingUpload) > 0 {
				fmt.Printf("Pending upload: %s\n", strings.Join(status.PendingUpload, ", "))
			}
			if len(status.Orphaned) > 0 {
				fmt.Printf("Indexed but missing locally: %s\n", strings.Join(status.Orphaned, ", "))
			}
			return nil
		},
	}
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List indexed documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, err := buildStore(cfg, cmd)
			if err != nil {
				return err
			}

			docs, err := svc.ListDocuments(cmd.Context())
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				fmt.Println("No documents indexed.")
				return nil
			}

			for _, doc := range docs {
				fmt.Printf("%-40s %-10s %8d bytes\n", doc.DisplayName, doc.State, doc.SizeBytes)
			}
			return nil
		},
	}
}

func newSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Upload local knowledge files that are not indexed yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, err := buildStore(cfg, cmd)
			if err != nil {
				return err
			}

			result, err := svc.EnsureSynced(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Uploaded: %d, already indexed: %d, failed: %d\n",
				len(result.Uploaded), len(result.Skipped), len(result.Failed))
			for _, name := range result.Uploaded {
				fmt.Printf("  + %s\n", name)
			}
			for _, name := range result.Failed {
				fmt.Printf("  ! %s\n", name)
			}
			return nil
		},
	}
}

func newUploadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload and index one file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, err := buildStore(cfg, cmd)
			if err != nil {
				return err
			}

			if err := svc.Upload(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Indexed %s\n", args[0])
			return nil
		},
	}
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete one indexed document by display name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, err := buildStore(cfg, cmd)
			if err != nil {
				return err
			}

			if err := svc.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}

func newClearCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every indexed document and the store itself",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if !yes {
				fmt.Printf("This deletes the store %q and every indexed document. Type 'yes' to continue: ", cfg.Assistant.StoreDisplayName)
				reader := bufio.NewReader(os.Stdin)
				line, _ := reader.ReadString('\n')
				if strings.TrimSpace(line) != "yes" {
					fmt.Println("Aborted.")
					return nil
				}
			}

			svc, err := buildStore(cfg, cmd)
			if err != nil {
				return err
			}
			if err := svc.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Store cleared.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "skip the confirmation prompt")
	return cmd
}
