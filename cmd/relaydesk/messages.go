package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/relaydesk/relaydesk-core/internal/message"
)

func newMessagesCmd() *cobra.Command {
	var (
		flagOffset int
		flagLimit  int
		flagJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "messages <device-id>",
		Short: "Print a page of a device's stored messages, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			store := message.NewStore(cfg.Storage.Dir, cfg.Storage.MessageCap)
			page, err := store.Slice(cmd.Context(), args[0], flagOffset, flagLimit)
			if err != nil {
				return err
			}
			if flagJSON {
				return writeIndented(cmd.OutOrStdout(), page)
			}

			out := cmd.OutOrStdout()
			if len(page.Items) == 0 {
				fmt.Fprintf(out, "no messages for %s (total %d)\n", args[0], page.Total)
				return nil
			}
			fmt.Fprintf(out, "messages %d-%d of %d for %s\n", page.Offset+1, page.End(), page.Total, args[0])
			for i, rec := range page.Items {
				ts := time.UnixMilli(rec.Timestamp).Format(time.RFC3339)
				fmt.Fprintf(out, "#%d  %s  SIM%d  %s\n    %s\n", page.Offset+i+1, ts, rec.SIM, rec.From, rec.Body)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&flagOffset, "offset", 0, "number of newest messages to skip")
	cmd.Flags().IntVar(&flagLimit, "limit", message.DefaultPageSize, "page size")
	cmd.Flags().BoolVar(&flagJSON, "json", false, "print the page as JSON")
	return cmd
}
