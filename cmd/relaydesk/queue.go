package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/relaydesk/relaydesk-core/internal/command"
)

// The queue commands operate on the same commandQueue.json the server uses.
// The store rewrites the whole file per change, so running them next to a
// live server is safe as long as only one process writes at a time.

func newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect or modify device command queues",
	}
	cmd.AddCommand(newQueueListCmd(), newQueuePushCmd(), newQueueDrainCmd())
	return cmd
}

func openCommandService() (*command.Service, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return command.NewService(command.NewStore(cfg.Storage.Dir)), nil
}

func newQueueListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [device-id]",
		Short: "Show pending commands, for one device or queue depths for all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openCommandService()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return writeIndented(cmd.OutOrStdout(), svc.Depths())
			}
			cmds, err := svc.Pending(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeIndented(cmd.OutOrStdout(), cmds)
		},
	}
}

func newQueuePushCmd() *cobra.Command {
	var (
		flagSIM     int
		flagTo      string
		flagMessage string
		flagForward string
		flagOff     bool
	)

	cmd := &cobra.Command{
		Use:   "push <device-id>",
		Short: "Queue a send_sms or sms_forward command",
		Example: `  relaydesk queue push dev-1 --sim 1 --to +919876543210 --message hello
  relaydesk queue push dev-1 --sim 2 --forward +4915112345678
  relaydesk queue push dev-1 --sim 2 --forward-off`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var c command.Command
			switch {
			case flagOff:
				c = command.DisableForwarding(flagSIM)
			case flagForward != "":
				c = command.EnableForwarding(flagSIM, flagForward)
			default:
				c = command.SendSMS(flagSIM, flagTo, flagMessage)
			}

			svc, err := openCommandService()
			if err != nil {
				return err
			}
			if err := svc.Enqueue(cmd.Context(), args[0], c); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued for %s: %s\n", args[0], c.Summary())
			return nil
		},
	}
	cmd.Flags().IntVar(&flagSIM, "sim", 1, "SIM slot (1 or 2)")
	cmd.Flags().StringVar(&flagTo, "to", "", "destination number for send_sms")
	cmd.Flags().StringVar(&flagMessage, "message", "", "message body for send_sms")
	cmd.Flags().StringVar(&flagForward, "forward", "", "enable forwarding to this number")
	cmd.Flags().BoolVar(&flagOff, "forward-off", false, "disable forwarding")
	cmd.MarkFlagsMutuallyExclusive("forward", "forward-off")
	return cmd
}

func newQueueDrainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drain <device-id>",
		Short: "Remove and print every pending command, as a device poll would",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openCommandService()
			if err != nil {
				return err
			}
			cmds, err := svc.Drain(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeIndented(cmd.OutOrStdout(), cmds)
		},
	}
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
