package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newBreakerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "breaker",
		Short: "Inspect and operate the market circuit breaker",
	}
	cmd.AddCommand(newBreakerStatusCmd())
	cmd.AddCommand(newBreakerAcceptCmd())
	cmd.AddCommand(newBreakerRejectCmd())
	return cmd
}

func newBreakerStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the current breaker state",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := loadApp()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(application.breakerMgr.Current())
		},
	}
}

func newBreakerAcceptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accept",
		Short: "Accept a pending reset, clearing the breaker",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := loadApp()
			if err != nil {
				return err
			}
			state, err := application.breakerMgr.AcceptReset(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("breaker cleared: active=%t\n", state.Active)
			return nil
		},
	}
}

func newBreakerRejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject",
		Short: "Reject a pending reset, keeping the breaker active",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := loadApp()
			if err != nil {
				return err
			}
			state, err := application.breakerMgr.RejectReset(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("breaker reset rejected: active=%t trigger=%s\n", state.Active, state.Trigger)
			return nil
		},
	}
}
