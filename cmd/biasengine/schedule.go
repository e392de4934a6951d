package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Inspect and manually trigger the cadenced driver set",
	}
	cmd.AddCommand(newScheduleListCmd())
	cmd.AddCommand(newScheduleRunCmd())
	return cmd
}

func newScheduleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every driver and its last run status",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := loadApp()
			if err != nil {
				return err
			}
			for _, st := range application.scheduler.Statuses() {
				fmt.Printf("%-28s interval=%-10s last_run=%-20s ok=%-5t runs=%d skips=%d",
					st.Name, st.Interval, st.LastRun.Format("2006-01-02T15:04:05"), st.LastOK, st.RunCount, st.SkipCount)
				if st.LastErr != "" {
					fmt.Printf(" err=%q", st.LastErr)
				}
				fmt.Println()
			}
			return nil
		},
	}
}

func newScheduleRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <driver-name>",
		Short: "Run one named driver immediately, bypassing its Gate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := loadApp()
			if err != nil {
				return err
			}
			ran, err := application.scheduler.RunNow(context.Background(), args[0])
			if err != nil {
				return err
			}
			if !ran {
				return fmt.Errorf("no driver named %q", args[0])
			}
			fmt.Printf("ran %q\n", args[0])
			return nil
		},
	}
}
