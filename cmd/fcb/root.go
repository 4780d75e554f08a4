package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fcb",
		Short: "Flight-controller bridge",
		Long: `fcb exposes a drone flight-controller SDK to a host application.

It uploads and starts waypoint missions, streams mission events, drives
virtual-stick control and records flight data, over an HTTP command API
with SSE and WebSocket event streams.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "config file (default is ./fcb.yaml or /etc/fcb/fcb.yaml)")

	root.AddCommand(newServeCmd(), newMissionCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the fcb version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "fcb %s\n", Version)
			return err
		},
	}
}
