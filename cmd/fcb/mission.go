package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flight-bridge/fcb/internal/mission"
)

func newMissionCmd() *cobra.Command {
	missionCmd := &cobra.Command{
		Use:   "mission",
		Short: "Work with waypoint mission files",
	}

	checkCmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a waypoint mission file",
		Long: `Validate a YAML or JSON waypoint mission file against the mission rules
and print a summary of the mission that would be uploaded.

The exit code indicates the result:
  0 - Mission is valid
  1 - Mission has rule violations or could not be read`,
		Args: cobra.ExactArgs(1),
		RunE: runMissionCheck,
	}
	checkCmd.Flags().Bool("json", false, "Output the built mission as JSON")

	missionCmd.AddCommand(checkCmd)
	return missionCmd
}

func runMissionCheck(cmd *cobra.Command, args []string) error {
	d, err := mission.LoadFile(args[0])
	if err != nil {
		return err
	}
	m, err := d.Build()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	}
	_, err = fmt.Fprintf(out, "%s: OK\n%s\n", args[0], mission.Summary(m))
	return err
}
