package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration, session and performance counters",
	RunE:  runStatus,
}

var checkConnection bool

func init() {
	statusCmd.Flags().BoolVar(&checkConnection, "check", false, "send a test request to the provider")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	var connErr error
	if checkConnection {
		connErr = s.client.TestConnection(ctx)
	}
	st := s.client.Status()

	if outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	fmt.Printf("Model:       %s (%s)\n", st.Model, st.Provider)
	fmt.Printf("Session:     %s\n", st.Session.SessionID)
	fmt.Printf("  Messages:  %d\n", st.Session.MessageCount)
	fmt.Printf("  Files:     %d\n", st.Session.FileCount)
	if st.Session.ProjectName != "" {
		fmt.Printf("  Project:   %s\n", st.Session.ProjectName)
	}
	fmt.Printf("Debug:       %t\n", st.Flags.Debug)
	fmt.Printf("Verbose:     %t\n", st.Flags.Verbose)
	fmt.Printf("Tools:       %t\n", st.Flags.ToolsEnabled)
	fmt.Printf("Cache:       %t\n", st.CacheEnabled)
	fmt.Printf("Watchdog:    %t\n", st.WatchdogActive)
	fmt.Printf("Session dir: %s (%s)\n", s.cfg.Session.Dir, s.cfg.Session.Backend)
	if checkConnection {
		if connErr != nil {
			fmt.Printf("Connection:  failed: %v\n", connErr)
		} else {
			fmt.Println("Connection:  ok")
		}
	}
	return nil
}
