package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var projectCmd = &cobra.Command{
	Use:   "project [DIR]",
	Short: "Scan a project and record it in the session",
	Long: `Scan a project directory for source files, languages and dependency
manifests. The result becomes part of the context for later generate and
chat commands in the same session.

DIR defaults to the configured project root.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProject,
}

func init() {
	rootCmd.AddCommand(projectCmd)
}

func runProject(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	root := s.cfg.Project.Root
	if len(args) == 1 {
		root = args[0]
	}
	pa, err := s.client.AnalyzeProject(ctx, root)
	if err != nil {
		return fmt.Errorf("project analysis failed: %w", err)
	}

	if outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(pa.Project)
	}
	p := pa.Project
	fmt.Printf("Project:      %s\n", p.Name)
	fmt.Printf("Root:         %s\n", p.RootPath)
	fmt.Printf("Files:        %d (%s)\n", p.FileCount, formatBytes(p.TotalSize))
	if pa.Skipped > 0 {
		fmt.Printf("Skipped:      %d over the size limit\n", pa.Skipped)
	}
	for _, l := range p.Languages {
		fmt.Printf("  %-10s  %d\n", l, p.Structure[l])
	}
	if len(p.Dependencies) > 0 {
		fmt.Printf("Dependencies: %s\n", strings.Join(p.Dependencies, ", "))
	}
	fmt.Printf("Session:      %s\n", s.client.Session().ID())
	return nil
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
