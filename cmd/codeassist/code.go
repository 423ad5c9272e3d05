package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/discochess/codeassist"
	"github.com/discochess/codeassist/internal/lang"
)

// Flags shared by the commands that take a piece of code.
var (
	codeFile   string
	codeLang   string
	codeOutput string
)

func addCodeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&codeFile, "file", "f", "", "read code from this file (default: stdin)")
	cmd.Flags().StringVarP(&codeLang, "lang", "l", "", "language of the code (default: detected from --file)")
	cmd.Flags().StringVarP(&codeOutput, "output", "o", "", "write the result to this file")
}

// codeInput returns the code and its language.
func codeInput() (code, language string, err error) {
	code, err = readCode(codeFile)
	if err != nil {
		return "", "", err
	}
	language = codeLang
	if language == "" {
		language = lang.Detect(codeFile).String()
	}
	return code, language, nil
}

// codeCommand builds a command that sends code through op and prints the
// reply.
func codeCommand(use, short, long string, op func(ctx context.Context, c *codeassist.Client, code, language string) (string, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, language, err := codeInput()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			out, err := op(ctx, s.client, code, language)
			if err != nil {
				return err
			}
			return emit(out, codeOutput)
		},
	}
	addCodeFlags(cmd)
	return cmd
}

var (
	testFramework string
	docsFormat    string
	refactorKind  string
	fixError      string
)

func init() {
	reviewCmd := codeCommand("review", "Review code",
		`Review code for correctness, style, performance and security.

Examples:
  codeassist review --file handler.go
  git diff | codeassist review --lang diff`,
		func(ctx context.Context, c *codeassist.Client, code, language string) (string, error) {
			return c.ReviewCode(ctx, code, language)
		})

	explainCmd := codeCommand("explain", "Explain code",
		`Explain what a piece of code does, step by step.`,
		func(ctx context.Context, c *codeassist.Client, code, language string) (string, error) {
			return c.ExplainCode(ctx, code, language)
		})

	testsCmd := codeCommand("tests", "Generate tests for code",
		`Generate unit tests for a piece of code.`,
		func(ctx context.Context, c *codeassist.Client, code, language string) (string, error) {
			return c.GenerateTests(ctx, code, language, testFramework)
		})
	testsCmd.Flags().StringVar(&testFramework, "framework", "", "test framework to use")

	docsCmd := codeCommand("docs", "Generate documentation for code",
		`Generate documentation for a piece of code.`,
		func(ctx context.Context, c *codeassist.Client, code, language string) (string, error) {
			return c.GenerateDocs(ctx, code, language, docsFormat)
		})
	docsCmd.Flags().StringVar(&docsFormat, "format", "markdown", "documentation format")

	refactorCmd := codeCommand("refactor", "Refactor code",
		`Refactor a piece of code. --kind is one of extract_method, simplify,
optimize, modernize or clean; anything else is passed to the model as a
free-form approach.`,
		func(ctx context.Context, c *codeassist.Client, code, language string) (string, error) {
			return c.Refactor(ctx, code, refactorKind, language)
		})
	refactorCmd.Flags().StringVar(&refactorKind, "kind", "clean", "kind of refactoring")

	fixCmd := &cobra.Command{
		Use:   "fix",
		Short: "Fix code given an error message",
		Long: `Ask for a fix of code given the error it produced. When the reply
contains a unified diff, its size is reported.

Examples:
  codeassist fix --file main.go --error "undefined: cfg"`,
		Args: cobra.NoArgs,
		RunE: runFix,
	}
	addCodeFlags(fixCmd)
	fixCmd.Flags().StringVarP(&fixError, "error", "e", "", "error message produced by the code")
	fixCmd.MarkFlagRequired("error")

	rootCmd.AddCommand(reviewCmd, explainCmd, testsCmd, docsCmd, refactorCmd, fixCmd)
}

func runFix(cmd *cobra.Command, args []string) error {
	code, language, err := codeInput()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.client.FixCode(ctx, code, fixError, language)
	if err != nil {
		return err
	}

	if outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Content      string `json:"content"`
			Code         string `json:"code,omitempty"`
			PatchFiles   int    `json:"patch_files,omitempty"`
			LinesAdded   int    `json:"lines_added,omitempty"`
			LinesDeleted int    `json:"lines_deleted,omitempty"`
		}{res.Content, res.Code, len(res.Patch), res.LinesAdded, res.LinesDeleted})
	}

	if codeOutput != "" && res.Code != "" {
		if err := emit(res.Code, codeOutput); err != nil {
			return err
		}
	}
	fmt.Println(res.Content)
	if len(res.Patch) > 0 {
		fmt.Fprintf(os.Stderr, "Patch: %d file(s), +%d -%d\n", len(res.Patch), res.LinesAdded, res.LinesDeleted)
	}
	return nil
}
