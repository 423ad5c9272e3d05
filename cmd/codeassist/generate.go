package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/discochess/codeassist"
)

var generateCmd = &cobra.Command{
	Use:   "generate DESCRIPTION",
	Short: "Generate code from a description",
	Long: `Generate code from a natural-language description.

Without --context, the current project and the session's most relevant
files are sent as background.

With --function or --type, a single named function or type is generated
instead of free-form code.

Examples:
  codeassist generate "an LRU cache with a size limit" --lang go
  codeassist generate "a CLI flag parser" --lang python --output flags.py
  codeassist generate "clamp v to a range" --function Clamp --param v:int --param lo:int --param hi:int --returns int
  codeassist generate "a LIFO stack" --type Stack --method "Push:v int" --method Pop`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

var (
	generateLang     string
	generateContext  string
	generateOutput   string
	generateFunction string
	generateType     string
	generateParams   []string
	generateReturns  string
	generateMethods  []string
	generateEmbeds   []string
)

func init() {
	f := generateCmd.Flags()
	f.StringVarP(&generateLang, "lang", "l", "go", "target language")
	f.StringVar(&generateContext, "context", "", "background to send instead of the session context")
	f.StringVarP(&generateOutput, "output", "o", "", "write the result to this file")
	f.StringVar(&generateFunction, "function", "", "generate a single function with this name")
	f.StringArrayVar(&generateParams, "param", nil, "function parameter as name:type (repeatable)")
	f.StringVar(&generateReturns, "returns", "", "function return type")
	f.StringVar(&generateType, "type", "", "generate a type with this name")
	f.StringArrayVar(&generateMethods, "method", nil, "type method as name or name:param,param (repeatable)")
	f.StringSliceVar(&generateEmbeds, "embeds", nil, "embedded types or base classes")
	generateCmd.MarkFlagsMutuallyExclusive("function", "type")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	var code string
	switch {
	case generateFunction != "":
		code, err = s.client.GenerateFunction(ctx, generateFunction, args[0],
			parseParams(generateParams), generateReturns, generateLang)
	case generateType != "":
		code, err = s.client.GenerateType(ctx, generateType, args[0],
			parseMethods(generateMethods), generateEmbeds, generateLang)
	default:
		code, err = s.client.GenerateCode(ctx, args[0], generateLang, generateContext)
	}
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	return emit(code, generateOutput)
}

// parseParams reads name:type pairs. A missing type is left to the model.
func parseParams(specs []string) []codeassist.Param {
	params := make([]codeassist.Param, 0, len(specs))
	for _, spec := range specs {
		name, typ, _ := strings.Cut(spec, ":")
		params = append(params, codeassist.Param{Name: strings.TrimSpace(name), Type: strings.TrimSpace(typ)})
	}
	return params
}

// parseMethods reads name or name:param,param entries.
func parseMethods(specs []string) []codeassist.Method {
	methods := make([]codeassist.Method, 0, len(specs))
	for _, spec := range specs {
		name, rest, ok := strings.Cut(spec, ":")
		m := codeassist.Method{Name: strings.TrimSpace(name)}
		if ok {
			for _, p := range strings.Split(rest, ",") {
				if p = strings.TrimSpace(p); p != "" {
					m.Params = append(m.Params, p)
				}
			}
		}
		methods = append(methods, m)
	}
	return methods
}

// emit prints text, or writes it to file when file is set.
func emit(text, file string) error {
	if file == "" {
		fmt.Println(text)
		return nil
	}
	if err := os.WriteFile(file, []byte(text+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", file, err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", file)
	return nil
}
