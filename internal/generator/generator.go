// Package generator builds code generation prompts and sends them through a
// provider.
package generator

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/discochess/codeassist/internal/provider"
)

// Param describes a function parameter.
type Param struct {
	Name        string
	Type        string
	Description string
}

// Method describes a method of a generated type.
type Method struct {
	Name        string
	Description string
	Params      []string
}

// RefactorKind selects a refactoring instruction.
type RefactorKind string

const (
	RefactorExtractMethod RefactorKind = "extract_method"
	RefactorSimplify      RefactorKind = "simplify"
	RefactorOptimize      RefactorKind = "optimize"
	RefactorModernize     RefactorKind = "modernize"
	RefactorClean         RefactorKind = "clean"
)

var refactorInstructions = map[RefactorKind]string{
	RefactorExtractMethod: "Extract repetitive code into separate methods",
	RefactorSimplify:      "Simplify complex logic and reduce complexity",
	RefactorOptimize:      "Optimize for better performance and efficiency",
	RefactorModernize:     "Update to use modern language features and patterns",
	RefactorClean:         "Clean up code style and improve readability",
}

var templates = template.Must(template.New("generator").Funcs(template.FuncMap{"join": strings.Join}).Parse(`
{{- define "code" -}}
Generate {{.Language}} code for the following request:
Description: {{.Description}}
{{- if .Context}}
Context: {{.Context}}
{{- end}}

Requirements:
- Write clean, readable {{.Language}} code
- Follow best practices and conventions
- Include appropriate comments
- Handle edge cases
- Include example usage if applicable
{{- end}}

{{- define "function" -}}
Generate a {{.Language}} function with the following specification:

Function Name: {{.Name}}
Description: {{.Description}}
Parameters:
{{- range .Params}}
  - {{.Name}}: {{if .Type}}{{.Type}}{{else}}any{{end}}{{if .Description}} - {{.Description}}{{end}}
{{- end}}
Return Type: {{.ReturnType}}

Requirements:
- Include appropriate type annotations
- Add a comprehensive doc comment
- Implement error handling
- Include input validation where appropriate
- Write clean, readable code
{{- end}}

{{- define "type" -}}
Generate a {{.Language}} type with the following specification:
Type Name: {{.Name}}
Description: {{.Description}}
{{- if .Embeds}}
Embeds or extends: {{join .Embeds ", "}}
{{- end}}
{{- if .Methods}}
Methods:
{{- range .Methods}}
  - {{.Name}}: {{if .Description}}{{.Description}}{{else}}No description{{end}}{{if .Params}} (params: {{join .Params ", "}}){{end}}
{{- end}}
{{- end}}

Requirements:
- Include a constructor
- Add appropriate doc comments
- Implement all specified methods
- Follow type design best practices
{{- end}}

{{- define "tests" -}}
Generate comprehensive tests for the following {{.Language}} code using {{.Framework}}:

Code to test:
` + "```" + `{{.Language}}
{{.Code}}
` + "```" + `

Requirements:
- Generate thorough test cases covering normal operation
- Include edge cases and error conditions
- Test boundary conditions
- Use appropriate {{.Framework}} features
- Add descriptive test names
- Achieve high code coverage

Generate the test code:
{{- end}}

{{- define "docs" -}}
Generate comprehensive documentation for the following {{.Language}} code in {{.Format}} format:

Code:
` + "```" + `{{.Language}}
{{.Code}}
` + "```" + `

Include:
- Overview and purpose
- Detailed API documentation
- Parameter descriptions
- Return value documentation
- Usage examples
- Error handling information

Format the documentation appropriately for {{.Format}}:
{{- end}}

{{- define "refactor" -}}
Refactor the following {{.Language}} code to {{.Instruction}}:

Original code:
` + "```" + `{{.Language}}
{{.Code}}
` + "```" + `

Refactoring goals:
- {{.Instruction}}
- Maintain original functionality
- Improve code quality and maintainability
- Follow {{.Language}} best practices

Provide the refactored code:
{{- end}}
`))

func render(name string, data any) (string, error) {
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", name, err)
	}
	return b.String(), nil
}

// Generator produces code through an Assistant.
type Generator struct {
	assistant *provider.Assistant
}

// New returns a Generator using a.
func New(a *provider.Assistant) *Generator {
	return &Generator{assistant: a}
}

// GenerateCode generates code from a free-form description.
func (g *Generator) GenerateCode(ctx context.Context, description, language, background string) (*provider.Response, error) {
	prompt, err := render("code", map[string]string{
		"Language":    language,
		"Description": description,
		"Context":     background,
	})
	if err != nil {
		return nil, err
	}
	return g.assistant.GenerateCode(ctx, prompt, language, background)
}

// GenerateFunction generates a single function.
func (g *Generator) GenerateFunction(ctx context.Context, name, description string, params []Param, returnType, language string) (string, error) {
	if returnType == "" {
		returnType = "any"
	}
	prompt, err := render("function", map[string]any{
		"Language":    language,
		"Name":        name,
		"Description": description,
		"Params":      params,
		"ReturnType":  returnType,
	})
	if err != nil {
		return "", err
	}
	return g.content(g.assistant.GenerateCode(ctx, prompt, language, ""))
}

// GenerateType generates a type (class, struct) with methods.
func (g *Generator) GenerateType(ctx context.Context, name, description string, methods []Method, embeds []string, language string) (string, error) {
	prompt, err := render("type", map[string]any{
		"Language":    language,
		"Name":        name,
		"Description": description,
		"Methods":     methods,
		"Embeds":      embeds,
	})
	if err != nil {
		return "", err
	}
	return g.content(g.assistant.GenerateCode(ctx, prompt, language, ""))
}

// GenerateTests generates tests for code with framework.
func (g *Generator) GenerateTests(ctx context.Context, code, language, framework string) (string, error) {
	prompt, err := render("tests", map[string]string{
		"Language":  language,
		"Framework": framework,
		"Code":      code,
	})
	if err != nil {
		return "", err
	}
	return g.content(g.assistant.GenerateCode(ctx, prompt, language, ""))
}

// GenerateDocs generates documentation for code in format.
func (g *Generator) GenerateDocs(ctx context.Context, code, language, format string) (string, error) {
	prompt, err := render("docs", map[string]string{
		"Language": language,
		"Format":   format,
		"Code":     code,
	})
	if err != nil {
		return "", err
	}
	msgs := []provider.Message{{Role: provider.RoleUser, Content: prompt}}
	return g.content(g.assistant.Provider().GenerateResponse(ctx, msgs))
}

// Refactor rewrites code according to kind. Unknown kinds are passed to the
// model verbatim.
func (g *Generator) Refactor(ctx context.Context, code string, kind RefactorKind, language string) (string, error) {
	instruction, ok := refactorInstructions[kind]
	if !ok {
		instruction = fmt.Sprintf("Refactor using %s approach", kind)
	}
	prompt, err := render("refactor", map[string]string{
		"Language":    language,
		"Instruction": instruction,
		"Code":        code,
	})
	if err != nil {
		return "", err
	}
	return g.content(g.assistant.GenerateCode(ctx, prompt, language, ""))
}

func (g *Generator) content(resp *provider.Response, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
