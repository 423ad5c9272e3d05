package provider

import (
	"context"
	"fmt"
)

// AnalysisType selects the focus of AnalyzeCode.
type AnalysisType string

const (
	AnalysisGeneral     AnalysisType = "general"
	AnalysisPerformance AnalysisType = "performance"
	AnalysisSecurity    AnalysisType = "security"
	AnalysisStyle       AnalysisType = "style"
	AnalysisComplexity  AnalysisType = "complexity"
)

var analysisPrompts = map[AnalysisType]string{
	AnalysisGeneral:     "Analyze this code and provide insights about its structure, functionality, and quality.",
	AnalysisPerformance: "Analyze this code for performance issues and optimization opportunities.",
	AnalysisSecurity:    "Analyze this code for security vulnerabilities and potential issues.",
	AnalysisStyle:       "Analyze this code for style and best practice adherence.",
	AnalysisComplexity:  "Analyze the complexity of this code and suggest simplifications.",
}

// Assistant builds task-specific prompts and sends them through a Provider.
type Assistant struct {
	p Provider
}

// NewAssistant returns an Assistant backed by p.
func NewAssistant(p Provider) *Assistant {
	return &Assistant{p: p}
}

// Provider returns the underlying provider.
func (a *Assistant) Provider() Provider { return a.p }

// Messages builds a system/context/user message list. Empty system and
// background strings are omitted.
func Messages(user, system, background string) []Message {
	var msgs []Message
	if system != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	}
	if background != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: "Context:\n" + background})
	}
	return append(msgs, Message{Role: RoleUser, Content: user})
}

func fenced(language, code string) string {
	return fmt.Sprintf("```%s\n%s\n```", language, code)
}

// GenerateCode asks for new code in language.
func (a *Assistant) GenerateCode(ctx context.Context, prompt, language, background string, opts ...GenerateOption) (*Response, error) {
	system := fmt.Sprintf(`You are an expert %[1]s programmer. Generate clean, efficient, and well-documented code based on the user's request.

Guidelines:
- Write production-ready code
- Include appropriate comments
- Follow best practices for %[1]s
- Handle edge cases
- Use meaningful variable names
- Include type hints where applicable`, language)

	return a.p.GenerateResponse(ctx, Messages(prompt, system, background), opts...)
}

// AnalyzeCode asks for an analysis focused on kind.
// Unknown kinds fall back to a general analysis.
func (a *Assistant) AnalyzeCode(ctx context.Context, code, language string, kind AnalysisType, opts ...GenerateOption) (*Response, error) {
	instruction, ok := analysisPrompts[kind]
	if !ok {
		kind = AnalysisGeneral
		instruction = analysisPrompts[AnalysisGeneral]
	}

	system := fmt.Sprintf(`You are an expert code reviewer and %s developer.
Provide a thorough analysis of the provided code focusing on %s aspects.

Structure your response with:
1. Overall Assessment
2. Specific Issues (if any)
3. Recommendations
4. Code Quality Score (1-10)`, language, kind)

	user := instruction + "\n\n" + fenced(language, code)
	return a.p.GenerateResponse(ctx, Messages(user, system, ""), opts...)
}

// ExplainCode asks for an educational explanation.
func (a *Assistant) ExplainCode(ctx context.Context, code, language string, opts ...GenerateOption) (*Response, error) {
	system := fmt.Sprintf(`You are an expert %s developer and teacher.
Explain the provided code in a clear, educational manner.

Structure your explanation:
1. High-level overview
2. Step-by-step breakdown
3. Key concepts used
4. Purpose and use cases`, language)

	user := fmt.Sprintf("Please explain this %s code:\n\n%s", language, fenced(language, code))
	return a.p.GenerateResponse(ctx, Messages(user, system, ""), opts...)
}

// SuggestImprovements asks for concrete improvement suggestions.
func (a *Assistant) SuggestImprovements(ctx context.Context, code, language string, opts ...GenerateOption) (*Response, error) {
	system := fmt.Sprintf(`You are an expert %s developer and code reviewer.
Analyze the provided code and suggest specific improvements.

Focus on:
- Performance optimizations
- Code readability
- Best practices
- Error handling
- Security considerations

For each suggestion, provide:
1. The issue/opportunity
2. Why it matters
3. Specific code changes`, language)

	user := fmt.Sprintf("Please suggest improvements for this %s code:\n\n%s", language, fenced(language, code))
	return a.p.GenerateResponse(ctx, Messages(user, system, ""), opts...)
}

// FixErrors asks for a fix of code given the error it produces.
func (a *Assistant) FixErrors(ctx context.Context, code, errorMessage, language string, opts ...GenerateOption) (*Response, error) {
	system := fmt.Sprintf(`You are an expert %s developer and debugger.
Fix the error in the provided code and explain the solution.

Provide:
1. Root cause analysis
2. Fixed code
3. Explanation of the fix
4. Prevention tips`, language)

	user := fmt.Sprintf("Fix this %s code that's producing an error:\n\nError message: %s\n\nCode:\n%s",
		language, errorMessage, fenced(language, code))
	return a.p.GenerateResponse(ctx, Messages(user, system, ""), opts...)
}

// TestConnection sends a short greeting and reports whether the provider
// answered with content.
func (a *Assistant) TestConnection(ctx context.Context) error {
	resp, err := a.p.GenerateResponse(ctx, []Message{{Role: RoleUser, Content: "Hello"}}, WithMaxTokens(10))
	if err != nil {
		return err
	}
	if resp.Content == "" {
		return Wrap(a.p.Name(), ErrEmptyResponse)
	}
	return nil
}
