package analyzer

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/discochess/codeassist/internal/lang"
)

// Complexity holds complexity metrics. Cyclomatic, FunctionCount and
// TypeCount are only computed for Go; Measured reports whether they were.
type Complexity struct {
	Measured      bool
	Cyclomatic    int
	NestingDepth  int
	FunctionCount int
	TypeCount     int
	LinesOfCode   int
	Error         string
}

// MeasureComplexity computes complexity for code. Non-Go sources get a
// nesting estimate from indentation.
func MeasureComplexity(code string, language lang.Language) Complexity {
	c := Complexity{LinesOfCode: Stats(code, language).NonEmptyLines}
	if language != lang.Go {
		c.NestingDepth = indentDepth(code)
		return c
	}

	f, err := parser.ParseFile(token.NewFileSet(), "src.go", code, 0)
	if err != nil {
		c.Error = "syntax error: " + err.Error()
		c.NestingDepth = indentDepth(code)
		return c
	}

	c.Measured = true
	c.Cyclomatic = 1

	var stack []bool // whether each open node adds a nesting level
	depth := 0
	ast.Inspect(f, func(n ast.Node) bool {
		if n == nil {
			if stack[len(stack)-1] {
				depth--
			}
			stack = stack[:len(stack)-1]
			return true
		}

		nests := false
		switch n := n.(type) {
		case *ast.IfStmt, *ast.ForStmt, *ast.RangeStmt:
			c.Cyclomatic++
			nests = true
		case *ast.SwitchStmt, *ast.TypeSwitchStmt, *ast.SelectStmt:
			nests = true
		case *ast.CaseClause:
			if n.List != nil {
				c.Cyclomatic++
			}
		case *ast.CommClause:
			if n.Comm != nil {
				c.Cyclomatic++
			}
		case *ast.BinaryExpr:
			if n.Op == token.LAND || n.Op == token.LOR {
				c.Cyclomatic++
			}
		case *ast.FuncDecl:
			c.FunctionCount++
			nests = true
		case *ast.FuncLit:
			nests = true
		case *ast.TypeSpec:
			c.TypeCount++
		}

		if nests {
			depth++
			c.NestingDepth = max(c.NestingDepth, depth)
		}
		stack = append(stack, nests)
		return true
	})

	return c
}

// indentDepth estimates nesting from the deepest indentation, counting a tab
// or four spaces as one level.
func indentDepth(code string) int {
	deepest := 0
	for _, line := range strings.Split(code, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		width := 0
	indent:
		for _, r := range line {
			switch r {
			case ' ':
				width++
			case '\t':
				width += 4
			default:
				break indent
			}
		}
		deepest = max(deepest, width)
	}
	return deepest / 4
}
