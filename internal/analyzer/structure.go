package analyzer

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"
)

// Structure lists the declarations found in a source file. For languages
// that are not parsed locally only Summary is set.
type Structure struct {
	Package   string
	Functions []Function
	Types     []TypeDecl
	Imports   []Import
	Summary   string
	Error     string
}

// Function is a top-level function or method.
type Function struct {
	Name     string
	Line     int
	Receiver string
	Params   []string
	Doc      string
}

// TypeDecl is a named type with the methods declared on it in the same file.
type TypeDecl struct {
	Name    string
	Line    int
	Kind    string // struct, interface or other
	Methods []string
	Doc     string
}

// Import is one import spec.
type Import struct {
	Path  string
	Alias string
	Line  int
}

// GoStructure parses Go source and lists its declarations. A parse failure
// is reported in Structure.Error.
func GoStructure(code string) Structure {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "src.go", code, parser.ParseComments)
	if err != nil {
		return Structure{Error: "syntax error: " + err.Error()}
	}

	s := Structure{Package: f.Name.Name}
	types := make(map[string]int)

	for _, imp := range f.Imports {
		path, _ := strconv.Unquote(imp.Path.Value)
		i := Import{Path: path, Line: fset.Position(imp.Pos()).Line}
		if imp.Name != nil {
			i.Alias = imp.Name.Name
		}
		s.Imports = append(s.Imports, i)
	}

	for _, decl := range f.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, spec := range gen.Specs {
			ts := spec.(*ast.TypeSpec)
			kind := "other"
			switch ts.Type.(type) {
			case *ast.StructType:
				kind = "struct"
			case *ast.InterfaceType:
				kind = "interface"
			}
			doc := ts.Doc
			if doc == nil {
				doc = gen.Doc
			}
			types[ts.Name.Name] = len(s.Types)
			s.Types = append(s.Types, TypeDecl{
				Name: ts.Name.Name,
				Line: fset.Position(ts.Pos()).Line,
				Kind: kind,
				Doc:  strings.TrimSpace(doc.Text()),
			})
		}
	}

	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		out := Function{
			Name: fn.Name.Name,
			Line: fset.Position(fn.Pos()).Line,
			Doc:  strings.TrimSpace(fn.Doc.Text()),
		}
		for _, field := range fn.Type.Params.List {
			if len(field.Names) == 0 {
				out.Params = append(out.Params, "_")
			}
			for _, name := range field.Names {
				out.Params = append(out.Params, name.Name)
			}
		}
		if fn.Recv != nil && len(fn.Recv.List) > 0 {
			out.Receiver = receiverType(fn.Recv.List[0].Type)
			if i, ok := types[out.Receiver]; ok {
				s.Types[i].Methods = append(s.Types[i].Methods, fn.Name.Name)
			}
		}
		s.Functions = append(s.Functions, out)
	}

	return s
}

// receiverType strips pointers and type parameters from a receiver.
func receiverType(expr ast.Expr) string {
	for {
		switch t := expr.(type) {
		case *ast.StarExpr:
			expr = t.X
		case *ast.IndexExpr:
			expr = t.X
		case *ast.IndexListExpr:
			expr = t.X
		case *ast.Ident:
			return t.Name
		default:
			return ""
		}
	}
}
