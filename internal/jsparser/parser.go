// Package jsparser is the default implementation of spec.md §6's external
// parser contract, parse_file(absolutePath) -> FileInfo, for the
// JS/TS/JSX/TSX source family. Grounded on the teacher's
// internal/parser/parser_language_setup.go (per-extension tree-sitter
// Parser + Language setup) and internal/parser/parser.go's
// parse-then-walk structure, narrowed to this module's fixed four-language
// family and to the flatter FileInfo shape spec.md defines (no block
// boundaries, no cross-file symbol linking).
package jsparser

import (
	"fmt"
	"os"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/codebasemap/codebasemap/internal/debug"
	"github.com/codebasemap/codebasemap/internal/types"
)

// Parser holds one compiled tree-sitter Language per supported extension.
// A Parser is safe for concurrent use: ParseFile creates a fresh
// tree_sitter.Parser per call (the Language itself is immutable and
// shared) since go-tree-sitter's Parser is not safe to call concurrently
// from multiple goroutines.
type Parser struct {
	languages map[string]*tree_sitter.Language
}

// New builds the JS/JSX/TS/TSX language table.
func New() *Parser {
	js := tree_sitter.NewLanguage(tree_sitter_javascript.Language())
	ts := tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	tsx := tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())
	return &Parser{
		languages: map[string]*tree_sitter.Language{
			".js":  js,
			".jsx": js,
			".ts":  ts,
			".tsx": tsx,
		},
	}
}

// ParseFile reads and parses absPath, returning its FileInfo. ext must be
// one of the four supported extensions; callers are expected to have
// already filtered by types.IsSupportedExtension.
func (p *Parser) ParseFile(absPath, ext string) (types.FileInfo, error) {
	lang, ok := p.languages[ext]
	if !ok {
		return types.EmptyFileInfo(), fmt.Errorf("jsparser: unsupported extension %q", ext)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return types.EmptyFileInfo(), err
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(lang); err != nil {
		return types.EmptyFileInfo(), err
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return types.EmptyFileInfo(), fmt.Errorf("jsparser: parse returned nil tree for %s", absPath)
	}
	defer tree.Close()

	w := &walker{content: content}
	w.visit(tree.RootNode())
	return w.result(), nil
}

// walker recursively descends the tree-sitter AST collecting the four
// FileInfo slices. It deliberately does not use tree-sitter's query
// cursor: associating methods with their owning class and distinguishing
// top-level consts from nested ones is simpler as a direct tree walk.
type walker struct {
	content   []byte
	imports   []types.ImportInfo
	functions []types.FuncSig
	classes   []types.ClassInfo
	constants []types.ConstInfo
}

func (w *walker) result() types.FileInfo {
	info := types.EmptyFileInfo()
	if len(w.imports) > 0 {
		info.Imports = w.imports
	}
	if len(w.functions) > 0 {
		info.Functions = w.functions
	}
	if len(w.classes) > 0 {
		info.Classes = w.classes
	}
	if len(w.constants) > 0 {
		info.Constants = w.constants
	}
	return info
}

func (w *walker) text(n *tree_sitter.Node) string {
	return string(w.content[n.StartByte():n.EndByte()])
}

// unquote strips the surrounding quote characters a (string) node always
// carries in this grammar family.
func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') || (first == '`' && last == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func (w *walker) visit(n *tree_sitter.Node) {
	if n == nil {
		return
	}
	switch n.Kind() {
	case "import_statement":
		w.visitImportStatement(n)
	case "export_statement":
		w.visitExportStatement(n)
	case "call_expression":
		w.visitCallExpression(n)
	case "function_declaration", "generator_function_declaration":
		if sig, ok := w.functionSig(n); ok {
			w.functions = append(w.functions, sig)
		}
	case "class_declaration":
		w.classes = append(w.classes, w.classInfo(n))
		return // class_body children (methods) are handled inside classInfo
	case "variable_declarator":
		w.visitVariableDeclarator(n)
	}

	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		w.visit(n.Child(uint(i)))
	}
}

func (w *walker) visitImportStatement(n *tree_sitter.Node) {
	src := firstChildOfKind(n, "string")
	if src == nil {
		return
	}
	w.imports = append(w.imports, types.ImportInfo{
		From: unquote(w.text(src)),
		Kind: types.SpecifierImport,
	})
}

func (w *walker) visitExportStatement(n *tree_sitter.Node) {
	src := firstChildOfKind(n, "string")
	if src == nil {
		return
	}
	w.imports = append(w.imports, types.ImportInfo{
		From: unquote(w.text(src)),
		Kind: types.SpecifierExport,
	})
}

func (w *walker) visitCallExpression(n *tree_sitter.Node) {
	fn := n.ChildByFieldName("function")
	args := n.ChildByFieldName("arguments")
	if fn == nil || args == nil {
		return
	}
	arg := firstChildOfKind(args, "string")
	if arg == nil {
		return
	}
	switch {
	case fn.Kind() == "identifier" && w.text(fn) == "require":
		w.imports = append(w.imports, types.ImportInfo{From: unquote(w.text(arg)), Kind: types.SpecifierRequire})
	case fn.Kind() == "import":
		w.imports = append(w.imports, types.ImportInfo{From: unquote(w.text(arg)), Kind: types.SpecifierDynamicImport})
	}
}

func (w *walker) visitVariableDeclarator(n *tree_sitter.Node) {
	name := n.ChildByFieldName("name")
	value := n.ChildByFieldName("value")
	if name == nil {
		return
	}
	nameText := identifierText(w, name)
	if value != nil {
		switch value.Kind() {
		case "arrow_function", "function_expression", "generator_function":
			w.functions = append(w.functions, types.FuncSig{
				Name:   nameText,
				Params: w.paramList(value.ChildByFieldName("parameters")),
				Async:  hasAsyncKeyword(value),
			})
			return
		}
	}
	// A top-level (module-scope) declarator that isn't a function value is
	// recorded as a constant; nested declarators (inside function bodies)
	// are skipped since spec.md's Constants slot is module-level only.
	if isModuleScopeDeclarator(n) {
		w.constants = append(w.constants, types.ConstInfo{
			Name: nameText,
			Type: typeAnnotationText(w, name),
		})
	}
}

// isModuleScopeDeclarator reports whether n's enclosing variable_declaration
// is a direct child of the program root (not nested in a function/block).
func isModuleScopeDeclarator(n *tree_sitter.Node) bool {
	decl := n.Parent() // variable_declaration
	if decl == nil {
		return false
	}
	stmt := decl.Parent() // lexical_declaration's parent, or program itself
	for stmt != nil {
		switch stmt.Kind() {
		case "program":
			return true
		case "statement_block", "function_declaration", "arrow_function", "function_expression", "method_definition":
			return false
		}
		stmt = stmt.Parent()
	}
	return false
}

func (w *walker) functionSig(n *tree_sitter.Node) (types.FuncSig, bool) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return types.FuncSig{}, false
	}
	returns := ""
	if rt := n.ChildByFieldName("return_type"); rt != nil {
		returns = strings.TrimPrefix(w.text(rt), ":")
		returns = strings.TrimSpace(returns)
	}
	return types.FuncSig{
		Name:    identifierText(w, name),
		Params:  w.paramList(n.ChildByFieldName("parameters")),
		Returns: returns,
		Async:   hasAsyncKeyword(n),
	}, true
}

func (w *walker) paramList(params *tree_sitter.Node) []types.ParamInfo {
	if params == nil {
		return nil
	}
	var out []types.ParamInfo
	count := int(params.ChildCount())
	for i := 0; i < count; i++ {
		c := params.Child(uint(i))
		switch c.Kind() {
		case "identifier":
			out = append(out, types.ParamInfo{Name: w.text(c)})
		case "required_parameter", "optional_parameter":
			pat := c.ChildByFieldName("pattern")
			if pat == nil {
				continue
			}
			out = append(out, types.ParamInfo{Name: identifierText(w, pat), Type: typeAnnotationText(w, c)})
		case "assignment_pattern":
			left := c.ChildByFieldName("left")
			if left != nil {
				out = append(out, types.ParamInfo{Name: identifierText(w, left)})
			}
		}
	}
	return out
}

func (w *walker) classInfo(n *tree_sitter.Node) types.ClassInfo {
	name := n.ChildByFieldName("name")
	info := types.ClassInfo{Name: identifierText(w, name)}

	if heritage := firstChildOfKind(n, "class_heritage"); heritage != nil {
		count := int(heritage.ChildCount())
		for i := 0; i < count; i++ {
			c := heritage.Child(uint(i))
			switch c.Kind() {
			case "extends_clause":
				if v := c.ChildByFieldName("value"); v != nil {
					info.Extends = identifierText(w, v)
				}
			case "identifier", "member_expression":
				// The JavaScript grammar puts the superclass expression
				// directly under class_heritage, with no extends_clause.
				info.Extends = identifierText(w, c)
			}
		}
	}

	body := n.ChildByFieldName("body")
	if body != nil {
		count := int(body.ChildCount())
		for i := 0; i < count; i++ {
			c := body.Child(uint(i))
			switch c.Kind() {
			case "method_definition":
				if mname := c.ChildByFieldName("name"); mname != nil {
					info.Methods = append(info.Methods, w.text(mname))
				}
			case "public_field_definition", "field_definition":
				if pname := c.ChildByFieldName("property"); pname != nil {
					info.Properties = append(info.Properties, w.text(pname))
				}
			}
			// Function/class values nested in the class body (e.g. arrow
			// function class properties) are still visited for completeness.
			w.visit(c)
		}
	}
	return info
}

func firstChildOfKind(n *tree_sitter.Node, kind string) *tree_sitter.Node {
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		c := n.Child(uint(i))
		if c.Kind() == kind {
			return c
		}
	}
	return nil
}

func identifierText(w *walker, n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind() {
	case "identifier", "type_identifier", "property_identifier", "private_property_identifier":
		return w.text(n)
	default:
		return w.text(n)
	}
}

// typeAnnotationText extracts a ": Type" suffix's Type portion from a
// TypeScript required_parameter/optional_parameter node, or from a
// variable_declarator's name node when it carries a type_annotation
// sibling. Returns "" for plain JavaScript nodes.
func typeAnnotationText(w *walker, n *tree_sitter.Node) string {
	ann := firstChildOfKind(n, "type_annotation")
	if ann == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(w.text(ann), ":"))
}

func hasAsyncKeyword(n *tree_sitter.Node) bool {
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		c := n.Child(uint(i))
		if c.Kind() == "async" {
			return true
		}
	}
	return false
}

// Warn logs a parse failure through the shared debug sink, matching the
// teacher's "log and continue" policy for per-file parser errors.
func Warn(path string, err error) {
	debug.Warn("parse", path, err)
}
