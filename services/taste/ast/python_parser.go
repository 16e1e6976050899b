// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

const (
	// DefaultMaxFileSize is the default parser input limit (10MB).
	DefaultMaxFileSize = 10 * 1024 * 1024

	// WarnFileSize triggers a log warning for large inputs (1MB).
	WarnFileSize = 1024 * 1024
)

// PythonParserOption configures a PythonParser instance.
type PythonParserOption func(*PythonParser)

// WithPythonMaxFileSize sets the maximum file size the parser will accept.
func WithPythonMaxFileSize(bytes int64) PythonParserOption {
	return func(p *PythonParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// PythonParser converts Python source into a structure tree.
//
// Description:
//
//	PythonParser uses tree-sitter to parse Python source and normalize the
//	concrete syntax tree into StructureNode form. Each Parse call creates
//	its own tree-sitter parser instance internally.
//
// Thread Safety:
//
//	PythonParser instances are safe for concurrent use. Multiple goroutines
//	may call Parse simultaneously on the same instance.
type PythonParser struct {
	maxFileSize int64
}

// NewPythonParser creates a new PythonParser with the given options.
func NewPythonParser(opts ...PythonParserOption) *PythonParser {
	p := &PythonParser{
		maxFileSize: DefaultMaxFileSize,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Parse converts Python source code into a structure tree.
//
// Description:
//
//	Parse runs tree-sitter over the content and normalizes the result into
//	an immutable Node tree rooted at a single module node. Syntax errors
//	are reported as *SyntaxError with the location of the first offending
//	token; the caller records them and continues with other inputs.
//
// Inputs:
//   - ctx: Context for cancellation. Checked before and after parsing.
//   - content: Raw Python source bytes. Must be valid UTF-8.
//   - path: File identifier for error reporting.
//
// Outputs:
//   - *Node: Normalized tree rooted at KindModule. Nil on error.
//   - error: ErrFileTooLarge, ErrInvalidContent, *SyntaxError, or a
//     context error.
//
// Thread Safety: This method is safe for concurrent use.
func (p *PythonParser) Parse(ctx context.Context, content []byte, path string) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}

	start := time.Now()

	if int64(len(content)) > p.maxFileSize {
		recordParse(ctx, "python", time.Since(start), false)
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize)
	}

	if len(content) > WarnFileSize {
		slog.Warn("parsing large file",
			slog.String("file", path),
			slog.Int("size_bytes", len(content)))
	}

	if !utf8.Valid(content) {
		recordParse(ctx, "python", time.Since(start), false)
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		recordParse(ctx, "python", time.Since(start), false)
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled after tree-sitter: %w", err)
	}

	root := tree.RootNode()
	if root == nil {
		recordParse(ctx, "python", time.Since(start), false)
		return nil, &SyntaxError{Path: path, Line: 1, Col: 0, Msg: "empty parse tree"}
	}

	if root.HasError() {
		serr := firstSyntaxError(root, path)
		recordParse(ctx, "python", time.Since(start), false)
		return nil, serr
	}

	conv := &pythonConverter{content: content}
	node := conv.convert(root)
	if node == nil {
		node = &Node{Kind: KindModule, Span: nodeSpan(root)}
	}

	recordParse(ctx, "python", time.Since(start), true)

	return node, nil
}

// Language returns the canonical language name for this parser.
func (p *PythonParser) Language() string {
	return "python"
}

// Extensions returns the file extensions this parser handles.
func (p *PythonParser) Extensions() []string {
	return []string{".py", ".pyi"}
}

// firstSyntaxError locates the first ERROR or MISSING node in the tree.
func firstSyntaxError(root *sitter.Node, path string) *SyntaxError {
	var found *sitter.Node

	var walk func(n *sitter.Node) bool
	walk = func(n *sitter.Node) bool {
		if n.Type() == "ERROR" || n.IsMissing() {
			found = n
			return true
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if walk(n.Child(i)) {
				return true
			}
		}
		return false
	}
	walk(root)

	if found == nil {
		found = root
	}

	return &SyntaxError{
		Path: path,
		Line: int(found.StartPoint().Row + 1),
		Col:  int(found.StartPoint().Column),
		Msg:  "syntax error",
	}
}

// nodeSpan converts tree-sitter points to a Span (1-based lines).
func nodeSpan(n *sitter.Node) Span {
	return Span{
		StartLine: int(n.StartPoint().Row + 1),
		StartCol:  int(n.StartPoint().Column),
		EndLine:   int(n.EndPoint().Row + 1),
		EndCol:    int(n.EndPoint().Column),
	}
}

// pythonConverter normalizes tree-sitter Python CST nodes.
type pythonConverter struct {
	content []byte
}

func (c *pythonConverter) text(n *sitter.Node) string {
	return string(c.content[n.StartByte():n.EndByte()])
}

// convert maps a single CST node to a structure node. Returns nil for
// nodes that do not contribute structure (comments, bare punctuation).
func (c *pythonConverter) convert(n *sitter.Node) *Node {
	if n == nil {
		return nil
	}

	switch n.Type() {
	case "comment":
		return nil

	case "module":
		return &Node{Kind: KindModule, Children: c.convertNamedChildren(n), Span: nodeSpan(n)}

	case "block":
		return &Node{Kind: KindBlock, Children: c.convertNamedChildren(n), Span: nodeSpan(n)}

	case "expression_statement":
		// Unwrap to the inner expression but keep the statement wrapper
		// so statement sequences align by kind.
		out := &Node{Kind: KindExprStmt, Slots: map[string]*Node{}, Span: nodeSpan(n)}
		if n.NamedChildCount() > 0 {
			if v := c.convert(n.NamedChild(0)); v != nil {
				out.Slots["value"] = v
			}
		}
		return out

	case "function_definition":
		out := &Node{Kind: KindFunctionDef, Slots: map[string]*Node{}, Span: nodeSpan(n)}
		if name := n.ChildByFieldName("name"); name != nil {
			out.Text = c.text(name)
		}
		if params := n.ChildByFieldName("parameters"); params != nil {
			out.Slots["params"] = c.convertParams(params)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			out.Slots["body"] = c.convert(body)
		}
		return out

	case "class_definition":
		out := &Node{Kind: KindClassDef, Slots: map[string]*Node{}, Span: nodeSpan(n)}
		if name := n.ChildByFieldName("name"); name != nil {
			out.Text = c.text(name)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			out.Slots["body"] = c.convert(body)
		}
		return out

	case "if_statement":
		return c.convertIf(n)

	case "for_statement":
		out := &Node{Kind: KindFor, Slots: map[string]*Node{}, Span: nodeSpan(n)}
		if left := n.ChildByFieldName("left"); left != nil {
			out.Slots["target"] = c.convert(left)
		}
		if right := n.ChildByFieldName("right"); right != nil {
			out.Slots["iter"] = c.convert(right)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			out.Slots["body"] = c.convert(body)
		}
		return out

	case "while_statement":
		out := &Node{Kind: KindWhile, Slots: map[string]*Node{}, Span: nodeSpan(n)}
		if cond := n.ChildByFieldName("condition"); cond != nil {
			out.Slots["condition"] = c.convert(cond)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			out.Slots["body"] = c.convert(body)
		}
		return out

	case "assignment":
		out := &Node{Kind: KindAssign, Slots: map[string]*Node{}, Span: nodeSpan(n)}
		if left := n.ChildByFieldName("left"); left != nil {
			out.Slots["target"] = c.convert(left)
		}
		if right := n.ChildByFieldName("right"); right != nil {
			out.Slots["value"] = c.convert(right)
		}
		return out

	case "augmented_assignment":
		out := &Node{Kind: KindAugAssign, Slots: map[string]*Node{}, Span: nodeSpan(n)}
		if op := n.ChildByFieldName("operator"); op != nil {
			out.Text = c.text(op)
		}
		if left := n.ChildByFieldName("left"); left != nil {
			out.Slots["target"] = c.convert(left)
		}
		if right := n.ChildByFieldName("right"); right != nil {
			out.Slots["value"] = c.convert(right)
		}
		return out

	case "call":
		out := &Node{Kind: KindCall, Slots: map[string]*Node{}, Span: nodeSpan(n)}
		if fn := n.ChildByFieldName("function"); fn != nil {
			out.Slots["func"] = c.convert(fn)
		}
		if args := n.ChildByFieldName("arguments"); args != nil {
			out.Children = c.convertNamedChildren(args)
		}
		return out

	case "keyword_argument":
		out := &Node{Kind: KindKeywordArg, Slots: map[string]*Node{}, Span: nodeSpan(n)}
		if name := n.ChildByFieldName("name"); name != nil {
			out.Text = c.text(name)
		}
		if value := n.ChildByFieldName("value"); value != nil {
			out.Slots["value"] = c.convert(value)
		}
		return out

	case "return_statement":
		out := &Node{Kind: KindReturn, Slots: map[string]*Node{}, Span: nodeSpan(n)}
		if n.NamedChildCount() > 0 {
			if v := c.convert(n.NamedChild(0)); v != nil {
				out.Slots["value"] = v
			}
		}
		return out

	case "comparison_operator":
		return c.convertComparison(n)

	case "binary_operator":
		return c.convertBinary(n, KindBinaryOp)

	case "boolean_operator":
		return c.convertBinary(n, KindBoolOp)

	case "not_operator":
		out := &Node{Kind: KindUnaryOp, Text: "not", Slots: map[string]*Node{}, Span: nodeSpan(n)}
		if arg := n.ChildByFieldName("argument"); arg != nil {
			out.Slots["operand"] = c.convert(arg)
		}
		return out

	case "unary_operator":
		out := &Node{Kind: KindUnaryOp, Slots: map[string]*Node{}, Span: nodeSpan(n)}
		if op := n.ChildByFieldName("operator"); op != nil {
			out.Text = c.text(op)
		}
		if arg := n.ChildByFieldName("argument"); arg != nil {
			out.Slots["operand"] = c.convert(arg)
		}
		return out

	case "attribute":
		out := &Node{Kind: KindAttribute, Slots: map[string]*Node{}, Span: nodeSpan(n)}
		if attr := n.ChildByFieldName("attribute"); attr != nil {
			out.Text = c.text(attr)
		}
		if obj := n.ChildByFieldName("object"); obj != nil {
			out.Slots["value"] = c.convert(obj)
		}
		return out

	case "subscript":
		out := &Node{Kind: KindSubscript, Slots: map[string]*Node{}, Span: nodeSpan(n)}
		if value := n.ChildByFieldName("value"); value != nil {
			out.Slots["value"] = c.convert(value)
		}
		if sub := n.ChildByFieldName("subscript"); sub != nil {
			out.Slots["index"] = c.convert(sub)
		}
		return out

	case "identifier":
		return &Node{Kind: KindName, Text: c.text(n), Span: nodeSpan(n)}

	case "string", "concatenated_string", "integer", "float",
		"true", "false", "none", "ellipsis":
		return &Node{Kind: KindLiteral, Text: c.text(n), Span: nodeSpan(n)}

	case "list", "set":
		return &Node{Kind: KindList, Children: c.convertNamedChildren(n), Span: nodeSpan(n)}

	case "tuple", "expression_list", "pattern_list":
		return &Node{Kind: KindTuple, Children: c.convertNamedChildren(n), Span: nodeSpan(n)}

	case "dictionary":
		return &Node{Kind: KindDict, Children: c.convertNamedChildren(n), Span: nodeSpan(n)}

	case "list_comprehension", "set_comprehension",
		"dictionary_comprehension", "generator_expression":
		return c.convertComprehension(n)

	case "parenthesized_expression":
		if n.NamedChildCount() > 0 {
			return c.convert(n.NamedChild(0))
		}
		return nil

	case "import_statement", "import_from_statement":
		return &Node{Kind: KindImport, Text: c.text(n), Span: nodeSpan(n)}

	case "raise_statement":
		out := &Node{Kind: KindRaise, Slots: map[string]*Node{}, Span: nodeSpan(n)}
		if n.NamedChildCount() > 0 {
			if v := c.convert(n.NamedChild(0)); v != nil {
				out.Slots["value"] = v
			}
		}
		return out

	case "try_statement":
		return &Node{Kind: KindTry, Children: c.convertNamedChildren(n), Span: nodeSpan(n)}

	case "with_statement":
		return &Node{Kind: KindWith, Children: c.convertNamedChildren(n), Span: nodeSpan(n)}

	case "lambda":
		out := &Node{Kind: KindLambda, Slots: map[string]*Node{}, Span: nodeSpan(n)}
		if body := n.ChildByFieldName("body"); body != nil {
			out.Slots["body"] = c.convert(body)
		}
		return out

	default:
		return c.convertGeneric(n)
	}
}

// convertIf normalizes if/elif/else chains. Elif clauses become nested
// KindIf nodes in the "orelse" slot so patterns see a uniform shape.
func (c *pythonConverter) convertIf(n *sitter.Node) *Node {
	out := &Node{Kind: KindIf, Slots: map[string]*Node{}, Span: nodeSpan(n)}

	if cond := n.ChildByFieldName("condition"); cond != nil {
		out.Slots["condition"] = c.convert(cond)
	}
	if body := n.ChildByFieldName("consequence"); body != nil {
		out.Slots["body"] = c.convert(body)
	}

	// Fold elif clauses right-to-left into nested ifs.
	var orelse *Node
	for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
		clause := n.NamedChild(i)
		switch clause.Type() {
		case "else_clause":
			if body := clause.ChildByFieldName("body"); body != nil {
				orelse = c.convert(body)
			}
		case "elif_clause":
			elif := &Node{Kind: KindIf, Slots: map[string]*Node{}, Span: nodeSpan(clause)}
			if cond := clause.ChildByFieldName("condition"); cond != nil {
				elif.Slots["condition"] = c.convert(cond)
			}
			if body := clause.ChildByFieldName("consequence"); body != nil {
				elif.Slots["body"] = c.convert(body)
			}
			if orelse != nil {
				elif.Slots["orelse"] = orelse
			}
			orelse = &Node{Kind: KindBlock, Children: []*Node{elif}, Span: elif.Span}
		}
	}
	if orelse != nil {
		out.Slots["orelse"] = orelse
	}

	return out
}

// convertComparison handles comparison_operator nodes. Binary comparisons
// get left/right slots; chained comparisons keep operands as children.
// The operator token sequence becomes the node text (e.g. "==", "in").
func (c *pythonConverter) convertComparison(n *sitter.Node) *Node {
	out := &Node{Kind: KindCompare, Span: nodeSpan(n)}

	var ops []string
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if !child.IsNamed() {
			ops = append(ops, c.text(child))
		}
	}
	out.Text = strings.Join(ops, " ")

	operands := c.convertNamedChildren(n)
	if len(operands) == 2 {
		out.Slots = map[string]*Node{"left": operands[0], "right": operands[1]}
		return out
	}
	out.Children = operands
	return out
}

func (c *pythonConverter) convertBinary(n *sitter.Node, kind Kind) *Node {
	out := &Node{Kind: kind, Slots: map[string]*Node{}, Span: nodeSpan(n)}
	if op := n.ChildByFieldName("operator"); op != nil {
		out.Text = c.text(op)
	}
	if left := n.ChildByFieldName("left"); left != nil {
		out.Slots["left"] = c.convert(left)
	}
	if right := n.ChildByFieldName("right"); right != nil {
		out.Slots["right"] = c.convert(right)
	}
	return out
}

// convertComprehension normalizes all comprehension forms to a single
// kind with element/target/iter slots plus optional condition.
func (c *pythonConverter) convertComprehension(n *sitter.Node) *Node {
	out := &Node{Kind: KindComprehension, Slots: map[string]*Node{}, Span: nodeSpan(n)}

	if body := n.ChildByFieldName("body"); body != nil {
		out.Slots["element"] = c.convert(body)
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		clause := n.NamedChild(i)
		switch clause.Type() {
		case "for_in_clause":
			if left := clause.ChildByFieldName("left"); left != nil {
				out.Slots["target"] = c.convert(left)
			}
			if right := clause.ChildByFieldName("right"); right != nil {
				out.Slots["iter"] = c.convert(right)
			}
		case "if_clause":
			if clause.NamedChildCount() > 0 {
				out.Slots["condition"] = c.convert(clause.NamedChild(0))
			}
		}
	}

	return out
}

// convertParams flattens a parameter list into a block of param nodes.
func (c *pythonConverter) convertParams(n *sitter.Node) *Node {
	out := &Node{Kind: KindBlock, Span: nodeSpan(n)}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		p := n.NamedChild(i)
		switch p.Type() {
		case "identifier":
			out.Children = append(out.Children, &Node{
				Kind: KindParam, Text: c.text(p), Span: nodeSpan(p),
			})
		default:
			// typed/default/splat parameters keep the parameter name only.
			if name := p.ChildByFieldName("name"); name != nil {
				out.Children = append(out.Children, &Node{
					Kind: KindParam, Text: c.text(name), Span: nodeSpan(p),
				})
			} else if p.NamedChildCount() > 0 && p.NamedChild(0).Type() == "identifier" {
				out.Children = append(out.Children, &Node{
					Kind: KindParam, Text: c.text(p.NamedChild(0)), Span: nodeSpan(p),
				})
			}
		}
	}
	return out
}

// convertGeneric is the fallback for grammar nodes with no dedicated
// kind: the raw node type becomes the kind and named children become
// ordered children. Leaves keep their source text.
func (c *pythonConverter) convertGeneric(n *sitter.Node) *Node {
	out := &Node{Kind: Kind(n.Type()), Span: nodeSpan(n)}
	if n.NamedChildCount() == 0 {
		out.Text = c.text(n)
		return out
	}
	out.Children = c.convertNamedChildren(n)
	return out
}

func (c *pythonConverter) convertNamedChildren(n *sitter.Node) []*Node {
	var out []*Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := c.convert(n.NamedChild(i)); child != nil {
			out = append(out, child)
		}
	}
	return out
}
