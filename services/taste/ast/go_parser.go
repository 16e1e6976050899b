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
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// GoParserOption configures a GoParser instance.
type GoParserOption func(*GoParser)

// WithGoMaxFileSize sets the maximum file size the parser will accept.
func WithGoMaxFileSize(bytes int64) GoParserOption {
	return func(p *GoParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// GoParser converts Go source into a structure tree.
//
// Thread Safety: safe for concurrent use; each Parse call creates its own
// tree-sitter parser instance.
type GoParser struct {
	maxFileSize int64
}

// NewGoParser creates a new GoParser with the given options.
func NewGoParser(opts ...GoParserOption) *GoParser {
	p := &GoParser{
		maxFileSize: DefaultMaxFileSize,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Parse converts Go source code into a structure tree. Semantics match
// PythonParser.Parse: syntax errors come back as *SyntaxError, complete
// failures as wrapped sentinel errors.
func (p *GoParser) Parse(ctx context.Context, content []byte, path string) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}

	start := time.Now()

	if int64(len(content)) > p.maxFileSize {
		recordParse(ctx, "go", time.Since(start), false)
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize)
	}

	if !utf8.Valid(content) {
		recordParse(ctx, "go", time.Since(start), false)
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		recordParse(ctx, "go", time.Since(start), false)
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled after tree-sitter: %w", err)
	}

	root := tree.RootNode()
	if root == nil {
		recordParse(ctx, "go", time.Since(start), false)
		return nil, &SyntaxError{Path: path, Line: 1, Col: 0, Msg: "empty parse tree"}
	}

	if root.HasError() {
		serr := firstSyntaxError(root, path)
		recordParse(ctx, "go", time.Since(start), false)
		return nil, serr
	}

	conv := &goConverter{content: content}
	node := conv.convert(root)
	if node == nil {
		node = &Node{Kind: KindModule, Span: nodeSpan(root)}
	}

	recordParse(ctx, "go", time.Since(start), true)

	return node, nil
}

// Language returns the canonical language name for this parser.
func (p *GoParser) Language() string {
	return "go"
}

// Extensions returns the file extensions this parser handles.
func (p *GoParser) Extensions() []string {
	return []string{".go"}
}

// goConverter normalizes tree-sitter Go CST nodes.
type goConverter struct {
	content []byte
}

func (c *goConverter) text(n *sitter.Node) string {
	return string(c.content[n.StartByte():n.EndByte()])
}

func (c *goConverter) convert(n *sitter.Node) *Node {
	if n == nil {
		return nil
	}

	switch n.Type() {
	case "comment":
		return nil

	case "source_file":
		return &Node{Kind: KindModule, Children: c.convertNamedChildren(n), Span: nodeSpan(n)}

	case "block", "statement_list":
		return &Node{Kind: KindBlock, Children: c.convertNamedChildren(n), Span: nodeSpan(n)}

	case "function_declaration", "method_declaration":
		out := &Node{Kind: KindFunctionDef, Slots: map[string]*Node{}, Span: nodeSpan(n)}
		if name := n.ChildByFieldName("name"); name != nil {
			out.Text = c.text(name)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			out.Slots["body"] = c.convert(body)
		}
		return out

	case "type_declaration":
		out := &Node{Kind: KindClassDef, Span: nodeSpan(n)}
		if n.NamedChildCount() > 0 {
			spec := n.NamedChild(0)
			if name := spec.ChildByFieldName("name"); name != nil {
				out.Text = c.text(name)
			}
		}
		return out

	case "if_statement":
		out := &Node{Kind: KindIf, Slots: map[string]*Node{}, Span: nodeSpan(n)}
		if cond := n.ChildByFieldName("condition"); cond != nil {
			out.Slots["condition"] = c.convert(cond)
		}
		if body := n.ChildByFieldName("consequence"); body != nil {
			out.Slots["body"] = c.convert(body)
		}
		if alt := n.ChildByFieldName("alternative"); alt != nil {
			if conv := c.convert(alt); conv != nil {
				// Wrap a trailing "else if" in a block so the orelse slot
				// always holds a block, matching the Python normalization.
				if conv.Kind != KindBlock {
					conv = &Node{Kind: KindBlock, Children: []*Node{conv}, Span: conv.Span}
				}
				out.Slots["orelse"] = conv
			}
		}
		return out

	case "for_statement":
		out := &Node{Kind: KindFor, Slots: map[string]*Node{}, Span: nodeSpan(n)}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			clause := n.NamedChild(i)
			switch clause.Type() {
			case "range_clause":
				if left := clause.ChildByFieldName("left"); left != nil {
					out.Slots["target"] = c.convert(left)
				}
				if right := clause.ChildByFieldName("right"); right != nil {
					out.Slots["iter"] = c.convert(right)
				}
			case "for_clause":
				if cond := clause.ChildByFieldName("condition"); cond != nil {
					out.Slots["condition"] = c.convert(cond)
				}
			case "block":
				out.Slots["body"] = c.convert(clause)
			default:
				// Bare condition loop: for x < y { ... }
				if clause.Type() != "block" && out.Slots["condition"] == nil && i == 0 {
					out.Slots["condition"] = c.convert(clause)
				}
			}
		}
		if body := n.ChildByFieldName("body"); body != nil {
			out.Slots["body"] = c.convert(body)
		}
		return out

	case "short_var_declaration", "assignment_statement":
		kind := KindAssign
		if op := n.ChildByFieldName("operator"); op != nil && c.text(op) != "=" && c.text(op) != ":=" {
			kind = KindAugAssign
		}
		out := &Node{Kind: kind, Slots: map[string]*Node{}, Span: nodeSpan(n)}
		if kind == KindAugAssign {
			out.Text = c.text(n.ChildByFieldName("operator"))
		}
		if left := n.ChildByFieldName("left"); left != nil {
			out.Slots["target"] = c.convert(left)
		}
		if right := n.ChildByFieldName("right"); right != nil {
			out.Slots["value"] = c.convert(right)
		}
		return out

	case "call_expression":
		out := &Node{Kind: KindCall, Slots: map[string]*Node{}, Span: nodeSpan(n)}
		if fn := n.ChildByFieldName("function"); fn != nil {
			out.Slots["func"] = c.convert(fn)
		}
		if args := n.ChildByFieldName("arguments"); args != nil {
			out.Children = c.convertNamedChildren(args)
		}
		return out

	case "expression_statement":
		out := &Node{Kind: KindExprStmt, Slots: map[string]*Node{}, Span: nodeSpan(n)}
		if n.NamedChildCount() > 0 {
			if v := c.convert(n.NamedChild(0)); v != nil {
				out.Slots["value"] = v
			}
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

	case "binary_expression":
		kind := KindBinaryOp
		opText := ""
		if op := n.ChildByFieldName("operator"); op != nil {
			opText = c.text(op)
		}
		switch opText {
		case "==", "!=", "<", "<=", ">", ">=":
			kind = KindCompare
		case "&&", "||":
			kind = KindBoolOp
		}
		out := &Node{Kind: kind, Text: opText, Slots: map[string]*Node{}, Span: nodeSpan(n)}
		if left := n.ChildByFieldName("left"); left != nil {
			out.Slots["left"] = c.convert(left)
		}
		if right := n.ChildByFieldName("right"); right != nil {
			out.Slots["right"] = c.convert(right)
		}
		return out

	case "unary_expression":
		out := &Node{Kind: KindUnaryOp, Slots: map[string]*Node{}, Span: nodeSpan(n)}
		if op := n.ChildByFieldName("operator"); op != nil {
			out.Text = c.text(op)
		}
		if operand := n.ChildByFieldName("operand"); operand != nil {
			out.Slots["operand"] = c.convert(operand)
		}
		return out

	case "selector_expression":
		out := &Node{Kind: KindAttribute, Slots: map[string]*Node{}, Span: nodeSpan(n)}
		if field := n.ChildByFieldName("field"); field != nil {
			out.Text = c.text(field)
		}
		if operand := n.ChildByFieldName("operand"); operand != nil {
			out.Slots["value"] = c.convert(operand)
		}
		return out

	case "index_expression":
		out := &Node{Kind: KindSubscript, Slots: map[string]*Node{}, Span: nodeSpan(n)}
		if operand := n.ChildByFieldName("operand"); operand != nil {
			out.Slots["value"] = c.convert(operand)
		}
		if index := n.ChildByFieldName("index"); index != nil {
			out.Slots["index"] = c.convert(index)
		}
		return out

	case "identifier", "field_identifier", "package_identifier", "type_identifier":
		return &Node{Kind: KindName, Text: c.text(n), Span: nodeSpan(n)}

	case "interpreted_string_literal", "raw_string_literal", "rune_literal",
		"int_literal", "float_literal", "imaginary_literal", "true", "false", "nil", "iota":
		return &Node{Kind: KindLiteral, Text: c.text(n), Span: nodeSpan(n)}

	case "composite_literal":
		return &Node{Kind: KindList, Children: c.convertNamedChildren(n), Span: nodeSpan(n)}

	case "parenthesized_expression":
		if n.NamedChildCount() > 0 {
			return c.convert(n.NamedChild(0))
		}
		return nil

	case "import_declaration":
		return &Node{Kind: KindImport, Text: c.text(n), Span: nodeSpan(n)}

	case "defer_statement", "go_statement":
		out := &Node{Kind: Kind(n.Type()), Slots: map[string]*Node{}, Span: nodeSpan(n)}
		if n.NamedChildCount() > 0 {
			if v := c.convert(n.NamedChild(0)); v != nil {
				out.Slots["value"] = v
			}
		}
		return out

	default:
		out := &Node{Kind: Kind(n.Type()), Span: nodeSpan(n)}
		if n.NamedChildCount() == 0 {
			out.Text = c.text(n)
			return out
		}
		out.Children = c.convertNamedChildren(n)
		return out
	}
}

func (c *goConverter) convertNamedChildren(n *sitter.Node) []*Node {
	var out []*Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := c.convert(n.NamedChild(i)); child != nil {
			out = append(out, child)
		}
	}
	return out
}
