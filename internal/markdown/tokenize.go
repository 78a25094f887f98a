/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package markdown turns CommonMark source into a flat, tag-stream like
// sequence of tokens. Parsing is delegated to goldmark; this package only
// flattens its AST into open/close pairs with inline payloads.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var md = goldmark.New()

// Tokenize parses src and returns the flattened token sequence.
// Link reference definitions are consumed by the parser and never surface.
func Tokenize(src []byte) []Token {
	doc := md.Parser().Parse(text.NewReader(src))
	f := &flattener{source: src}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		f.block(n, 0)
	}
	return f.out
}

// TokenizeString is Tokenize for string input.
func TokenizeString(src string) []Token { return Tokenize([]byte(src)) }

type flattener struct {
	source []byte
	out    []Token
}

func (f *flattener) emit(t Token) { f.out = append(f.out, t) }

func (f *flattener) block(n ast.Node, level int) {
	switch v := n.(type) {
	case *ast.Heading:
		tag := fmt.Sprintf("h%d", v.Level)
		f.emit(Token{Type: TypeHeadingOpen, Tag: tag, Level: level})
		f.inline(v, level+1)
		f.emit(Token{Type: TypeHeadingClose, Tag: tag, Level: level})
	case *ast.Paragraph, *ast.TextBlock:
		// Tight list items carry a TextBlock; both render as a paragraph pair.
		f.emit(Token{Type: TypeParagraphOpen, Tag: "p", Level: level})
		f.inline(v, level+1)
		f.emit(Token{Type: TypeParagraphClose, Tag: "p", Level: level})
	case *ast.List:
		open, closeType, tag := TypeBulletListOpen, TypeBulletListClose, "ul"
		if v.IsOrdered() {
			open, closeType, tag = TypeOrderedListOpen, TypeOrderedListEnd, "ol"
		}
		f.emit(Token{Type: open, Tag: tag, Level: level})
		f.children(v, level+1)
		f.emit(Token{Type: closeType, Tag: tag, Level: level})
	case *ast.ListItem:
		f.emit(Token{Type: TypeListItemOpen, Tag: "li", Level: level})
		f.children(v, level+1)
		f.emit(Token{Type: TypeListItemClose, Tag: "li", Level: level})
	case *ast.Blockquote:
		f.emit(Token{Type: TypeBlockquoteOpen, Tag: "blockquote", Level: level})
		f.children(v, level+1)
		f.emit(Token{Type: TypeBlockquoteClose, Tag: "blockquote", Level: level})
	case *ast.FencedCodeBlock:
		t := Token{Type: TypeFence, Tag: "code", Content: f.rawLines(v.Lines()), Level: level}
		if v.Info != nil {
			t.Info = strings.TrimSpace(string(v.Info.Segment.Value(f.source)))
		}
		f.emit(t)
	case *ast.CodeBlock:
		f.emit(Token{Type: TypeCodeBlock, Tag: "code", Content: f.rawLines(v.Lines()), Level: level})
	case *ast.HTMLBlock:
		var b bytes.Buffer
		b.WriteString(f.rawLines(v.Lines()))
		if v.HasClosure() {
			b.Write(v.ClosureLine.Value(f.source))
		}
		f.emit(Token{Type: TypeHTMLBlock, Content: b.String(), Level: level})
	case *ast.ThematicBreak:
		f.emit(Token{Type: TypeHR, Tag: "hr", Level: level})
	default:
		f.children(n, level)
	}
}

func (f *flattener) children(n ast.Node, level int) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		f.block(c, level)
	}
}

// inline emits the inline token of a text-bearing block. Content is the raw
// source, line by line, trimmed; children are one text token per source line
// with code spans split out.
func (f *flattener) inline(n ast.Node, level int) {
	lines := n.Lines()
	raw := make([]string, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		raw = append(raw, strings.TrimSpace(string(seg.Value(f.source))))
	}
	c := &inlineCollector{source: f.source}
	c.walk(n)
	c.flush()
	f.emit(Token{
		Type:     TypeInline,
		Content:  strings.Join(raw, "\n"),
		Level:    level,
		Children: c.out,
	})
}

func (f *flattener) rawLines(lines *text.Segments) string {
	var b bytes.Buffer
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(f.source))
	}
	return b.String()
}

type inlineCollector struct {
	source []byte
	line   strings.Builder
	out    []Token
}

func (c *inlineCollector) walk(n ast.Node) {
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch v := child.(type) {
		case *ast.Text:
			c.line.Write(v.Segment.Value(c.source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				c.flush()
			}
		case *ast.String:
			c.line.Write(v.Value)
		case *ast.CodeSpan:
			c.flush()
			c.out = append(c.out, Token{Type: TypeCodeInline, Content: c.codeSpan(v)})
		case *ast.AutoLink:
			c.line.Write(v.Label(c.source))
		case *ast.RawHTML:
			for i := 0; i < v.Segments.Len(); i++ {
				seg := v.Segments.At(i)
				c.line.Write(seg.Value(c.source))
			}
		default:
			// emphasis, links and images contribute their text only
			c.walk(child)
		}
	}
}

func (c *inlineCollector) codeSpan(n *ast.CodeSpan) string {
	var b strings.Builder
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch v := child.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(c.source))
		case *ast.String:
			b.Write(v.Value)
		}
	}
	return strings.ReplaceAll(b.String(), "\n", " ")
}

func (c *inlineCollector) flush() {
	s := strings.TrimSpace(string(unescape([]byte(c.line.String()))))
	c.line.Reset()
	if s == "" {
		return
	}
	c.out = append(c.out, Token{Type: TypeText, Content: s})
}

func unescape(b []byte) []byte {
	b = util.ResolveNumericReferences(b)
	b = util.ResolveEntityNames(b)
	return util.UnescapePunctuations(b)
}
