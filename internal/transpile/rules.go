/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package transpile

import (
	"strings"

	"mdrpy/internal/markdown"
)

// rule is one entry of the dispatch table. The first matching rule handles a token.
type rule struct {
	name  string
	match func(markdown.Token) bool
	apply func(*pass, markdown.Token) error
}

func isType(typ string) func(markdown.Token) bool {
	return func(tok markdown.Token) bool { return tok.Type == typ }
}

// ruleTable returns the rules in priority order. The escape rule comes first
// and applies to every token type.
func (t *Transpiler) ruleTable() []rule {
	ignore := t.opts.Syntax.Ignore
	return []rule{
		{"escape", func(tok markdown.Token) bool { return strings.HasPrefix(tok.Content, ignore) }, (*pass).escape},
		{"blockquote_open", isType(markdown.TypeBlockquoteOpen), (*pass).blockquoteOpen},
		{"fence", isType(markdown.TypeFence), (*pass).fence},
		{"inline", func(tok markdown.Token) bool { return tok.IsInline() }, (*pass).inline},
		{"heading_open", isType(markdown.TypeHeadingOpen), (*pass).headingOpen},
		{"bullet_list_open", isType(markdown.TypeBulletListOpen), (*pass).bulletListOpen},
		{"list_item_open", isType(markdown.TypeListItemOpen), (*pass).listItemOpen},
		{"list_item_close", isType(markdown.TypeListItemClose), (*pass).listItemClose},
		{"bullet_list_close", isType(markdown.TypeBulletListClose), (*pass).bulletListClose},
		{"blockquote_close", isType(markdown.TypeBlockquoteClose), (*pass).blockquoteClose},
		{"html_block", isType(markdown.TypeHTMLBlock), (*pass).htmlBlock},
	}
}

func (p *pass) escape(tok markdown.Token) error {
	rest := strings.TrimPrefix(tok.Content, p.t.opts.Syntax.Ignore)
	return p.line(strings.TrimSpace(rest))
}

// blockquoteOpen starts an "extend" line. The quoted paragraph that follows
// is written one level shallower, right after the keyword; the close undoes
// the dedent. At level zero there is nothing to dedent.
func (p *pass) blockquoteOpen(markdown.Token) error {
	if err := p.indent(); err != nil {
		return err
	}
	p.out.WriteString("extend ")
	dedented := p.st.IndentLevel > 0
	if dedented {
		p.st.IndentLevel--
	}
	p.st.quotes = append(p.st.quotes, dedented)
	return nil
}

func (p *pass) blockquoteClose(markdown.Token) error {
	n := len(p.st.quotes)
	if n == 0 {
		return nil
	}
	dedented := p.st.quotes[n-1]
	p.st.quotes = p.st.quotes[:n-1]
	if dedented {
		p.st.IndentLevel++
	}
	return nil
}

// fence copies code verbatim, each line at the current indent. The first
// line is preceded by one extra indent.
func (p *pass) fence(tok markdown.Token) error {
	ind, err := Indent(p.st.IndentLevel)
	if err != nil {
		return err
	}
	p.out.WriteString(ind)
	for i, l := range strings.Split(strings.TrimSpace(tok.Content), "\n") {
		if i > 0 {
			p.out.WriteByte('\n')
		}
		p.out.WriteString(ind)
		p.out.WriteString(l)
	}
	p.out.WriteByte('\n')
	return nil
}

func (p *pass) inline(tok markdown.Token) error {
	for _, child := range tok.Children {
		var body string
		content, comment := ExtractComment(child.Content)
		switch child.Type {
		case markdown.TypeText:
			body = p.statement(content)
		case markdown.TypeCodeInline:
			body = "$ " + content
		default:
			continue
		}
		if err := p.line(body + commentSuffix(comment)); err != nil {
			return err
		}
	}
	return nil
}

// statement renders a comment-free text line: call, jump or dialogue.
func (p *pass) statement(content string) string {
	syn := p.t.opts.Syntax
	switch {
	case strings.HasPrefix(content, syn.Call):
		return "call " + strings.TrimSpace(content[len(syn.Call):])
	case strings.HasPrefix(content, syn.Jump):
		return "jump " + strings.TrimSpace(content[len(syn.Jump):])
	default:
		return p.t.speakers.dialogue(content, p.t.opts.CharacterDelim)
	}
}

// headingOpen consumes the heading text and starts a new label at level one.
func (p *pass) headingOpen(tok markdown.Token) error {
	next, ok := p.cur.Peek(1)
	if !ok || !next.IsInline() {
		return p.malformed(tok, "heading text")
	}
	p.cur.Advance(1)
	if p.out.Len() > 0 {
		p.out.WriteByte('\n')
	}
	p.out.WriteString("label " + p.t.translit(next.Content) + ":\n")
	p.st.IndentLevel = 1
	return nil
}

// bulletListOpen inspects the first item label, three tokens ahead. A leading
// '?' makes the list a chain of if/elif/else branches without a menu block.
func (p *pass) bulletListOpen(tok markdown.Token) error {
	first, ok := p.cur.Peek(3)
	if !ok {
		return p.malformed(tok, "first list item")
	}
	conditional := strings.HasPrefix(first.Content, "?")
	p.st.lists = append(p.st.lists, conditional)
	p.st.ConditionalList = conditional
	if conditional {
		return nil
	}
	if err := p.line("menu:"); err != nil {
		return err
	}
	p.st.IndentLevel++
	return nil
}

func (p *pass) bulletListClose(markdown.Token) error {
	n := len(p.st.lists)
	if n == 0 {
		return nil
	}
	conditional := p.st.lists[n-1]
	p.st.lists = p.st.lists[:n-1]
	p.st.ConditionalList = n > 1 && p.st.lists[n-2]
	if conditional {
		return nil
	}
	return p.dedent()
}

// listItemOpen consumes the item label two tokens ahead and writes the
// branch or choice header. The item body is indented one level below it.
func (p *pass) listItemOpen(tok markdown.Token) error {
	label, ok := p.cur.Peek(2)
	if !ok || !label.IsInline() {
		return p.malformed(tok, "list item label")
	}
	p.cur.Advance(2)
	choice, comment := ExtractComment(label.Content)
	if err := p.line(itemHeader(choice) + commentSuffix(comment)); err != nil {
		return err
	}
	p.st.IndentLevel++
	return nil
}

func itemHeader(choice string) string {
	switch {
	case strings.HasPrefix(choice, "???"):
		return "else:"
	case strings.HasPrefix(choice, "??"):
		return "elif " + strings.TrimSpace(choice[2:]) + ":"
	case strings.HasPrefix(choice, "?"):
		return "if " + strings.TrimSpace(choice[1:]) + ":"
	}
	if text, cond, ok := strings.Cut(choice, "|"); ok {
		return Quote(strings.TrimSpace(text)) + " if " + strings.TrimSpace(cond) + ":"
	}
	return Quote(choice) + ":"
}

func (p *pass) listItemClose(markdown.Token) error { return p.dedent() }

// htmlBlock turns an HTML comment into a script comment line. Like every
// other line, anything after the first # is an inline comment and dropped.
func (p *pass) htmlBlock(tok markdown.Token) error {
	s := TrimWords(tok.Content)
	s = strings.Replace(s, "<!--", "", 1)
	s = strings.Replace(s, "-->", "", 1)
	s, _ = ExtractComment(s)
	if s == "" {
		return p.line("#")
	}
	return p.line("# " + s)
}
