/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package transpile

import "mdrpy/internal/markdown"

func tok(typ string) markdown.Token { return markdown.Token{Type: typ} }

func inlineTok(raw string, children ...markdown.Token) markdown.Token {
	return markdown.Token{Type: markdown.TypeInline, Content: raw, Children: children}
}

func textChild(s string) markdown.Token { return markdown.Token{Type: markdown.TypeText, Content: s} }

func codeChild(s string) markdown.Token {
	return markdown.Token{Type: markdown.TypeCodeInline, Content: s}
}

func heading(title string) []markdown.Token {
	return []markdown.Token{
		tok(markdown.TypeHeadingOpen),
		inlineTok(title, textChild(title)),
		tok(markdown.TypeHeadingClose),
	}
}

// para builds a paragraph whose raw content and text children are lines.
func para(lines ...string) []markdown.Token {
	raw := ""
	children := make([]markdown.Token, 0, len(lines))
	for i, l := range lines {
		if i > 0 {
			raw += "\n"
		}
		raw += l
		children = append(children, textChild(l))
	}
	return []markdown.Token{
		tok(markdown.TypeParagraphOpen),
		inlineTok(raw, children...),
		tok(markdown.TypeParagraphClose),
	}
}

func item(label string, body ...[]markdown.Token) []markdown.Token {
	out := []markdown.Token{tok(markdown.TypeListItemOpen)}
	out = append(out, para(label)...)
	for _, b := range body {
		out = append(out, b...)
	}
	return append(out, tok(markdown.TypeListItemClose))
}

func bulletList(items ...[]markdown.Token) []markdown.Token {
	out := []markdown.Token{tok(markdown.TypeBulletListOpen)}
	for _, it := range items {
		out = append(out, it...)
	}
	return append(out, tok(markdown.TypeBulletListClose))
}

func blockquote(body ...[]markdown.Token) []markdown.Token {
	out := []markdown.Token{tok(markdown.TypeBlockquoteOpen)}
	for _, b := range body {
		out = append(out, b...)
	}
	return append(out, tok(markdown.TypeBlockquoteClose))
}

func doc(parts ...[]markdown.Token) []markdown.Token {
	var out []markdown.Token
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func one(t markdown.Token) []markdown.Token { return []markdown.Token{t} }
