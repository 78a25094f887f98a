/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package markdown

// Token types of the flat stream. Block structure is expressed with
// open/close pairs; text payloads live in TypeInline tokens.
const (
	TypeHeadingOpen     = "heading_open"
	TypeHeadingClose    = "heading_close"
	TypeParagraphOpen   = "paragraph_open"
	TypeParagraphClose  = "paragraph_close"
	TypeBulletListOpen  = "bullet_list_open"
	TypeBulletListClose = "bullet_list_close"
	TypeOrderedListOpen = "ordered_list_open"
	TypeOrderedListEnd  = "ordered_list_close"
	TypeListItemOpen    = "list_item_open"
	TypeListItemClose   = "list_item_close"
	TypeBlockquoteOpen  = "blockquote_open"
	TypeBlockquoteClose = "blockquote_close"
	TypeFence           = "fence"
	TypeCodeBlock       = "code_block"
	TypeHTMLBlock       = "html_block"
	TypeHR              = "hr"
	TypeInline          = "inline"
)

// Child token types, only found in Token.Children.
const (
	TypeText       = "text"
	TypeCodeInline = "code_inline"
)

// Token is one structural or textual unit of a parsed document.
//
// Content holds the raw source text for inline, fence, code_block and
// html_block tokens and is empty for pure structural tokens.
// Children is only set on inline tokens.
type Token struct {
	Type     string
	Tag      string // h1..h6, ul, ol, li, p, blockquote, code, hr
	Content  string
	Info     string // fence info string
	Level    int    // nesting depth of the token
	Children []Token
}

// IsInline reports whether t carries inline children.
func (t Token) IsInline() bool { return t.Type == TypeInline }
