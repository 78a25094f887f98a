/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package transpile

import "mdrpy/internal/markdown"

// Cursor walks a token slice. Rules that consume lookahead tokens advance
// it explicitly; the main loop advances by one after each rule.
type Cursor struct {
	toks []markdown.Token
	pos  int
}

// NewCursor returns a cursor positioned on the first token.
func NewCursor(toks []markdown.Token) *Cursor { return &Cursor{toks: toks} }

// Pos returns the index of the current token.
func (c *Cursor) Pos() int { return c.pos }

// Done reports whether the cursor moved past the last token.
func (c *Cursor) Done() bool { return c.pos >= len(c.toks) }

// Current returns the token under the cursor. It must not be called when Done.
func (c *Cursor) Current() markdown.Token { return c.toks[c.pos] }

// Peek returns the token offset positions ahead of the current one.
func (c *Cursor) Peek(offset int) (markdown.Token, bool) {
	i := c.pos + offset
	if i < 0 || i >= len(c.toks) {
		return markdown.Token{}, false
	}
	return c.toks[i], true
}

// Advance moves the cursor n tokens forward.
func (c *Cursor) Advance(n int) { c.pos += n }
