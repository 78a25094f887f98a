/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package transpile converts a flat Markdown token stream into a Ren'Py
// script. The pass is a single sequential walk driven by an ordered rule
// table; all state lives in one call and Options are never mutated, so
// independent documents may be transpiled concurrently.
package transpile

import (
	"strings"

	"mdrpy/internal/markdown"
	"mdrpy/internal/translit"
)

// Transliterator maps heading text to a label identifier.
type Transliterator func(string) string

// State is the mutable part of a pass that survives from one token to the next.
type State struct {
	IndentLevel     int
	ConditionalList bool // the innermost open bullet list renders if/elif/else branches

	lists  []bool // per open bullet list: conditional or menu
	quotes []bool // per open blockquote: whether its open dedented
}

// Transpiler holds the resolved configuration for repeated passes.
type Transpiler struct {
	opts     Options
	translit Transliterator
	speakers speakers
	rules    []rule
}

// New returns a Transpiler for opts. A nil tr selects translit.Transliterate.
func New(opts Options, tr Transliterator) *Transpiler {
	if tr == nil {
		tr = translit.Transliterate
	}
	opts = opts.Clone()
	t := &Transpiler{
		opts:     opts,
		translit: tr,
		speakers: newSpeakers(opts.Characters),
	}
	t.rules = t.ruleTable()
	return t
}

// Transpile validates opts and runs one pass over toks.
func Transpile(toks []markdown.Token, opts Options, tr Transliterator) (string, error) {
	if err := opts.Validate(); err != nil {
		return "", err
	}
	return New(opts, tr).Transpile(toks)
}

// Parse tokenizes a Markdown document and transpiles it.
func Parse(src string, opts Options) (string, error) {
	if err := opts.Validate(); err != nil {
		return "", err
	}
	return New(opts, nil).Transpile(markdown.TokenizeString(src))
}

// Validate is Options.Validate for callers holding only a Transpiler.
func (t *Transpiler) Validate() error { return t.opts.Validate() }

// Options returns a copy of the options t was built with.
func (t *Transpiler) Options() Options { return t.opts.Clone() }

// Transpile converts toks into script text. On error no partial output is returned.
func (t *Transpiler) Transpile(toks []markdown.Token) (string, error) {
	p := &pass{t: t, cur: NewCursor(toks)}
	for !p.cur.Done() {
		tok := p.cur.Current()
		for _, r := range t.rules {
			if !r.match(tok) {
				continue
			}
			if err := r.apply(p, tok); err != nil {
				return "", err
			}
			break
		}
		p.cur.Advance(1)
	}
	return p.out.String(), nil
}

// pass is the call-local state of one Transpile run.
type pass struct {
	t   *Transpiler
	cur *Cursor
	st  State
	out strings.Builder
}

func (p *pass) indent() error {
	s, err := Indent(p.st.IndentLevel)
	if err != nil {
		return err
	}
	p.out.WriteString(s)
	return nil
}

// line writes one indented output line.
func (p *pass) line(s string) error {
	if err := p.indent(); err != nil {
		return err
	}
	p.out.WriteString(s)
	p.out.WriteByte('\n')
	return nil
}

func (p *pass) dedent() error {
	if p.st.IndentLevel == 0 {
		_, err := Indent(-1)
		return err
	}
	p.st.IndentLevel--
	return nil
}

func (p *pass) malformed(tok markdown.Token, need string) error {
	return &MalformedError{Index: p.cur.Pos(), Type: tok.Type, Need: need}
}
