/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package transpile

import (
	"fmt"
	"maps"
	"strings"
)

// Syntax holds the line sigils. Each is matched as a content prefix.
type Syntax struct {
	Ignore string `yaml:"ignore" json:"ignore"` // escape: emit the rest of the line verbatim
	Call   string `yaml:"call" json:"call"`
	Jump   string `yaml:"jump" json:"jump"`
}

// Options configures a transpilation. It is treated as immutable once
// handed to New or Transpile.
//
// Characters maps the tag an author writes in front of a dialogue line to
// the speaker variable emitted in the script. Both the tag and the speaker
// name are accepted in source; the lookup lower-cases the source side only.
type Options struct {
	CharacterDelim string            `yaml:"character_delim" json:"character_delim"`
	Syntax         Syntax            `yaml:"syntax" json:"syntax"`
	Characters     map[string]string `yaml:"characters" json:"characters"`
}

// DefaultCharacters returns the built-in speaker table.
func DefaultCharacters() map[string]string {
	return map[string]string{
		"mt": "od",
		"me": "s",
		"dv": "a",
		"sl": "sl",
		"sh": "sh",
		"us": "us",
		"un": "l",
		"mi": "m",
		"mz": "zh",
	}
}

// DefaultOptions returns a fresh copy of the defaults.
func DefaultOptions() Options {
	return Options{
		CharacterDelim: " - ",
		Syntax: Syntax{
			Ignore: "\\",
			Call:   "%",
			Jump:   "=",
		},
		Characters: DefaultCharacters(),
	}
}

// Clone returns a deep copy of o.
func (o Options) Clone() Options {
	c := o
	c.Characters = maps.Clone(o.Characters)
	return c
}

// Validate checks that sigils and the delimiter are set and cannot be
// confused by prefix matching.
func (o Options) Validate() error {
	named := []struct{ name, val string }{
		{"syntax.ignore", o.Syntax.Ignore},
		{"syntax.call", o.Syntax.Call},
		{"syntax.jump", o.Syntax.Jump},
		{"character_delim", o.CharacterDelim},
	}
	for _, n := range named {
		if n.val == "" {
			return fmt.Errorf("%w: %s is empty", ErrInvalidOptions, n.name)
		}
	}
	for i := range named {
		for j := range named {
			if i == j {
				continue
			}
			if strings.HasPrefix(named[j].val, named[i].val) {
				return fmt.Errorf("%w: %s %q is a prefix of %s %q",
					ErrInvalidOptions, named[i].name, named[i].val, named[j].name, named[j].val)
			}
		}
	}
	for tag, speaker := range o.Characters {
		if strings.TrimSpace(tag) == "" || strings.TrimSpace(speaker) == "" {
			return fmt.Errorf("%w: empty character entry %q: %q", ErrInvalidOptions, tag, speaker)
		}
	}
	return nil
}
