/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package transpile

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIndent is returned when an indentation level below zero is requested.
	ErrInvalidIndent = errors.New("invalid indent level")
	// ErrMalformedDocument is returned when a token needs a lookahead token that is missing.
	ErrMalformedDocument = errors.New("malformed document")
	// ErrInvalidOptions is returned by Options.Validate.
	ErrInvalidOptions = errors.New("invalid options")
)

// MalformedError carries the position of an input-shape violation.
type MalformedError struct {
	Index int    // index of the token that required the lookahead
	Type  string // type of that token
	Need  string // what was expected
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s: %s at token %d needs %s", ErrMalformedDocument, e.Type, e.Index, e.Need)
}

func (e *MalformedError) Unwrap() error { return ErrMalformedDocument }
