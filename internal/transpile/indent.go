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
	"strings"
)

// IndentUnit is the whitespace emitted per indentation level.
const IndentUnit = "    "

// Indent returns the prefix for level. Negative levels are a programming
// error in the caller and yield ErrInvalidIndent.
func Indent(level int) (string, error) {
	if level < 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidIndent, level)
	}
	return strings.Repeat(IndentUnit, level), nil
}
