/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package transpile

import "strings"

// ExtractComment splits s at the first '#'. Both parts are trimmed; any
// further '#' belongs to the comment.
func ExtractComment(s string) (content, comment string) {
	content, comment, _ = strings.Cut(s, "#")
	return strings.TrimSpace(content), strings.TrimSpace(comment)
}

// TrimWords collapses whitespace runs into single spaces and trims the ends.
func TrimWords(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var quoteReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// Quote renders s as a double-quoted script string literal.
func Quote(s string) string {
	return `"` + quoteReplacer.Replace(s) + `"`
}

func commentSuffix(comment string) string {
	if comment == "" {
		return ""
	}
	return " # " + comment
}
