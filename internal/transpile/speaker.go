/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package transpile

import "strings"

// speakers resolves a source identifier to the speaker variable used in the
// script. Tags win over speaker names when both spell the same identifier.
type speakers map[string]string

func newSpeakers(characters map[string]string) speakers {
	s := make(speakers, 2*len(characters))
	for _, speaker := range characters {
		s[speaker] = speaker
	}
	for tag, speaker := range characters {
		s[tag] = speaker
	}
	return s
}

func (s speakers) resolve(id string) (string, bool) {
	speaker, ok := s[strings.ToLower(strings.TrimSpace(id))]
	return speaker, ok
}

// dialogue renders a narration or speaker line. The speaker prefix is only
// honoured when text follows the delimiter and the identifier is known;
// otherwise the whole line is narration.
func (s speakers) dialogue(content, delim string) string {
	id, rest, found := strings.Cut(content, delim)
	if !found {
		return Quote(content)
	}
	text := strings.TrimSpace(rest)
	if text == "" {
		return Quote(content)
	}
	speaker, ok := s.resolve(id)
	if !ok {
		return Quote(content)
	}
	return speaker + " " + Quote(text)
}
