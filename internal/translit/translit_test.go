/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package translit

import "testing"

func TestTransliterate(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Intro", "Intro"},
		{"day 1", "day_1"},
		{"Глава 1", "Glava_1"},
		{"Жёлтый дом", "Zheltyy_dom"},
		{"ЩИТ", "ShchIT"},
		{"Café crème", "Cafe_creme"},
		{"part-two", "part_two"},
		{"chapter.local", "chapter.local"},
		{"Who? Me!", "Who_Me"},
		{"  padded  ", "padded"},
	}
	for _, c := range cases {
		if got := Transliterate(c.in); got != c.want {
			t.Errorf("Transliterate(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTransliterateIsASCII(t *testing.T) {
	got := Transliterate("Съешь же ещё этих мягких французских булок")
	for _, r := range got {
		if r > 127 {
			t.Fatalf("non-ASCII rune %q in %q", r, got)
		}
	}
}
