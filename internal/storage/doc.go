/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage persists build outputs.
// Generated scripts are written with temp-file-and-rename semantics and an
// optional timestamped backup of the file being replaced.
// The build cache remembers, per source document, the hashes of the last
// transpiled input and options together with the produced script. It lives in
// an embedded SQLite database at <root>/.mdrpy/cache.sqlite or, for teams
// sharing one cache, in PostgreSQL. The cache is disposable; deleting it only
// costs a full rebuild.
package storage
