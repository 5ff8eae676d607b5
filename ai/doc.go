// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package ai defines the narrow interface through which weave talks to
// embedding-model providers. The engine treats embedding as a capability it
// calls, not a component it owns: provider internals stay behind Embedder
// and Provider.
//
// Two implementations ship with the module: ai/openai for any
// OpenAI-compatible endpoint and ai/mock for deterministic test vectors.
// Neither the stores nor the search engine retry failed provider calls;
// retry policy belongs to orchestrating callers.
package ai
