/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"fmt"
	"sort"
)

// Registry maps character keys to their definitions. It is read-only once built.
// The empty key is always present and stands for the narrator.
type Registry struct {
	chars map[string]Character
}

// NewRegistry collects every Definition in lines. A key defined twice keeps the
// later definition.
func NewRegistry(lines []LogicalLine) *Registry {
	r := &Registry{chars: map[string]Character{"": {}}}
	for _, ll := range lines {
		if def, ok := ll.Statement.(Definition); ok {
			r.chars[def.Key] = def.Character
		}
	}
	return r
}

// Lookup returns the character for key or ErrUnknownCharacter.
func (r *Registry) Lookup(key string) (Character, error) {
	ch, ok := r.chars[key]
	if !ok {
		return Character{}, fmt.Errorf("%w %q", ErrUnknownCharacter, key)
	}
	return ch, nil
}

// Keys returns all defined keys in sorted order, narrator excluded.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.chars))
	for k := range r.chars {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (r *Registry) Len() int { return len(r.chars) - 1 }
