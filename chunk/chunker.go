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


// Package chunk splits input text into overlapping, sentence-boundary-aware
// pieces sized for a single oracle invocation.
package chunk

import "errors"

// ErrInvalidChunking indicates maxSize or overlap violate the preconditions
// that guarantee termination and exact overlap arithmetic.
var ErrInvalidChunking = errors.New("chunking requires maxSize > 0 and 0 <= overlap < maxSize/2")

var sentenceTerminators = map[rune]bool{'.': true, '!': true, '?': true}

// Split divides text into chunks of at most maxSize runes, with consecutive
// chunks sharing overlap runes. Boundaries prefer the nearest sentence
// terminator within maxSize/2 runes before the size limit; when none is
// found the cut is a hard one, accepting a mid-sentence break.
//
// Each chunk after the first begins exactly overlap runes before the
// previous chunk's end. Because a boundary cut lands in the back half of
// the window, any overlap of maxSize/2 or more could pull the next start
// at or behind the current one, stalling the advance. Such overlaps are
// rejected up front; with 2*overlap < maxSize every step moves forward
// and the overlap arithmetic stays exact.
func Split(text string, maxSize, overlap int) ([]string, error) {
	if maxSize <= 0 || overlap < 0 || 2*overlap >= maxSize {
		return nil, ErrInvalidChunking
	}

	runes := []rune(text)
	if len(runes) <= maxSize {
		return []string{text}, nil
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + maxSize

		if end < len(runes) {
			// Greedy nearest-preceding-boundary rule: scan backward for a
			// sentence terminator, bounded to the back half of the chunk.
			limit := end - maxSize/2
			for i := end - 1; i >= limit; i-- {
				if sentenceTerminators[runes[i]] {
					end = i + 1
					break
				}
			}
		} else {
			end = len(runes)
		}

		chunks = append(chunks, string(runes[start:end]))

		if end >= len(runes) {
			break
		}
		// end is always past start+maxSize/2, so with 2*overlap < maxSize
		// this advances by at least two runes.
		start = end - overlap
	}

	return chunks, nil
}
