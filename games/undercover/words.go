/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package undercover

import (
	_ "embed"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed words.yaml
var defaultWords []byte

// WordPair is one civilian/undercover pair from the catalogue.
type WordPair struct {
	Civilian   string `yaml:"civilian" json:"civilianWord"`
	Undercover string `yaml:"undercover" json:"undercoverWord"`
}

type wordFile struct {
	Pairs []WordPair `yaml:"pairs"`
}

// Words is a catalogue the host can draw suggestions from.
type Words struct {
	mu    sync.Mutex
	rng   *rand.Rand
	pairs []WordPair
}

// ParseWords reads a YAML catalogue of the form
//
//	pairs:
//	  - civilian: coffee
//	    undercover: tea
func ParseWords(data []byte) (*Words, error) {
	var raw wordFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse words: %w", err)
	}

	w := &Words{rng: newRand()}
	for i, p := range raw.Pairs {
		p.Civilian = cleanText(p.Civilian, maxWordLength)
		p.Undercover = cleanText(p.Undercover, maxWordLength)
		if p.Civilian == "" || p.Undercover == "" {
			return nil, fmt.Errorf("parse words: pair %d: both words are required", i+1)
		}
		if strings.EqualFold(p.Civilian, p.Undercover) {
			return nil, fmt.Errorf("parse words: pair %d: words must differ", i+1)
		}
		w.pairs = append(w.pairs, p)
	}
	if len(w.pairs) == 0 {
		return nil, fmt.Errorf("parse words: no pairs")
	}

	return w, nil
}

// LoadWords reads the catalogue at path, or the built-in one when path is empty.
func LoadWords(path string) (*Words, error) {
	if path == "" {
		return ParseWords(defaultWords)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return ParseWords(data)
}

func (w *Words) Len() int {
	return len(w.pairs)
}

// Random returns a pair, with the two words swapped half of the time.
func (w *Words) Random() WordPair {
	w.mu.Lock()
	defer w.mu.Unlock()

	p := w.pairs[w.rng.IntN(len(w.pairs))]
	if w.rng.IntN(2) == 1 {
		p.Civilian, p.Undercover = p.Undercover, p.Civilian
	}

	return p
}
