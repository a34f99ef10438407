/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package undercover

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWordsDefault(t *testing.T) {
	t.Parallel()

	w, err := LoadWords("")
	if err != nil {
		t.Fatalf("LoadWords() error = %v", err)
	}
	if w.Len() == 0 {
		t.Fatalf("default catalogue is empty")
	}

	for range 50 {
		p := w.Random()
		if p.Civilian == "" || p.Undercover == "" || p.Civilian == p.Undercover {
			t.Fatalf("Random() = %+v", p)
		}
	}
}

func TestLoadWordsFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "words.yaml")
	data := []byte("pairs:\n  - civilian: \"<i>river</i>\"\n    undercover: lake\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	w, err := LoadWords(path)
	if err != nil {
		t.Fatalf("LoadWords() error = %v", err)
	}

	p := w.Random()
	if p.Civilian != "river" && p.Undercover != "river" {
		t.Errorf("Random() = %+v, want river and lake", p)
	}
}

func TestParseWordsErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"not yaml":     "pairs: [",
		"empty":        "pairs: []\n",
		"missing word": "pairs:\n  - civilian: sun\n",
		"same word":    "pairs:\n  - civilian: Sun\n    undercover: sun\n",
	}

	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if _, err := ParseWords([]byte(in)); err == nil {
				t.Errorf("ParseWords(%q) succeeded", in)
			}
		})
	}

	if _, err := LoadWords(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("LoadWords() of a missing file succeeded")
	}
}
