/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package undercover

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMatchesKindAndCause(t *testing.T) {
	t.Parallel()

	cause := newError("validate role config", ErrConfiguration, "too many roles")
	err := fmt.Errorf("wrapped: %w", precondition("start", cause))

	if !errors.Is(err, ErrPrecondition) || !errors.Is(err, ErrConfiguration) {
		t.Errorf("errors.Is failed for %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Errorf("matched an unrelated kind")
	}
	if got := Message(err); got != "too many roles" {
		t.Errorf("Message() = %q, want %q", got, "too many roles")
	}
	if got := err.Error(); got != "wrapped: start: cannot proceed: validate role config: too many roles" {
		t.Errorf("Error() = %q", got)
	}
}

func TestMessagePlainError(t *testing.T) {
	t.Parallel()

	if got := Message(errors.New("disk full")); got != "disk full" {
		t.Errorf("Message() = %q, want %q", got, "disk full")
	}
	if got := Message(newError("end", ErrPrecondition, "no game is running")); got != "no game is running" {
		t.Errorf("Message() = %q", got)
	}
}

func TestCleanText(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in    string
		limit int
		want  string
	}{
		{"  Ann   Lee ", 32, "Ann Lee"},
		{"<b>bold</b>", 32, "bold"},
		{"Tom &amp; Jerry", 32, "Tom & Jerry"},
		{"abcdef", 3, "abc"},
		{"日本語テキスト", 3, "日本語"},
	}

	for _, tc := range cases {
		if got := cleanText(tc.in, tc.limit); got != tc.want {
			t.Errorf("cleanText(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
		}
	}
}
