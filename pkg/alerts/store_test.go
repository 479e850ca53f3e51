package alerts

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateShortStringUnchanged(t *testing.T) {
	s := "짧은 문자 메시지"
	if got := Truncate(s); got != s {
		t.Errorf("Truncate(%q) = %q, want unchanged", s, got)
	}
}

func TestTruncateLongASCII(t *testing.T) {
	s := strings.Repeat("a", 500)
	got := Truncate(s)
	if len(got) != maxExcerptLen {
		t.Errorf("len = %d, want %d", len(got), maxExcerptLen)
	}
}

func TestTruncateHangulDoesNotSplitRunes(t *testing.T) {
	// Hangul is 3 bytes per rune: 300 runes is 900 bytes, well over the
	// byte bound, so the rune path runs.
	s := strings.Repeat("가", 300)
	got := Truncate(s)
	if !utf8.ValidString(got) {
		t.Error("Truncate split a multibyte rune")
	}
	if utf8.RuneCountInString(got) != maxExcerptLen {
		t.Errorf("rune count = %d, want %d", utf8.RuneCountInString(got), maxExcerptLen)
	}
}

func TestTruncateManyRunesUnderByteBound(t *testing.T) {
	// len(s) > maxExcerptLen in bytes but not in runes: the string keeps
	// all its runes only when the rune count is within the bound.
	s := strings.Repeat("가", 80) // 240 bytes, 80 runes
	if got := Truncate(s); got != s {
		t.Errorf("Truncate(%q runes=80) trimmed a string within the rune bound", s)
	}
}
