package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if got := Truncate("crèche été", 6); got != "crèche..." {
		t.Errorf("multi-byte truncation got %q", got)
	}
}

func TestPrefix(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"école maternelle", 5, "école"},
		{"abc", 10, "abc"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := Prefix(tt.in, tt.n); got != tt.want {
			t.Errorf("Prefix(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestJoinNonEmpty(t *testing.T) {
	if got := JoinNonEmpty("\n", "a", "", "b"); got != "a\nb" {
		t.Errorf("got %q", got)
	}
	if got := JoinNonEmpty(" ", "", ""); got != "" {
		t.Errorf("got %q", got)
	}
}

func TestCountDigits(t *testing.T) {
	if got := CountDigits("24,77 € en 2024"); got != 8 {
		t.Errorf("CountDigits = %d, want 8", got)
	}
}

func TestSingleLine(t *testing.T) {
	if got := SingleLine("a\nb\r\nc"); got != "a b c" {
		t.Errorf("got %q", got)
	}
}
