package main

import (
	"strings"
	"testing"
)

func TestSanitizeChat(t *testing.T) {
	cases := []struct{ in, want string }{
		{"hello", "hello"},
		{"hi\x00\x1bthere", "hithere"},
		{"  padded  ", "padded"},
		{"\x07\x08", ""},
	}
	for _, c := range cases {
		if got := sanitizeChat(c.in); got != c.want {
			t.Errorf("sanitizeChat(%q) = %q, want %q", c.in, got, c.want)
		}
	}
	if got := sanitizeChat(strings.Repeat("x", 500)); len(got) != maxChatLength {
		t.Errorf("long message clipped to %d, want %d", len(got), maxChatLength)
	}
}

func TestSanitizeName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"RustyDigger7", "RustyDigger7"},
		{"a<b>c", "abc"},
		{"spaced name", "spaced name"},
		{"dash-and_underscore", "dash-and_underscore"},
	}
	for _, c := range cases {
		if got := sanitizeName(c.in); got != c.want {
			t.Errorf("sanitizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
	if got := sanitizeName(strings.Repeat("n", 100)); len(got) > maxNameLength {
		t.Errorf("long name kept %d runes", len(got))
	}
}

func TestIPLimiterIsPerAddress(t *testing.T) {
	setupTestEnv(t)
	a := getLimiter("10.0.0.1")
	b := getLimiter("10.0.0.2")
	if a == b {
		t.Fatal("distinct addresses share a limiter")
	}
	if a != getLimiter("10.0.0.1") {
		t.Fatal("same address got a fresh limiter")
	}
}

func TestRandomDisplayName(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		name := randomDisplayName()
		if name == "" || len(name) > maxNameLength {
			t.Fatalf("bad name %q", name)
		}
		if sanitizeName(name) != name {
			t.Fatalf("generated name %q fails its own sanitizer", name)
		}
		seen[name] = true
	}
	if len(seen) < 2 {
		t.Fatal("names show no variety")
	}
}
