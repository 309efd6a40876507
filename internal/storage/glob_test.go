package storage

import "testing"

func TestMatchGlob(t *testing.T) {
	cases := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"canonized/**/*.md", "canonized/decision.md", true},
		{"canonized/**/*.md", "canonized/2026/q1/decision.md", true},
		{"canonized/**/*.md", "intake/decision.md", false},
		{"canonized/**/*.md", "canonized/evidence/shot.png", false},
		{"**/*.md", "a.md", true},
		{"**/*.md", "deep/nested/a.md", true},
		{"**", "anything/at/all", true},
		{"*.md", "a.md", true},
		{"*.md", "dir/a.md", false},
		{"**/attachments/**", "x/attachments/y.png", true},
		{"**/attachments/**", "attachments/y.png", true},
		{"**/attachments/**", "x/y.png", false},
		{"intake/????-??-??_*.md", "intake/2026-01-10_note.md", true},
		{"intake/????-??-??_*.md", "intake/note.md", false},
		{"a/*/c", "a/b/c", true},
		{"a/*/c", "a/b/b2/c", false},
	}
	for _, c := range cases {
		if got := MatchGlob(c.pattern, c.path); got != c.want {
			t.Errorf("MatchGlob(%q, %q) = %v, want %v", c.pattern, c.path, got, c.want)
		}
	}
}
