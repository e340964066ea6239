package main

import "testing"

func TestSplitNameVersion(t *testing.T) {
	cases := []struct {
		in          string
		wantName    string
		wantVersion string
	}{
		{"vibe-d", "vibe-d", ""},
		{"vibe-d@0.9.5", "vibe-d", "0.9.5"},
		{"a@b@c", "a", "b@c"},
	}
	for _, c := range cases {
		name, version := splitNameVersion(c.in)
		if name != c.wantName || version != c.wantVersion {
			t.Errorf("splitNameVersion(%q) = %q, %q, want %q, %q", c.in, name, version, c.wantName, c.wantVersion)
		}
	}
}
