package resolver

import "testing"

func TestOwnerRepo(t *testing.T) {
	cases := []struct {
		url       string
		wantOwner string
		wantRepo  string
		wantOK    bool
	}{
		{"https://github.com/dlang/dub", "dlang", "dub", true},
		{"https://github.com/dlang/dub.git", "dlang", "dub", true},
		{"git@github.com:dlang/dub.git", "dlang", "dub", true},
		{"dlang/dub", "dlang", "dub", true},
		{"https://gitlab.com/dlang/dub", "", "", false},
		{"not-a-valid-locator", "", "", false},
	}
	for _, c := range cases {
		owner, repo, ok := ownerRepo(c.url)
		if ok != c.wantOK || owner != c.wantOwner || repo != c.wantRepo {
			t.Errorf("ownerRepo(%q) = %q, %q, %v, want %q, %q, %v",
				c.url, owner, repo, ok, c.wantOwner, c.wantRepo, c.wantOK)
		}
	}
}
