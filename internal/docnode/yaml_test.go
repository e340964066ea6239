package docnode

import "testing"

func TestParseYAMLMapping(t *testing.T) {
	n, err := ParseYAML("dub.json", []byte(`{"name": "hello", "version": "1.0.0"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := n.Get("name").ScalarValue; got != "hello" {
		t.Errorf("name = %q, want %q", got, "hello")
	}
}

func TestParseJSONIsAliasForYAML(t *testing.T) {
	n, err := ParseJSON("dub.json", []byte(`{"dependencies": {"vibe-d": "~>0.9.3"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	deps := n.Get("dependencies")
	if deps.Kind != Mapping {
		t.Fatalf("dependencies kind = %v, want Mapping", deps.Kind)
	}
	if got := deps.Get("vibe-d").ScalarValue; got != "~>0.9.3" {
		t.Errorf("vibe-d = %q, want %q", got, "~>0.9.3")
	}
}

func TestParseYAMLSequence(t *testing.T) {
	n, err := ParseYAML("x.yaml", []byte("items:\n  - a\n  - b\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items := n.Get("items")
	if items.Kind != Sequence || len(items.Items) != 2 {
		t.Fatalf("items = %+v, want 2-element sequence", items)
	}
}

func TestParseYAMLNull(t *testing.T) {
	n, err := ParseYAML("x.yaml", []byte("value: null\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !n.Get("value").IsNull {
		t.Error("expected value to be null")
	}
}

func TestToYAMLRoundTrip(t *testing.T) {
	n := NewMapping(
		Pair{Key: "name", Value: NewScalar("hello")},
		Pair{Key: "version", Value: NewScalar("1.0.0")},
	)
	out, err := ToYAML(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parsed, err := ParseYAML("roundtrip.yaml", out)
	if err != nil {
		t.Fatalf("unexpected error reparsing: %v", err)
	}
	if got := parsed.Get("name").ScalarValue; got != "hello" {
		t.Errorf("name = %q, want %q", got, "hello")
	}
}

func TestToYAMLPreservesKeyOrder(t *testing.T) {
	n := NewMapping(
		Pair{Key: "zeta", Value: NewScalar("1")},
		Pair{Key: "alpha", Value: NewScalar("2")},
	)
	out, err := ToYAML(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	zetaIdx, alphaIdx := -1, -1
	s := string(out)
	for i := 0; i < len(s); i++ {
		if zetaIdx == -1 && len(s) >= i+4 && s[i:i+4] == "zeta" {
			zetaIdx = i
		}
		if alphaIdx == -1 && len(s) >= i+5 && s[i:i+5] == "alpha" {
			alphaIdx = i
		}
	}
	if zetaIdx == -1 || alphaIdx == -1 || zetaIdx > alphaIdx {
		t.Errorf("expected zeta before alpha in output, got %q", s)
	}
}
