package configdoc

import (
	"testing"

	"github.com/dub-go/dub/internal/docnode"
)

type buildSettings struct {
	Sources  []string          `cfg:"sourceFiles,additive"`
	Libs     map[string]string `cfg:"libs,pattern"`
	Optimize bool              `cfg:"optimize"`
	Timeout  Duration          `cfg:"timeout"`
	Retries  int               `cfg:"retries,optional"`
}

func parseDoc(t *testing.T, src string) *docnode.Node {
	t.Helper()
	n, err := docnode.ParseYAML("test.yaml", []byte(src))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return n
}

func TestParseBasicFields(t *testing.T) {
	n := parseDoc(t, `
sourceFiles: [a.d, b.d]
optimize: true
timeout:
  seconds: 30
`)
	got, err := Parse[buildSettings](n, StrictError)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Sources) != 2 || got.Sources[0] != "a.d" {
		t.Errorf("Sources = %v", got.Sources)
	}
	if !got.Optimize {
		t.Error("expected Optimize = true")
	}
	if got.Timeout != Duration(30_000_000_000) {
		t.Errorf("Timeout = %v, want 30s", got.Timeout)
	}
}

func TestPatternFields(t *testing.T) {
	n := parseDoc(t, `
sourceFiles: []
optimize: false
timeout:
  seconds: 1
libs: baseline
libs-windows: "ws2_32"
libs-linux: "pthread"
`)
	got, err := Parse[buildSettings](n, StrictError)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Libs[""] != "baseline" {
		t.Errorf("Libs[\"\"] = %q", got.Libs[""])
	}
	if got.Libs["windows"] != "ws2_32" {
		t.Errorf("Libs[windows] = %q", got.Libs["windows"])
	}
	if got.Libs["linux"] != "pthread" {
		t.Errorf("Libs[linux] = %q", got.Libs["linux"])
	}
}

func TestDurationScalarSuffixForm(t *testing.T) {
	n := parseDoc(t, `
sourceFiles: []
optimize: false
timeout_minutes: 2
`)
	got, err := Parse[buildSettings](n, StrictError)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Timeout != Duration(120_000_000_000) {
		t.Errorf("Timeout = %v, want 2m", got.Timeout)
	}
}

func TestDurationBothFormsIsAmbiguous(t *testing.T) {
	n := parseDoc(t, `
sourceFiles: []
optimize: false
timeout:
  seconds: 5
timeout_minutes: 2
`)
	_, err := Parse[buildSettings](n, StrictError)
	if err == nil {
		t.Fatal("expected DurationAmbiguityError")
	}
	if _, ok := err.(*DurationAmbiguityError); !ok {
		t.Errorf("error = %T, want *DurationAmbiguityError", err)
	}
}

func TestDurationMissingRequiredIsError(t *testing.T) {
	n := parseDoc(t, `
sourceFiles: []
optimize: false
`)
	_, err := Parse[buildSettings](n, StrictError)
	if err == nil {
		t.Fatal("expected MissingRequiredKeyError")
	}
	if _, ok := err.(*MissingRequiredKeyError); !ok {
		t.Errorf("error = %T, want *MissingRequiredKeyError", err)
	}
}

func TestStrictModeRejectsUnknownKey(t *testing.T) {
	n := parseDoc(t, `
sourceFiles: []
optimize: false
timeout:
  seconds: 1
bogus: true
`)
	_, err := Parse[buildSettings](n, StrictError)
	if err == nil {
		t.Fatal("expected UnknownKeyError")
	}
	if _, ok := err.(*UnknownKeyError); !ok {
		t.Errorf("error = %T, want *UnknownKeyError", err)
	}
}

func TestStrictModeIgnoreAcceptsUnknownKey(t *testing.T) {
	n := parseDoc(t, `
sourceFiles: []
optimize: false
timeout:
  seconds: 1
bogus: true
`)
	_, err := Parse[buildSettings](n, StrictIgnore)
	if err != nil {
		t.Fatalf("unexpected error in ignore mode: %v", err)
	}
}

type withEnabled struct {
	Enabled bool   `cfg:"enabled"`
	Name    string `cfg:"name"`
}

func TestDisabledRecordSkipsOtherFields(t *testing.T) {
	n := parseDoc(t, `
enabled: false
`)
	got, err := Parse[withEnabled](n, StrictIgnore)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "" {
		t.Errorf("Name = %q, want empty since record is disabled", got.Name)
	}
}

type aliasInner struct {
	Host string `cfg:"host"`
	Port int    `cfg:"port"`
}

type aliasOuter struct {
	Inner aliasInner `cfg:",alias"`
	Extra string     `cfg:"extra"`
}

func TestAliasThisFlattensFields(t *testing.T) {
	n := parseDoc(t, `
host: example.test
port: 9
extra: yes
`)
	got, err := Parse[aliasOuter](n, StrictError)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Inner.Host != "example.test" || got.Inner.Port != 9 {
		t.Errorf("Inner = %+v", got.Inner)
	}
	if got.Extra != "yes" {
		t.Errorf("Extra = %q", got.Extra)
	}
}

func TestAliasThisStrictErrorStillFlagsTrulyUnknownKeys(t *testing.T) {
	n := parseDoc(t, `
host: example.test
port: 9
extra: yes
bogus: nope
`)
	_, err := Parse[aliasOuter](n, StrictError)
	if err == nil {
		t.Fatal("expected UnknownKeyError for a key neither the parent nor the aliased record consumes")
	}
	if _, ok := err.(*UnknownKeyError); !ok {
		t.Errorf("error = %T, want *UnknownKeyError", err)
	}
}

type aliasClashInner struct {
	Host  string `cfg:"host"`
	Extra string `cfg:"extra"` // collides with aliasClashOuter.Extra below
}

type aliasClashOuter struct {
	Inner aliasClashInner `cfg:",alias"`
	Extra string          `cfg:"extra"`
}

func TestAliasThisRejectsClashWithParentField(t *testing.T) {
	n := parseDoc(t, `
host: example.test
extra: yes
`)
	_, err := Parse[aliasClashOuter](n, StrictError)
	if err == nil {
		t.Fatal("expected DuplicateKeyError for a flattened field clashing with a parent field")
	}
	if _, ok := err.(*DuplicateKeyError); !ok {
		t.Errorf("error = %T, want *DuplicateKeyError", err)
	}
}

type aliasClashBetweenTwoInners struct {
	Host string `cfg:"host"`
}

type aliasClashTwoAliases struct {
	A aliasClashBetweenTwoInners `cfg:",alias"`
	B aliasClashBetweenTwoInners `cfg:",alias"`
}

func TestAliasThisRejectsClashBetweenTwoAliasedRecords(t *testing.T) {
	n := parseDoc(t, `
host: example.test
`)
	_, err := Parse[aliasClashTwoAliases](n, StrictError)
	if err == nil {
		t.Fatal("expected DuplicateKeyError for two aliased records flattening the same name")
	}
	if _, ok := err.(*DuplicateKeyError); !ok {
		t.Errorf("error = %T, want *DuplicateKeyError", err)
	}
}

type aliasRenamedField struct {
	Inner aliasInner `cfg:"inner,alias"`
}

func TestAliasThisRejectsRenameOnAliasedMember(t *testing.T) {
	n := parseDoc(t, `
host: example.test
port: 9
`)
	_, err := Parse[aliasRenamedField](n, StrictError)
	if err == nil {
		t.Fatal("expected AliasAttributeError for a rename on the aliased member")
	}
	if _, ok := err.(*AliasAttributeError); !ok {
		t.Errorf("error = %T, want *AliasAttributeError", err)
	}
}

type mergeable struct {
	Sources []string        `cfg:"sources,additive"`
	Name    SetInfo[string] `cfg:"name"`
}

func TestMergeAdditiveAndSetInfo(t *testing.T) {
	lower := mergeable{Sources: []string{"a.d"}, Name: Set("lower")}
	higher := mergeable{Sources: []string{"b.d"}}

	out, err := Merge(lower, higher)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Sources) != 2 || out.Sources[0] != "b.d" || out.Sources[1] != "a.d" {
		t.Errorf("Sources = %v, want [b.d a.d]", out.Sources)
	}
	if out.Name.Value != "lower" {
		t.Errorf("Name = %+v, want lower to survive since higher is unset", out.Name)
	}
}

func TestMergeSetInfoHigherWins(t *testing.T) {
	lower := mergeable{Name: Set("lower")}
	higher := mergeable{Name: Set("higher")}

	out, err := Merge(lower, higher)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Name.Value != "higher" {
		t.Errorf("Name = %+v, want higher", out.Name)
	}
}
