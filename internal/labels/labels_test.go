package labels

import (
	"errors"
	"testing"
)

func TestEncodeUID(t *testing.T) {
	c := NewCodec("stored-object", "UID:")

	tests := []struct {
		name string
		id   string
		want string
	}{
		{"bare id", "metrics", "UID:metrics"},
		{"already prefixed", "UID:metrics", "UID:metrics"},
		{"id containing colon", "ns:metrics", "UID:ns:metrics"},
		{"empty id", "", "UID:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.EncodeUID(tt.id); got != tt.want {
				t.Errorf("EncodeUID(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestEncodeUIDIdempotent(t *testing.T) {
	c := NewCodec("", "")
	once := c.EncodeUID("foo")
	twice := c.EncodeUID(once)
	if once != twice {
		t.Errorf("EncodeUID not idempotent: %q != %q", once, twice)
	}
}

func TestDecodeUID(t *testing.T) {
	c := NewCodec("stored-object", "UID:")

	tests := []struct {
		label  string
		wantID string
		wantOK bool
	}{
		{"UID:metrics", "metrics", true},
		{"UID:", "", true},
		{"stored-object", "", false},
		{"uid:metrics", "", false}, // prefix is case sensitive
	}

	for _, tt := range tests {
		got, ok := c.DecodeUID(tt.label)
		if got != tt.wantID || ok != tt.wantOK {
			t.Errorf("DecodeUID(%q) = (%q, %v), want (%q, %v)", tt.label, got, ok, tt.wantID, tt.wantOK)
		}
	}
}

func TestExtractUID(t *testing.T) {
	c := NewCodec("stored-object", "UID:")

	id, err := c.ExtractUID([]string{"stored-object", "UID:metrics", "archived"})
	if err != nil {
		t.Fatalf("ExtractUID returned error: %v", err)
	}
	if id != "metrics" {
		t.Errorf("ExtractUID = %q, want %q", id, "metrics")
	}

	if _, err := c.ExtractUID([]string{"stored-object", "archived"}); !errors.Is(err, ErrNoUIDLabel) {
		t.Errorf("ExtractUID on unlabeled issue = %v, want ErrNoUIDLabel", err)
	}
}

func TestExtractUIDReturnsFirst(t *testing.T) {
	c := NewCodec("", "")
	id, err := c.ExtractUID([]string{"UID:first", "UID:second"})
	if err != nil {
		t.Fatalf("ExtractUID returned error: %v", err)
	}
	if id != "first" {
		t.Errorf("ExtractUID = %q, want first uid label", id)
	}
}

func TestClassify(t *testing.T) {
	c := NewCodec("stored-object", "UID:")

	tests := []struct {
		label       string
		wantKind    Kind
		wantPayload string
	}{
		{"stored-object", KindBase, ""},
		{"UID:foo", KindUID, "foo"},
		{"canonical-object", KindCanonical, ""},
		{"alias-object", KindAlias, ""},
		{"ALIAS-TO:42", KindAliasTo, "42"},
		{"deprecated-object", KindDeprecated, ""},
		{"MERGED-INTO:foo", KindMergedInto, "foo"},
		{"archived", KindArchived, ""},
		{"enhancement", KindOther, ""},
	}

	for _, tt := range tests {
		kind, payload := c.Classify(tt.label)
		if kind != tt.wantKind || payload != tt.wantPayload {
			t.Errorf("Classify(%q) = (%v, %q), want (%v, %q)",
				tt.label, kind, payload, tt.wantKind, tt.wantPayload)
		}
	}
}

func TestQueryLabels(t *testing.T) {
	c := NewCodec("stored-object", "UID:")
	got := c.QueryLabels("metrics")
	want := []string{"stored-object", "UID:metrics"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("QueryLabels = %v, want %v", got, want)
	}
}

func TestParseAliasTo(t *testing.T) {
	tests := []struct {
		label  string
		wantN  int
		wantOK bool
	}{
		{"ALIAS-TO:7", 7, true},
		{"ALIAS-TO:0", 0, false},
		{"ALIAS-TO:-3", 0, false},
		{"ALIAS-TO:abc", 0, false},
		{"MERGED-INTO:7", 0, false},
	}

	for _, tt := range tests {
		n, ok := ParseAliasTo(tt.label)
		if n != tt.wantN || ok != tt.wantOK {
			t.Errorf("ParseAliasTo(%q) = (%d, %v), want (%d, %v)", tt.label, n, ok, tt.wantN, tt.wantOK)
		}
	}
}

func TestFirstAliasTarget(t *testing.T) {
	n, err := FirstAliasTarget([]string{"stored-object", "alias-object", "ALIAS-TO:12"})
	if err != nil {
		t.Fatalf("FirstAliasTarget returned error: %v", err)
	}
	if n != 12 {
		t.Errorf("FirstAliasTarget = %d, want 12", n)
	}

	if _, err := FirstAliasTarget([]string{"stored-object"}); err == nil {
		t.Error("FirstAliasTarget without pointer label should error")
	}
}

func TestMergedIntoRoundTrip(t *testing.T) {
	label := MergedInto("metrics")
	id, ok := ParseMergedInto(label)
	if !ok || id != "metrics" {
		t.Errorf("ParseMergedInto(%q) = (%q, %v), want (metrics, true)", label, id, ok)
	}
}

func TestCodecDefaults(t *testing.T) {
	c := NewCodec("", "")
	if c.Base() != DefaultBase {
		t.Errorf("Base = %q, want %q", c.Base(), DefaultBase)
	}
	if c.UIDPrefix() != DefaultUIDPrefix {
		t.Errorf("UIDPrefix = %q, want %q", c.UIDPrefix(), DefaultUIDPrefix)
	}
}

func TestSpecialLabelsIncludeRoles(t *testing.T) {
	c := NewCodec("stored-object", "UID:")
	specs := c.SpecialLabels()

	byName := make(map[string]Spec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}

	for _, name := range []string{"stored-object", Canonical, Alias, Deprecated, Archived} {
		if _, ok := byName[name]; !ok {
			t.Errorf("SpecialLabels missing %q", name)
		}
	}
	if byName[Alias].Color != AliasColor {
		t.Errorf("alias color = %q, want %q", byName[Alias].Color, AliasColor)
	}
}
