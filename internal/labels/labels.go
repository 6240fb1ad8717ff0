// Package labels maps object identifiers onto tracker label strings and
// classifies the label grammar the store relies on.
//
// The label set on an issue encodes its role: the base label marks
// participation, a uid label binds the issue to one object id, and the
// role labels (canonical-object, alias-object, deprecated-object, archived)
// plus their pointer labels (ALIAS-TO:<issue#>, MERGED-INTO:<id>) encode
// aliasing and deprecation relationships.
package labels

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Defaults for the configurable labels.
const (
	DefaultBase      = "stored-object"
	DefaultUIDPrefix = "UID:"
)

// Fixed role labels shared by every client of a store.
const (
	Canonical  = "canonical-object"
	Alias      = "alias-object"
	Deprecated = "deprecated-object"
	Archived   = "archived"

	AliasToPrefix    = "ALIAS-TO:"
	MergedIntoPrefix = "MERGED-INTO:"
)

// Label colors used when a label has to be created. DefaultColor is
// GitHub's default blue.
const (
	DefaultColor    = "0366d6"
	AliasColor      = "fbca04"
	DeprecatedColor = "999999"
)

// ErrNoUIDLabel is returned when an issue carries no uid label.
var ErrNoUIDLabel = errors.New("no uid label found")

// Kind classifies a single label within the grammar.
type Kind int

const (
	KindOther Kind = iota
	KindBase
	KindUID
	KindCanonical
	KindAlias
	KindAliasTo
	KindDeprecated
	KindMergedInto
	KindArchived
)

func (k Kind) String() string {
	switch k {
	case KindBase:
		return "base"
	case KindUID:
		return "uid"
	case KindCanonical:
		return "canonical"
	case KindAlias:
		return "alias"
	case KindAliasTo:
		return "alias-to"
	case KindDeprecated:
		return "deprecated"
	case KindMergedInto:
		return "merged-into"
	case KindArchived:
		return "archived"
	default:
		return "other"
	}
}

// Spec describes one label to ensure exists on the repository.
type Spec struct {
	Name        string
	Color       string
	Description string
}

// Codec translates between object ids and label strings for one store
// configuration. Construct with NewCodec; the zero value has empty base
// and prefix and matches nothing.
type Codec struct {
	base      string
	uidPrefix string
}

// NewCodec returns a codec for the given base label and uid prefix.
// Empty arguments fall back to the defaults.
func NewCodec(base, uidPrefix string) Codec {
	if base == "" {
		base = DefaultBase
	}
	if uidPrefix == "" {
		uidPrefix = DefaultUIDPrefix
	}
	return Codec{base: base, uidPrefix: uidPrefix}
}

// Base returns the configured base label.
func (c Codec) Base() string { return c.base }

// UIDPrefix returns the configured uid label prefix.
func (c Codec) UIDPrefix() string { return c.uidPrefix }

// EncodeUID returns the uid label for id. Ids that already carry the
// prefix are returned unchanged, so double-encoding is safe.
func (c Codec) EncodeUID(id string) string {
	if strings.HasPrefix(id, c.uidPrefix) {
		return id
	}
	return c.uidPrefix + id
}

// DecodeUID extracts the object id from a uid label.
func (c Codec) DecodeUID(label string) (string, bool) {
	if !strings.HasPrefix(label, c.uidPrefix) {
		return "", false
	}
	return label[len(c.uidPrefix):], true
}

// StripUID removes the uid prefix from id when present. Bare ids pass
// through unchanged.
func (c Codec) StripUID(id string) string {
	return strings.TrimPrefix(id, c.uidPrefix)
}

// ExtractUID returns the object id from the first uid label in labels,
// or ErrNoUIDLabel when the issue carries none.
func (c Codec) ExtractUID(names []string) (string, error) {
	for _, name := range names {
		if id, ok := c.DecodeUID(name); ok {
			return id, nil
		}
	}
	return "", ErrNoUIDLabel
}

// QueryLabels returns the label pair used to look up the anchor for id.
func (c Codec) QueryLabels(id string) []string {
	return []string{c.base, c.EncodeUID(id)}
}

// Classify reports the role of a single label. For uid, alias-to, and
// merged-into labels the second return value carries the payload (the
// object id or issue number text).
func (c Codec) Classify(label string) (Kind, string) {
	switch label {
	case c.base:
		return KindBase, ""
	case Canonical:
		return KindCanonical, ""
	case Alias:
		return KindAlias, ""
	case Deprecated:
		return KindDeprecated, ""
	case Archived:
		return KindArchived, ""
	}
	if id, ok := c.DecodeUID(label); ok {
		return KindUID, id
	}
	if rest, ok := strings.CutPrefix(label, AliasToPrefix); ok {
		return KindAliasTo, rest
	}
	if rest, ok := strings.CutPrefix(label, MergedIntoPrefix); ok {
		return KindMergedInto, rest
	}
	return KindOther, ""
}

// SpecialLabels enumerates the labels EnsureLabels creates, with the
// colors used by the original store clients.
func (c Codec) SpecialLabels() []Spec {
	return []Spec{
		{Name: c.base, Color: DefaultColor, Description: "Object tracked by gh-store"},
		{Name: Canonical, Color: DefaultColor, Description: "Canonical object in gh-store"},
		{Name: Alias, Color: AliasColor, Description: "Alias to another object"},
		{Name: Deprecated, Color: DeprecatedColor, Description: "Deprecated duplicate object"},
		{Name: Archived, Color: DeprecatedColor, Description: "Archived (soft-deleted) object"},
	}
}

// AliasTo formats the pointer label naming the canonical issue number.
func AliasTo(issueNumber int) string {
	return AliasToPrefix + strconv.Itoa(issueNumber)
}

// ParseAliasTo returns the issue number from an ALIAS-TO label.
func ParseAliasTo(label string) (int, bool) {
	rest, ok := strings.CutPrefix(label, AliasToPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// MergedInto formats the pointer label naming the winning object id.
func MergedInto(objectID string) string {
	return MergedIntoPrefix + objectID
}

// ParseMergedInto returns the object id from a MERGED-INTO label.
func ParseMergedInto(label string) (string, bool) {
	return strings.CutPrefix(label, MergedIntoPrefix)
}

// Contains reports whether names includes name.
func Contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// FirstAliasTarget returns the issue number from the first ALIAS-TO label,
// or an error when the issue carries none. Alias anchors must carry
// exactly one; extras are ignored in favor of the first.
func FirstAliasTarget(names []string) (int, error) {
	for _, name := range names {
		if n, ok := ParseAliasTo(name); ok {
			return n, nil
		}
	}
	return 0, fmt.Errorf("no %s label found", AliasToPrefix)
}
