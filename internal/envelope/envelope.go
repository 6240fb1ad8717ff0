// Package envelope serializes and parses the JSON wrapper carried by every
// update comment.
//
// Three historical body shapes exist in live repositories and the decoder
// accepts all of them: the modern envelope (_data + _meta), the legacy
// initial-state form (top-level type with an inline data field), and bare
// legacy payloads with no envelope at all. New writes always produce the
// modern envelope.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmarx/gh-store/internal/version"
)

// Mode selects how an update payload combines with the current state.
type Mode string

const (
	// ModeAppend merges the payload into the state recursively: object
	// values merge key by key, everything else replaces wholesale.
	ModeAppend Mode = "append"
	// ModeReplace makes the payload the entire new state.
	ModeReplace Mode = "replace"
)

// Type tags system-generated envelopes. The empty type marks a normal
// user update.
type Type string

const (
	TypeInitialState   Type = "initial_state"
	TypeAlias          Type = "system_alias"
	TypeAliasReference Type = "system_alias_reference"
	TypeDeprecation    Type = "system_deprecation"
	TypeReference      Type = "system_reference"
	TypeRelationship   Type = "system_relationship"
)

const systemPrefix = "system_"

// LegacyClientVersion marks envelopes reconstructed from bodies written
// before the envelope format existed.
const LegacyClientVersion = "legacy"

// ErrMalformed reports a comment body that is not a JSON object. Callers
// skip such comments; they are never consumed and never fail a cycle.
var ErrMalformed = errors.New("malformed comment body")

// Meta carries the metadata stamped by the producing client.
type Meta struct {
	ClientVersion string `json:"client_version"`
	Timestamp     string `json:"timestamp"`
	UpdateMode    Mode   `json:"update_mode"`
	System        bool   `json:"system,omitempty"`
}

// Envelope is the wire form of one update comment.
type Envelope struct {
	Data map[string]any `json:"_data"`
	Meta Meta           `json:"_meta"`
	Type Type           `json:"type,omitempty"`
}

// New returns a user update envelope for data, stamped with the current
// UTC time and this client's version.
func New(data map[string]any, mode Mode) Envelope {
	return newEnvelope(data, mode, "", false)
}

// NewInitialState returns the seed envelope posted when an object is
// created. It is marked processed at creation time and never merges.
func NewInitialState(data map[string]any) Envelope {
	return newEnvelope(data, ModeAppend, TypeInitialState, false)
}

// NewSystem returns a bookkeeping envelope of the given type. System
// envelopes are ignored by update processing.
func NewSystem(typ Type, data map[string]any) Envelope {
	return newEnvelope(data, ModeAppend, typ, true)
}

func newEnvelope(data map[string]any, mode Mode, typ Type, system bool) Envelope {
	if data == nil {
		data = map[string]any{}
	}
	return Envelope{
		Data: data,
		Meta: Meta{
			ClientVersion: version.Version,
			Timestamp:     time.Now().UTC().Format(time.RFC3339),
			UpdateMode:    mode,
			System:        system,
		},
		Type: typ,
	}
}

// Encode renders the envelope as the pretty-printed JSON comment body.
func (e Envelope) Encode() (string, error) {
	b, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding envelope: %w", err)
	}
	return string(b), nil
}

// Decode parses a comment body into an envelope. createdAt is the
// tracker-reported comment creation time, used as the timestamp for
// legacy bodies that carry none.
func Decode(raw []byte, createdAt time.Time) (Envelope, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if _, hasData := probe["_data"]; hasData {
		if _, hasMeta := probe["_meta"]; hasMeta {
			var env Envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			if env.Meta.UpdateMode == "" {
				env.Meta.UpdateMode = ModeAppend
			}
			return env, nil
		}
	}

	// Legacy initial-state: {"type": "initial_state", "data": {...}}.
	if rawType, ok := probe["type"]; ok {
		var typ string
		if err := json.Unmarshal(rawType, &typ); err == nil && typ == string(TypeInitialState) {
			if rawData, ok := probe["data"]; ok {
				var data map[string]any
				if err := json.Unmarshal(rawData, &data); err != nil {
					return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
				}
				return Envelope{Data: data, Meta: legacyMeta(createdAt), Type: TypeInitialState}, nil
			}
		}
	}

	// Bare legacy payload: the body is the update itself.
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Envelope{Data: data, Meta: legacyMeta(createdAt)}, nil
}

func legacyMeta(createdAt time.Time) Meta {
	return Meta{
		ClientVersion: LegacyClientVersion,
		Timestamp:     createdAt.UTC().Format(time.RFC3339),
		UpdateMode:    ModeAppend,
	}
}

// EffectiveTimestamp returns the envelope's metadata timestamp, falling
// back to the tracker-reported time when absent or unparseable. The
// returned instant orders updates across an anchor and its aliases.
func (e Envelope) EffectiveTimestamp(fallback time.Time) time.Time {
	if e.Meta.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339, e.Meta.Timestamp); err == nil {
			return t
		}
	}
	return fallback
}

// IsSystem reports whether the envelope is bookkeeping rather than a user
// update. Both the type prefix and the _meta.system flag discriminate.
func (e Envelope) IsSystem() bool {
	return strings.HasPrefix(string(e.Type), systemPrefix) || e.Meta.System
}

// IsInitialState reports whether the envelope is an object's seed state.
func (e Envelope) IsInitialState() bool {
	return e.Type == TypeInitialState
}

// HistoryType names the envelope for history listings: initial_state and
// system types pass through, everything else is an update.
func (e Envelope) HistoryType() string {
	if e.Type != "" {
		return string(e.Type)
	}
	return "update"
}

// Payload builders for the system envelopes written by alias and
// deduplication operations. Field names match what other store clients
// already expect to find in live repositories.

// AliasPayload is the _data of the system_alias comment on an alias issue.
func AliasPayload(canonicalID string) map[string]any {
	return map[string]any{
		"alias_to":  canonicalID,
		"timestamp": nowStamp(),
	}
}

// AliasReferencePayload is the _data of the system_alias_reference comment
// on the canonical issue.
func AliasReferencePayload(aliasID string) map[string]any {
	return map[string]any{
		"aliased_by": aliasID,
		"timestamp":  nowStamp(),
	}
}

// DeprecationPayload is the _data of the system_deprecation comment on a
// deprecated issue.
func DeprecationPayload(canonicalID, reason string) map[string]any {
	return map[string]any{
		"status":              "deprecated",
		"canonical_object_id": canonicalID,
		"reason":              reason,
		"timestamp":           nowStamp(),
	}
}

// ReferencePayload is the _data of the system_reference comment on the
// surviving issue after a deprecation.
func ReferencePayload(mergedID, reason string) map[string]any {
	return map[string]any{
		"status":           "merged_reference",
		"merged_object_id": mergedID,
		"reason":           reason,
		"timestamp":        nowStamp(),
	}
}

// RelationshipCanonicalPayload marks the canonical side of a duplicate
// group in a system_relationship comment.
func RelationshipCanonicalPayload(aliasIssues []int) map[string]any {
	return map[string]any{
		"duplicate_relationship": "canonical",
		"alias_issues":           aliasIssues,
		"timestamp":              nowStamp(),
	}
}

// RelationshipAliasPayload marks the alias side of a duplicate group in a
// system_relationship comment.
func RelationshipAliasPayload(canonicalIssue int) map[string]any {
	return map[string]any{
		"duplicate_relationship": "alias",
		"canonical_issue":        canonicalIssue,
		"timestamp":              nowStamp(),
	}
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
