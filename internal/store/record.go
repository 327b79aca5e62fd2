// Package store persists flushed conscious turns and completed subconscious
// dialogues as versioned records. Backends: one JSON file per record, SQLite,
// or Redis.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/ksuid"

	"subcon/internal/types"
)

// SchemaVersion is the record layout written by this build.
const SchemaVersion = 1

// Kind distinguishes conscious transcript slices from self-play dialogues.
type Kind string

const (
	KindConscious    Kind = "conscious"
	KindSubconscious Kind = "subconscious"
)

var (
	// ErrNotFound is returned by Get for unknown ids.
	ErrNotFound = errors.New("record not found")

	// ErrUnsupportedSchema is returned for records written by a newer build.
	ErrUnsupportedSchema = errors.New("unsupported record schema version")
)

// Record is the durable unit written by the flush loop.
type Record struct {
	SchemaVersion int                   `json:"schema_version"`
	ID            string                `json:"id"`
	Kind          Kind                  `json:"kind"`
	CreatedAt     time.Time             `json:"created_at"`
	Turns         []types.Turn          `json:"turns,omitempty"`
	Dialogue      *types.DialogueResult `json:"dialogue,omitempty"`
}

// RecordStore is a durable record sink. Implementations are safe for
// concurrent use.
type RecordStore interface {
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	// List returns records newest first. An empty kind lists every kind and a
	// non-positive limit returns everything.
	List(ctx context.Context, kind Kind, limit int) ([]Record, error)
	Close() error
}

// NewRecordID returns "<kind>__<ksuid>". The ksuid embeds a timestamp and 128
// random bits, so ids sort by creation time and never repeat.
func NewRecordID(kind Kind) string {
	return string(kind) + "__" + ksuid.New().String()
}

// NewConsciousRecord wraps a flushed slice of the conscious transcript.
func NewConsciousRecord(turns []types.Turn) Record {
	return Record{
		SchemaVersion: SchemaVersion,
		ID:            NewRecordID(KindConscious),
		Kind:          KindConscious,
		CreatedAt:     time.Now().UTC(),
		Turns:         turns,
	}
}

// NewDialogueRecord wraps a completed self-play dialogue.
func NewDialogueRecord(result types.DialogueResult) Record {
	return Record{
		SchemaVersion: SchemaVersion,
		ID:            NewRecordID(KindSubconscious),
		Kind:          KindSubconscious,
		CreatedAt:     time.Now().UTC(),
		Dialogue:      &result,
	}
}

// Validate checks the fields every backend relies on.
func (r Record) Validate() error {
	if r.ID == "" {
		return errors.New("record id is empty")
	}
	switch r.Kind {
	case KindConscious, KindSubconscious:
	default:
		return fmt.Errorf("record %s: unknown kind %q", r.ID, r.Kind)
	}
	if r.SchemaVersion > SchemaVersion {
		return fmt.Errorf("record %s: %w: %d", r.ID, ErrUnsupportedSchema, r.SchemaVersion)
	}
	return nil
}

// Len returns the number of turns carried by the record.
func (r Record) Len() int {
	if r.Dialogue != nil {
		return 2 * len(r.Dialogue.Pairs)
	}
	return len(r.Turns)
}

// Encode serializes a record.
func Encode(rec Record) ([]byte, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if rec.SchemaVersion == 0 {
		rec.SchemaVersion = SchemaVersion
	}
	return json.MarshalIndent(rec, "", "  ")
}

// legacyPair is the pre-versioning dialogue layout: a bare JSON array of
// plain-text user/assistant pairs.
type legacyPair struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// Decode parses a record, upgrading older layouts. id and createdAt fill in
// fields that legacy layouts do not carry.
func Decode(data []byte, id string, createdAt time.Time) (Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return decodeLegacy(trimmed, id, createdAt)
	}

	var rec Record
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return Record{}, fmt.Errorf("decode record %s: %w", id, err)
	}
	if rec.SchemaVersion == 0 {
		rec.SchemaVersion = SchemaVersion
	}
	if rec.ID == "" {
		rec.ID = id
	}
	if rec.Kind == "" {
		rec.Kind = kindFromID(rec.ID)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = createdAt
	}
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func decodeLegacy(data []byte, id string, createdAt time.Time) (Record, error) {
	var pairs []legacyPair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return Record{}, fmt.Errorf("decode legacy record %s: %w", id, err)
	}
	result := types.DialogueResult{ID: id, StartedAt: createdAt, FinishedAt: createdAt}
	for _, p := range pairs {
		result.Pairs = append(result.Pairs, types.DialoguePair{
			User:      types.Turn{Timestamp: createdAt, Role: types.RoleAssistant, Content: p.User},
			Assistant: types.Turn{Timestamp: createdAt, Role: types.RoleAssistant, Content: p.Assistant},
		})
	}
	return Record{
		SchemaVersion: SchemaVersion,
		ID:            id,
		Kind:          KindSubconscious,
		CreatedAt:     createdAt,
		Dialogue:      &result,
	}, nil
}

func kindFromID(id string) Kind {
	if strings.HasPrefix(id, string(KindConscious)+"__") {
		return KindConscious
	}
	return KindSubconscious
}
