package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subcon/internal/config"
	"subcon/internal/types"
)

func sampleTurns(n int) []types.Turn {
	turns := make([]types.Turn, 0, n)
	for i := 0; i < n; i++ {
		role := types.RoleUser
		if i%2 == 1 {
			role = types.RoleAssistant
		}
		turns = append(turns, types.Turn{
			Timestamp: time.Date(2025, 3, 1, 12, 0, i, 0, time.UTC),
			Role:      role,
			Content:   fmt.Sprintf("turn %d", i),
			Topics:    []string{"science_&_technology"},
			UsedWeb:   i%3 == 0,
		})
	}
	return turns
}

func sampleDialogue() types.DialogueResult {
	return types.DialogueResult{
		ID:      "d-1",
		Starter: "Why is the sky blue?",
		Pairs: []types.DialoguePair{{
			User:      types.Turn{Role: types.RoleAssistant, Content: "b says"},
			Assistant: types.Turn{Role: types.RoleAssistant, Content: "a says"},
		}},
	}
}

// runStoreContract exercises behavior every backend must share.
func runStoreContract(t *testing.T, s RecordStore) {
	ctx := context.Background()

	conscious := NewConsciousRecord(sampleTurns(5))
	require.NoError(t, s.Put(ctx, conscious))

	time.Sleep(2 * time.Millisecond)
	dialogue := NewDialogueRecord(sampleDialogue())
	require.NoError(t, s.Put(ctx, dialogue))

	got, err := s.Get(ctx, conscious.ID)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, got.SchemaVersion)
	assert.Equal(t, KindConscious, got.Kind)
	require.Len(t, got.Turns, 5)
	assert.Equal(t, "turn 4", got.Turns[4].Content)
	assert.True(t, got.Turns[0].UsedWeb)

	got, err = s.Get(ctx, dialogue.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Dialogue)
	assert.Equal(t, "a says", got.Dialogue.Pairs[0].Assistant.Content)
	assert.Equal(t, "b says", got.Dialogue.Pairs[0].User.Content)

	_, err = s.Get(ctx, "conscious__missing")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := s.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, dialogue.ID, all[0].ID, "newest first")

	onlyConscious, err := s.List(ctx, KindConscious, 10)
	require.NoError(t, err)
	require.Len(t, onlyConscious, 1)
	assert.Equal(t, conscious.ID, onlyConscious[0].ID)

	limited, err := s.List(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	assert.Error(t, s.Put(ctx, Record{ID: "x", Kind: "bogus"}))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	runStoreContract(t, s)
	assert.Equal(t, 2, s.Len())
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "chats"))
	require.NoError(t, err)
	defer s.Close()
	runStoreContract(t, s)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".tmp-"), "temp file left behind: %s", e.Name())
	}
}

func TestFileStore_ReadsLegacyPairs(t *testing.T) {
	dir := t.TempDir()
	legacy := `[{"user": "hello there", "assistant": "general kenobi"}, {"user": "u2", "assistant": "a2"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "auto_chat__abc123.json"), []byte(legacy), 0644))

	s, err := NewFileStore(dir)
	require.NoError(t, err)

	rec, err := s.Get(context.Background(), "auto_chat__abc123")
	require.NoError(t, err)
	assert.Equal(t, KindSubconscious, rec.Kind)
	assert.Equal(t, SchemaVersion, rec.SchemaVersion)
	require.NotNil(t, rec.Dialogue)
	require.Len(t, rec.Dialogue.Pairs, 2)
	assert.Equal(t, "hello there", rec.Dialogue.Pairs[0].User.Content)
	assert.Equal(t, "general kenobi", rec.Dialogue.Pairs[0].Assistant.Content)
	assert.Equal(t, 4, rec.Len())

	listed, err := s.List(context.Background(), KindSubconscious, 0)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestFileStore_SkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0644))

	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), NewConsciousRecord(sampleTurns(2))))

	records, err := s.List(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSQLStore_Modernc(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "records.db")
	s, err := NewSQLStore("sqlite", path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())
	require.NoError(t, s.Close())

	s, err = NewSQLStore("sqlite", path)
	require.NoError(t, err)
	defer s.Close()
	runStoreContract(t, s)
}

func TestSQLStore_Mattn(t *testing.T) {
	s, err := NewSQLStore("sqlite3", filepath.Join(t.TempDir(), "records.db"))
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "cgo") {
		t.Skipf("go-sqlite3 unavailable: %v", err)
	}
	require.NoError(t, err)
	defer s.Close()
	runStoreContract(t, s)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), &redis.Options{Addr: mr.Addr()}, "test")
	require.NoError(t, err)
	defer s.Close()
	runStoreContract(t, s)

	assert.True(t, mr.Exists("test:records:all"))
	members, err := mr.ZMembers("test:records:conscious")
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestRedisStore_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := NewRedisStore(ctx, &redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1}, "")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(context.Background(), config.StorageConfig{Backend: "file", Path: filepath.Join(dir, "chats")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(context.Background(), config.StorageConfig{Backend: "sqlite", SQLDriver: "sqlite", Path: filepath.Join(dir, "db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, s)
	require.NoError(t, s.Close())
	assert.FileExists(t, filepath.Join(dir, "db", "records.db"))

	_, err = Open(context.Background(), config.StorageConfig{Backend: "postgres"})
	assert.Error(t, err)
}

func TestRecordIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewRecordID(KindSubconscious)
		require.True(t, strings.HasPrefix(id, "subconscious__"))
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestDecode_RejectsNewerSchema(t *testing.T) {
	data := []byte(`{"schema_version": 99, "id": "conscious__x", "kind": "conscious"}`)
	_, err := Decode(data, "conscious__x", time.Now())
	assert.ErrorIs(t, err, ErrUnsupportedSchema)
}

func TestDecode_FillsMissingFields(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rec, err := Decode([]byte(`{"turns": [{"role": "user", "content": "hi"}]}`), "conscious__old", created)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, rec.SchemaVersion)
	assert.Equal(t, KindConscious, rec.Kind)
	assert.Equal(t, created, rec.CreatedAt)
}
