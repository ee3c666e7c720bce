package docstore

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/miroir/internal/common"
)

func TestMemoryStore_PutGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	in := Document{"prenom": "Ana", "age": 31, "interets": []string{"yoga"}}
	require.NoError(t, s.Put(ctx, "profils", "u1", in))

	got, err := s.Get(ctx, "profils", "u1")
	require.NoError(t, err)

	want := Document{"prenom": "Ana", "age": float64(31), "interets": []any{"yoga"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("document mismatch (-want +got):\n%s", diff)
	}

	got["prenom"] = "changed"
	again, err := s.Get(ctx, "profils", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", again["prenom"], "returned documents must not alias stored ones")
}

func TestMemoryStore_NotFound(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "profils", "none")
	require.ErrorIs(t, err, common.ErrorNotFound)

	require.ErrorIs(t, s.Update(ctx, "profils", "none", map[string]any{"a": 1}), common.ErrorNotFound)
	require.ErrorIs(t, s.Modify(ctx, "profils", "none", func(d Document) (Document, error) { return d, nil }), common.ErrorNotFound)
}

func TestMemoryStore_UpdateIsShallowMerge(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "profils", "u1", Document{"prenom": "Ana", "stats": map[string]any{"positif": 1}}))
	require.NoError(t, s.Update(ctx, "profils", "u1", map[string]any{"nom": "Martin", "stats": map[string]any{"neutre": 2}}))

	got, err := s.Get(ctx, "profils", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", got["prenom"])
	assert.Equal(t, "Martin", got["nom"])
	assert.Equal(t, map[string]any{"neutre": float64(2)}, got["stats"])
}

func TestMemoryStore_Modify(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "profils", "u1", Document{"n": 1}))
	require.NoError(t, s.Modify(ctx, "profils", "u1", func(d Document) (Document, error) {
		d["n"] = d["n"].(float64) + 1
		return d, nil
	}))

	got, err := s.Get(ctx, "profils", "u1")
	require.NoError(t, err)
	assert.Equal(t, float64(2), got["n"])

	err = s.Modify(ctx, "profils", "u1", func(d Document) (Document, error) {
		d["n"] = 100
		return nil, assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	got, _ = s.Get(ctx, "profils", "u1")
	assert.Equal(t, float64(2), got["n"], "failed modify must not change the document")
	assert.Equal(t, 1, s.Len("profils"))
}

func TestEncodeDecode(t *testing.T) {
	type code struct {
		Hash string `json:"hash"`
		TTL  int    `json:"ttl"`
	}
	doc, err := Encode(code{Hash: "ab", TTL: 5})
	require.NoError(t, err)
	assert.Equal(t, Document{"hash": "ab", "ttl": float64(5)}, doc)

	var back code
	require.NoError(t, Decode(doc, &back))
	assert.Equal(t, code{Hash: "ab", TTL: 5}, back)
}
