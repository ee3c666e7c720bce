// Package docstore is the remote document store used for profile documents
// and verification codes. Documents are JSON objects addressed by a
// collection name and a key.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
)

// Document is a decoded JSON object. Numbers decode as float64.
type Document map[string]any

// Store is implemented by PostgresStore and MemoryStore. Get and Update
// return common.ErrorNotFound for absent documents.
type Store interface {
	Get(ctx context.Context, collection, key string) (Document, error)
	Put(ctx context.Context, collection, key string, doc Document) error
	Update(ctx context.Context, collection, key string, fields map[string]any) error
	Modify(ctx context.Context, collection, key string, fn func(Document) (Document, error)) error
}

// Decode converts a document into v through its JSON form.
func Decode(doc Document, v any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// Encode converts v (a struct or map) into a document.
func Encode(v any) (Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

func merge(doc Document, fields map[string]any) Document {
	out := make(Document, len(doc)+len(fields))
	for k, v := range doc {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}
