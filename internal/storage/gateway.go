package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Keys under which the collections are persisted.
const (
	NotesKey           = "voice-canvas-notes"
	FoldersKey         = "voice-canvas-folders"
	MirrorKey          = "voice-canvas-cloud-sync"
	SummarySettingsKey = "voice-canvas-summary-settings"
	audioKeyPrefix     = "audio-"
)

var (
	// ErrCorrupt indicates that a stored document could not be decoded.
	ErrCorrupt      = errors.New("storage: corrupt document")
	errMissingStore = errors.New("storage: store is required")
)

// Gateway reads and writes JSON documents and audio blobs through a Store.
type Gateway struct {
	store Store
}

// NewGateway constructs a Gateway backed by store.
func NewGateway(store Store) (*Gateway, error) {
	if store == nil {
		return nil, errMissingStore
	}
	return &Gateway{store: store}, nil
}

// AudioKey returns the store key of the blob referenced by a recording's audio reference.
func AudioKey(audioRef string) string {
	return audioKeyPrefix + audioRef
}

// LoadJSON decodes the document stored under key into target.
// It reports false without error when nothing is stored under key.
func (g *Gateway) LoadJSON(ctx context.Context, key string, target any) (bool, error) {
	raw, err := g.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(raw) == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return true, nil
}

// SaveJSON encodes value and stores it under key.
func (g *Gateway) SaveJSON(ctx context.Context, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", key, err)
	}
	return g.store.Set(ctx, key, string(encoded))
}

// SaveAudio stores a base64 data URI under the blob key for audioRef.
func (g *Gateway) SaveAudio(ctx context.Context, audioRef, dataURI string) error {
	if audioRef == "" {
		return ErrEmptyKey
	}
	return g.store.Set(ctx, AudioKey(audioRef), dataURI)
}

// LoadAudio returns the data URI stored for audioRef or ErrNotFound.
func (g *Gateway) LoadAudio(ctx context.Context, audioRef string) (string, error) {
	if audioRef == "" {
		return "", ErrNotFound
	}
	return g.store.Get(ctx, AudioKey(audioRef))
}

// RemoveAudio deletes the blob stored for audioRef.
func (g *Gateway) RemoveAudio(ctx context.Context, audioRef string) error {
	if audioRef == "" {
		return nil
	}
	return g.store.Delete(ctx, AudioKey(audioRef))
}

// AudioRefs lists the audio references that currently have a stored blob.
func (g *Gateway) AudioRefs(ctx context.Context) ([]string, error) {
	keys, err := g.store.Keys(ctx, audioKeyPrefix)
	if err != nil {
		return nil, err
	}
	refs := make([]string, 0, len(keys))
	for _, key := range keys {
		refs = append(refs, strings.TrimPrefix(key, audioKeyPrefix))
	}
	return refs, nil
}
