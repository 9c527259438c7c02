package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

type Config struct {
	ChunkSize    int `split_words:"true" default:"3000"`
	ChunkOverlap int `split_words:"true" default:"200"`
	TopK         int `split_words:"true" default:"4"`
	TTLHours     int `envconfig:"TTL_HOURS" default:"24"`
}

// Retriever ingests a document once per (user, session) and content hash,
// then serves the best matching chunks for a query.
type Retriever struct {
	store   Store
	size    int
	overlap int
	topK    int
	extract func(path string) (string, error)
}

func NewRetriever(store Store, cfg Config) *Retriever {
	r := &Retriever{
		store:   store,
		size:    cfg.ChunkSize,
		overlap: cfg.ChunkOverlap,
		topK:    cfg.TopK,
		extract: Extract,
	}
	if r.size <= 0 {
		r.size = DefaultChunkSize
	}
	if r.overlap < 0 {
		r.overlap = DefaultChunkOverlap
	}
	if r.topK <= 0 {
		r.topK = 4
	}
	return r
}

// Ensure makes path the session's active document, indexing it unless the
// same content was already indexed for this user and session.
func (r *Retriever) Ensure(ctx context.Context, userID, sessionID, path string) error {
	hash, err := fileHash(path)
	if err != nil {
		return fmt.Errorf("hash document: %w", err)
	}
	scope := scopeKey(userID, sessionID)
	docKey := scope + ":" + hash

	if _, err := r.store.Chunks(ctx, docKey); err == nil {
		return r.store.SetActive(ctx, scope, docKey)
	} else if !errors.Is(err, ErrNoDocument) {
		return err
	}

	text, err := r.extract(path)
	if err != nil {
		return err
	}
	chunks := Split(text, r.size, r.overlap)
	if err := r.store.SaveChunks(ctx, docKey, chunks); err != nil {
		return err
	}
	log.Info().
		Str("user_id", userID).
		Str("session_id", sessionID).
		Str("document", path).
		Int("chunks", len(chunks)).
		Msg("document indexed")
	return r.store.SetActive(ctx, scope, docKey)
}

// Search returns the top chunks of the session's active document, or
// ErrNoDocument when nothing was indexed.
func (r *Retriever) Search(ctx context.Context, userID, sessionID, query string, k int) ([]Scored, error) {
	docKey, err := r.store.Active(ctx, scopeKey(userID, sessionID))
	if err != nil {
		return nil, err
	}
	chunks, err := r.store.Chunks(ctx, docKey)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = r.topK
	}
	return Rank(chunks, query, k), nil
}

// HasActive reports whether an earlier turn left an indexed document
// active for this user and session.
func (r *Retriever) HasActive(ctx context.Context, userID, sessionID string) (bool, error) {
	docKey, err := r.store.Active(ctx, scopeKey(userID, sessionID))
	if errors.Is(err, ErrNoDocument) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := r.store.Chunks(ctx, docKey); err != nil {
		if errors.Is(err, ErrNoDocument) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func scopeKey(userID, sessionID string) string {
	return url.QueryEscape(userID) + ":" + url.QueryEscape(sessionID)
}

// Context joins ranked chunks into one prompt block.
func Context(chunks []Scored) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, strings.TrimSpace(c.Text))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
