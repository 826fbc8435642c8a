// Package retriever serves passages back out of the store: random daily
// passages with session-aware repetition avoidance, similarity-ranked
// related passages, and surrounding-context expansion.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/commonplacehq/passagemcp/internal/embedder"
	"github.com/commonplacehq/passagemcp/internal/storage"
	"github.com/commonplacehq/passagemcp/pkg/types"
)

// DefaultRelatedCount is how many related passages FindRelated returns
// when the caller does not ask for a specific number.
const DefaultRelatedCount = 3

// DocumentSource re-extracts a source document. Passage offsets point
// into the extracted text, not the raw file bytes, so context expansion
// has to go through the same extraction the indexer used.
type DocumentSource interface {
	Extract(ctx context.Context, path string) (*types.Document, error)
}

// Retriever reads passages back for presentation. The embedder may be
// nil; related-passage lookups then rely on already stored vectors and
// fall back to a random pick when none exist.
type Retriever struct {
	store              storage.Store
	source             DocumentSource
	embedder           embedder.Embedder
	sessionHistoryDays int
	contextChars       int
}

// New creates a retriever. emb may be nil.
func New(store storage.Store, source DocumentSource, emb embedder.Embedder, sessionHistoryDays, contextChars int) *Retriever {
	return &Retriever{
		store:              store,
		source:             source,
		embedder:           emb,
		sessionHistoryDays: sessionHistoryDays,
		contextChars:       contextChars,
	}
}

// RandomPassage draws a random passage, preferring ones not shown within
// the session history window. When every passage has been shown recently
// the window is ignored rather than returning nothing. The draw is
// recorded in the session history.
func (r *Retriever) RandomPassage(ctx context.Context) (*types.Passage, error) {
	var cutoff *time.Time
	if r.sessionHistoryDays > 0 {
		t := time.Now().UTC().AddDate(0, 0, -r.sessionHistoryDays)
		cutoff = &t
	}

	passage, err := r.store.RandomPassage(ctx, cutoff)
	if errors.Is(err, storage.ErrNoPassages) && cutoff != nil {
		log.Debug().Msg("all passages shown recently, ignoring session window")
		passage, err = r.store.RandomPassage(ctx, nil)
	}
	if err != nil {
		return nil, err
	}

	if err := r.store.RecordShown(ctx, passage.ID); err != nil {
		return nil, fmt.Errorf("failed to record shown passage: %w", err)
	}
	return passage, nil
}

// FindRelated returns up to topK passages ranked by cosine similarity to
// the given passage, excluding the passage itself and its source file.
// When no similarity ranking is possible it falls back to a single random
// passage from another file. topK <= 0 means DefaultRelatedCount.
func (r *Retriever) FindRelated(ctx context.Context, passageID string, topK int) ([]types.ScoredPassage, error) {
	if topK <= 0 {
		topK = DefaultRelatedCount
	}

	base, err := r.store.GetPassage(ctx, passageID)
	if err != nil {
		return nil, err
	}

	if len(base.Embedding) == 0 {
		if r.embedder == nil {
			return r.randomFallback(ctx, base, topK)
		}
		emb, embErr := r.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: base.Text})
		if embErr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().Err(embErr).Str("passage", base.ID).Msg("embedding unavailable, falling back to random")
			return r.randomFallback(ctx, base, topK)
		}
		base.Embedding = emb.Vector
		if err := r.store.SetPassageEmbedding(ctx, base.ID, emb.Vector); err != nil {
			return nil, err
		}
	}

	candidates, err := r.store.ListEmbeddedPassages(ctx, base.SourceFile, base.ID)
	if err != nil {
		return nil, err
	}

	scored := make([]types.ScoredPassage, 0, len(candidates))
	for _, candidate := range candidates {
		similarity, ok := storage.CosineSimilarity(base.Embedding, candidate.Embedding)
		if !ok {
			// Zero-norm or mismatched vectors carry no signal;
			// orthogonal candidates (similarity 0) stay in the ranking.
			continue
		}
		scored = append(scored, types.ScoredPassage{Passage: candidate, Similarity: similarity})
	}
	if len(scored) == 0 {
		return r.randomFallback(ctx, base, topK)
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// randomFallback substitutes up to topK random passages from other files
// when no similarity ranking is possible. Draws are deduplicated with a
// bounded number of attempts; an empty library yields an empty result,
// not an error.
func (r *Retriever) randomFallback(ctx context.Context, base *types.Passage, topK int) ([]types.ScoredPassage, error) {
	results := make([]types.ScoredPassage, 0, topK)
	seen := make(map[string]bool)
	for attempts := 0; len(results) < topK && attempts < topK*4; attempts++ {
		passage, err := r.store.RandomPassageExcludingFile(ctx, base.SourceFile)
		if errors.Is(err, storage.ErrNoPassages) {
			break
		}
		if err != nil {
			return nil, err
		}
		if seen[passage.ID] {
			continue
		}
		seen[passage.ID] = true
		results = append(results, types.ScoredPassage{Passage: passage, Similarity: 0})
	}
	return results, nil
}

// ContextFor returns the passage text expanded with surrounding document
// text on both sides. The source document is re-extracted so the stored
// offsets line up; when extraction fails or the offsets no longer fit,
// the bare passage text is returned.
func (r *Retriever) ContextFor(ctx context.Context, passageID string) (string, error) {
	passage, err := r.store.GetPassage(ctx, passageID)
	if err != nil {
		return "", err
	}

	doc, extractErr := r.source.Extract(ctx, passage.SourceFile)
	if extractErr != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Warn().Err(extractErr).Str("file", passage.SourceFile).Msg("source unreadable, returning passage text only")
		return passage.Text, nil
	}

	text := doc.Text
	if passage.StartChar < 0 || passage.EndChar > len(text) || passage.StartChar > passage.EndChar {
		return passage.Text, nil
	}

	start := passage.StartChar - r.contextChars
	if start < 0 {
		start = 0
	}
	end := passage.EndChar + r.contextChars
	if end > len(text) {
		end = len(text)
	}
	return text[start:end], nil
}
