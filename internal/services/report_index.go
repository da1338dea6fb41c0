package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"prepple/interview-api/internal/apperr"
	"prepple/interview-api/internal/logger"
	"prepple/interview-api/internal/models"
)

const (
	indexChunkSize    = 800
	indexChunkOverlap = 100
	maxSearchResults  = 20
)

// ReportIndex makes generated reports searchable by meaning within a room.
type ReportIndex interface {
	IndexReport(ctx context.Context, roomID uuid.UUID, report *models.Report) error
	Search(ctx context.Context, roomID uuid.UUID, query string, limit int) ([]models.ReportSearchHit, error)
	RemoveReport(ctx context.Context, reportID uuid.UUID) error
}

type reportIndex struct {
	store   VectorStore
	gemini  GeminiService
	chunker TextChunker
	prompts *PromptBuilder
	log     *zap.Logger
}

func NewReportIndex(store VectorStore, gemini GeminiService, log *zap.Logger) ReportIndex {
	return &reportIndex{
		store:   store,
		gemini:  gemini,
		chunker: NewTextChunker(),
		prompts: NewPromptBuilder(),
		log:     logger.OrNop(log),
	}
}

// IndexReport implements ReportIndex. Re-indexing a report replaces its
// previous chunks.
func (r *reportIndex) IndexReport(ctx context.Context, roomID uuid.UUID, report *models.Report) error {
	text := r.prompts.BuildReportIndexText(report)
	pieces := r.chunker.ChunkText(text, indexChunkSize, indexChunkOverlap)
	if len(pieces) == 0 {
		return nil
	}

	chunks := make([]ReportChunk, 0, len(pieces))
	for i, piece := range pieces {
		embedding, err := r.gemini.GenerateEmbedding(ctx, piece)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d of report %s: %w", i, report.ID, err)
		}
		chunks = append(chunks, ReportChunk{
			PointID:     chunkPointID(report.ID, i),
			RoomID:      roomID.String(),
			CandidateID: report.CandidateID.String(),
			ReportID:    report.ID.String(),
			Text:        piece,
			Embedding:   embedding,
		})
	}

	if err := r.store.DeleteReport(ctx, report.ID.String()); err != nil {
		return err
	}
	if err := r.store.UpsertChunks(ctx, chunks); err != nil {
		return err
	}

	r.log.Debug("report indexed",
		zap.String(logger.FieldReportID, report.ID.String()),
		zap.Int("chunks", len(chunks)),
	)
	return nil
}

// Search implements ReportIndex. Hits are collapsed to the best chunk per
// report, best first.
func (r *reportIndex) Search(ctx context.Context, roomID uuid.UUID, query string, limit int) ([]models.ReportSearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is empty", apperr.ErrInput)
	}
	if limit <= 0 || limit > maxSearchResults {
		limit = maxSearchResults
	}

	embedding, err := r.gemini.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	chunks, err := r.store.SearchChunks(ctx, embedding, roomID.String(), limit*3)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrUpstreamUnavailable, err)
	}

	seen := make(map[string]bool, len(chunks))
	hits := make([]models.ReportSearchHit, 0, limit)
	for _, c := range chunks {
		if c.ReportID == "" || seen[c.ReportID] {
			continue
		}
		seen[c.ReportID] = true
		hits = append(hits, models.ReportSearchHit{
			ReportID:    c.ReportID,
			CandidateID: c.CandidateID,
			Score:       c.Score,
			Excerpt:     logger.Truncate(c.Text, 280),
		})
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

// chunkPointID is stable so re-indexing overwrites instead of duplicating.
func chunkPointID(reportID uuid.UUID, index int) string {
	return uuid.NewSHA1(reportID, []byte(fmt.Sprintf("chunk-%d", index))).String()
}

// RemoveReport implements ReportIndex.
func (r *reportIndex) RemoveReport(ctx context.Context, reportID uuid.UUID) error {
	if err := r.store.DeleteReport(ctx, reportID.String()); err != nil {
		return fmt.Errorf("%w: failed to remove report %s from index: %w", apperr.ErrUpstreamUnavailable, reportID, err)
	}
	return nil
}
