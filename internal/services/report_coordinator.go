package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"prepple/interview-api/internal/apperr"
	"prepple/interview-api/internal/logger"
	"prepple/interview-api/internal/models"
	"prepple/interview-api/internal/repositories"
)

type ReportCoordinator interface {
	Finalize(ctx context.Context, roomID, candidateID uuid.UUID, transcript, usage json.RawMessage) (uuid.UUID, error)
}

type ReportCoordinatorOptions struct {
	ResumeURLTTL    time.Duration
	DuplicatePolicy models.DuplicateReportPolicy
}

type reportCoordinator struct {
	roomRepo      repositories.RoomRepository
	candidateRepo repositories.CandidateRepository
	reportRepo    repositories.ReportRepository
	broker        ResourceAccessBroker
	extractor     DocumentTextExtractor
	contracts     ContractBuilder
	evaluator     EvaluationClient
	index         ReportIndex
	opts          ReportCoordinatorOptions
	now           func() time.Time
	log           *zap.Logger
}

// NewReportCoordinator wires the evaluation pipeline. index may be nil when
// semantic search is disabled.
func NewReportCoordinator(
	roomRepo repositories.RoomRepository,
	candidateRepo repositories.CandidateRepository,
	reportRepo repositories.ReportRepository,
	broker ResourceAccessBroker,
	extractor DocumentTextExtractor,
	contracts ContractBuilder,
	evaluator EvaluationClient,
	index ReportIndex,
	opts ReportCoordinatorOptions,
	log *zap.Logger,
) ReportCoordinator {
	if opts.ResumeURLTTL <= 0 {
		opts.ResumeURLTTL = 5 * time.Minute
	}
	if opts.DuplicatePolicy == "" {
		opts.DuplicatePolicy = models.DuplicateAllow
	}
	return &reportCoordinator{
		roomRepo:      roomRepo,
		candidateRepo: candidateRepo,
		reportRepo:    reportRepo,
		broker:        broker,
		extractor:     extractor,
		contracts:     contracts,
		evaluator:     evaluator,
		index:         index,
		opts:          opts,
		now:           time.Now,
		log:           logger.OrNop(log),
	}
}

// Finalize implements ReportCoordinator. Only the evaluation and the final
// write can fail the call; résumé problems degrade to an empty résumé.
func (c *reportCoordinator) Finalize(ctx context.Context, roomID, candidateID uuid.UUID, transcript, usage json.RawMessage) (uuid.UUID, error) {
	log := logger.ForPipeline(c.log, roomID.String(), candidateID.String())
	started := c.now()

	room, candidate, err := loadRoomAndCandidate(ctx, c.roomRepo, c.candidateRepo, roomID, candidateID)
	if err != nil {
		return uuid.Nil, err
	}

	resume := c.resumeText(ctx, candidate)
	if !resume.OK() {
		log.Info("evaluating without resume text", zap.String("reason", string(resume.Reason)))
	}

	var instruction string
	if room.AIInstruction != nil {
		instruction = *room.AIInstruction
	}

	contract, err := c.contracts.Build(EvaluationInput{
		JobPosting:    room.JobPosting,
		CandidateName: candidate.Name,
		Position:      room.Title,
		InterviewType: room.InterviewType,
		IdealLength:   room.IdealLength,
		AIInstruction: instruction,
		ResumeText:    resume.Text,
		Transcript:    transcript,
		UsageMetrics:  usage,
	})
	if err != nil {
		return uuid.Nil, err
	}

	evaluation, err := c.evaluator.Evaluate(ctx, contract)
	if err != nil {
		log.Error("evaluation failed", zap.Error(err))
		return uuid.Nil, fmt.Errorf("failed to evaluate interview: %w", err)
	}

	// A caller that gave up must not end up with a report it never saw.
	if err := ctx.Err(); err != nil {
		return uuid.Nil, fmt.Errorf("%w: request cancelled before the report was saved: %w", apperr.ErrUpstreamUnavailable, err)
	}

	report := models.NewReport(candidate.ID, evaluation, c.now().UTC())
	replaced, err := c.reportRepo.CreateAndLink(ctx, report, c.opts.DuplicatePolicy)
	if err != nil {
		if errors.Is(err, apperr.ErrDuplicateReport) {
			log.Warn("duplicate report rejected", zap.Error(err))
		} else {
			log.Error("failed to persist report", zap.Error(err))
		}
		return uuid.Nil, err
	}

	log.Info("interview report saved",
		zap.String(logger.FieldReportID, report.ID.String()),
		zap.Float64("interview_score", report.InterviewScore),
		zap.String("recommendation", string(report.Recommendation)),
		zap.Duration("elapsed", c.now().Sub(started)),
	)

	if c.index != nil {
		if replaced != uuid.Nil {
			if err := c.index.RemoveReport(ctx, replaced); err != nil {
				log.Warn("failed to unindex replaced report", zap.String(logger.FieldReportID, replaced.String()), zap.Error(err))
			}
		}
		if err := c.index.IndexReport(ctx, room.ID, report); err != nil {
			log.Warn("failed to index report", zap.String(logger.FieldReportID, report.ID.String()), zap.Error(err))
		}
	}

	return report.ID, nil
}

func (c *reportCoordinator) resumeText(ctx context.Context, candidate *models.Candidate) ExtractionResult {
	if strings.TrimSpace(candidate.ResumeURL) == "" {
		return Degraded(ReasonNoDocument, "candidate has no resume on file")
	}

	grant, err := c.broker.IssueAccess(ctx, candidate.ResumeURL, c.opts.ResumeURLTTL)
	if err != nil {
		return Degraded(ReasonAccessDenied, err.Error())
	}

	return c.extractor.ExtractFromURL(ctx, grant.URL)
}
