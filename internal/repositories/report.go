package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"prepple/interview-api/internal/apperr"
	"prepple/interview-api/internal/models"
)

type ReportRepository interface {
	// CreateAndLink inserts report and points its candidate at it (score and
	// report reference) in one transaction. policy decides what happens when
	// the candidate already references a report; under replace the deleted
	// report's id is returned, otherwise uuid.Nil.
	CreateAndLink(ctx context.Context, report *models.Report, policy models.DuplicateReportPolicy) (uuid.UUID, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	FindBatch(ctx context.Context, offset, limit int) ([]models.Report, error)
	FindOrphans(ctx context.Context, limit int) ([]models.Report, error)
	LinkOrphan(ctx context.Context, report *models.Report) (bool, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

// CreateAndLink implements ReportRepository.
func (r *reportRepository) CreateAndLink(ctx context.Context, report *models.Report, policy models.DuplicateReportPolicy) (uuid.UUID, error) {
	replaced := uuid.Nil
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidate models.Candidate
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", report.CandidateID).
			First(&candidate).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: candidate %s", apperr.ErrNotFound, report.CandidateID)
			}
			return fmt.Errorf("failed to lock candidate: %w", err)
		}

		previous := candidate.ReportID
		if previous != nil && policy == models.DuplicateReject {
			return fmt.Errorf("%w: candidate %s already has report %s", apperr.ErrDuplicateReport, candidate.ID, *previous)
		}

		if err := tx.Create(report).Error; err != nil {
			return fmt.Errorf("failed to create report: %w", err)
		}

		result := tx.Model(&models.Candidate{}).
			Where("id = ?", candidate.ID).
			Updates(map[string]interface{}{
				"interview_score": report.InterviewScore,
				"report_id":       report.ID,
				"updated_at":      time.Now(),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to link report to candidate: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: candidate %s", apperr.ErrNotFound, candidate.ID)
		}

		if previous != nil && policy == models.DuplicateReplace {
			if err := tx.Where("id = ?", *previous).Delete(&models.Report{}).Error; err != nil {
				return fmt.Errorf("failed to delete replaced report: %w", err)
			}
			replaced = *previous
		}

		return nil
	})
	if err == nil {
		return replaced, nil
	}
	if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrDuplicateReport) {
		return uuid.Nil, err
	}
	return uuid.Nil, fmt.Errorf("%w: %w", apperr.ErrPersistence, err)
}

// FindByID implements ReportRepository.
func (r *reportRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: report %s", apperr.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: failed to find report: %w", apperr.ErrPersistence, err)
	}
	return &report, nil
}

// FindBatch implements ReportRepository.
func (r *reportRepository) FindBatch(ctx context.Context, offset, limit int) ([]models.Report, error) {
	var reports []models.Report
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list reports: %w", apperr.ErrPersistence, err)
	}
	return reports, nil
}

// FindOrphans implements ReportRepository. Newest first, so relinking
// attaches a candidate to its latest report.
func (r *reportRepository) FindOrphans(ctx context.Context, limit int) ([]models.Report, error) {
	var reports []models.Report
	err := r.db.WithContext(ctx).
		Model(&models.Report{}).
		Joins("JOIN candidates ON candidates.id = reports.candidate_id").
		Where("candidates.report_id IS NULL").
		Order("reports.created_at DESC").
		Limit(limit).
		Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("%w: failed to find orphaned reports: %w", apperr.ErrPersistence, err)
	}
	return reports, nil
}

// LinkOrphan implements ReportRepository. It only touches candidates that
// still have no report, so a concurrent finalize always wins.
func (r *reportRepository) LinkOrphan(ctx context.Context, report *models.Report) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Candidate{}).
		Where("id = ? AND report_id IS NULL", report.CandidateID).
		Updates(map[string]interface{}{
			"interview_score": report.InterviewScore,
			"report_id":       report.ID,
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("%w: failed to link report %s: %w", apperr.ErrPersistence, report.ID, result.Error)
	}
	return result.RowsAffected > 0, nil
}
