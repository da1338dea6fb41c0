package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"prepple/interview-api/internal/apperr"
	"prepple/interview-api/internal/models"
)

type fakeRoomRepo struct {
	rooms map[uuid.UUID]*models.Room
}

func (f *fakeRoomRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Room, error) {
	room, ok := f.rooms[id]
	if !ok {
		return nil, fmt.Errorf("%w: room %s", apperr.ErrNotFound, id)
	}
	copied := *room
	return &copied, nil
}

type fakeCandidateRepo struct {
	mu         sync.Mutex
	candidates map[uuid.UUID]*models.Candidate
	updates    int
}

func (f *fakeCandidateRepo) Create(_ context.Context, candidate *models.Candidate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if candidate.ID == uuid.Nil {
		candidate.ID = uuid.New()
	}
	f.candidates[candidate.ID] = candidate
	return nil
}

func (f *fakeCandidateRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.candidates[id]
	if !ok {
		return nil, fmt.Errorf("%w: candidate %s", apperr.ErrNotFound, id)
	}
	copied := *c
	return &copied, nil
}

// fakeReportRepo mirrors the transactional contract of the gorm repository:
// either both the report and the candidate change, or neither does.
type fakeReportRepo struct {
	candidates *fakeCandidateRepo
	reports    map[uuid.UUID]*models.Report
	createErr  error
}

func newFakeReportRepo(candidates *fakeCandidateRepo) *fakeReportRepo {
	return &fakeReportRepo{candidates: candidates, reports: map[uuid.UUID]*models.Report{}}
}

func (f *fakeReportRepo) CreateAndLink(_ context.Context, report *models.Report, policy models.DuplicateReportPolicy) (uuid.UUID, error) {
	if f.createErr != nil {
		return uuid.Nil, f.createErr
	}
	f.candidates.mu.Lock()
	defer f.candidates.mu.Unlock()

	candidate, ok := f.candidates.candidates[report.CandidateID]
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: candidate %s", apperr.ErrNotFound, report.CandidateID)
	}
	previous := candidate.ReportID
	if previous != nil && policy == models.DuplicateReject {
		return uuid.Nil, fmt.Errorf("%w: candidate %s", apperr.ErrDuplicateReport, candidate.ID)
	}

	f.reports[report.ID] = report
	score := report.InterviewScore
	id := report.ID
	candidate.InterviewScore = &score
	candidate.ReportID = &id
	f.candidates.updates++

	if previous != nil && policy == models.DuplicateReplace {
		delete(f.reports, *previous)
		return *previous, nil
	}
	return uuid.Nil, nil
}

func (f *fakeReportRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Report, error) {
	r, ok := f.reports[id]
	if !ok {
		return nil, fmt.Errorf("%w: report %s", apperr.ErrNotFound, id)
	}
	return r, nil
}

func (f *fakeReportRepo) FindBatch(_ context.Context, offset, limit int) ([]models.Report, error) {
	var out []models.Report
	for _, r := range f.reports {
		out = append(out, *r)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeReportRepo) FindOrphans(_ context.Context, limit int) ([]models.Report, error) {
	f.candidates.mu.Lock()
	defer f.candidates.mu.Unlock()

	var out []models.Report
	for _, r := range f.reports {
		if c, ok := f.candidates.candidates[r.CandidateID]; ok && c.ReportID == nil {
			out = append(out, *r)
		}
	}
	// newest first
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].CreatedAt.After(out[j-1].CreatedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeReportRepo) LinkOrphan(_ context.Context, report *models.Report) (bool, error) {
	f.candidates.mu.Lock()
	defer f.candidates.mu.Unlock()

	c, ok := f.candidates.candidates[report.CandidateID]
	if !ok || c.ReportID != nil {
		return false, nil
	}
	score := report.InterviewScore
	id := report.ID
	c.InterviewScore = &score
	c.ReportID = &id
	f.candidates.updates++
	return true, nil
}

type fakeBroker struct {
	err   error
	calls []string
	ttls  []time.Duration
}

func (f *fakeBroker) IssueAccess(_ context.Context, storageRef string, ttl time.Duration) (*AccessGrant, error) {
	f.calls = append(f.calls, storageRef)
	f.ttls = append(f.ttls, ttl)
	if f.err != nil {
		return nil, f.err
	}
	now := time.Now()
	return &AccessGrant{
		URL:        "https://files.test/" + storageRef + "?token=signed",
		ObjectPath: storageRef,
		IssuedAt:   now,
		ExpiresAt:  now.Add(ttl),
	}, nil
}

type fakeExtractor struct {
	result ExtractionResult
	urls   []string
}

func (f *fakeExtractor) Extract([]byte, string, string) ExtractionResult {
	return f.result
}

func (f *fakeExtractor) ExtractFromURL(_ context.Context, url string) ExtractionResult {
	f.urls = append(f.urls, url)
	return f.result
}

type fakeEvaluator struct {
	report    *models.EvaluationReport
	err       error
	contracts []*EvaluationContract
	onCall    func()
}

func (f *fakeEvaluator) Evaluate(_ context.Context, contract *EvaluationContract) (*models.EvaluationReport, error) {
	f.contracts = append(f.contracts, contract)
	if f.onCall != nil {
		f.onCall()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

type fakeIndex struct {
	indexed []uuid.UUID
	removed []uuid.UUID
	err     error
}

func (f *fakeIndex) IndexReport(_ context.Context, _ uuid.UUID, report *models.Report) error {
	f.indexed = append(f.indexed, report.ID)
	return f.err
}

func (f *fakeIndex) Search(context.Context, uuid.UUID, string, int) ([]models.ReportSearchHit, error) {
	return nil, nil
}

func (f *fakeIndex) RemoveReport(_ context.Context, reportID uuid.UUID) error {
	f.removed = append(f.removed, reportID)
	return nil
}
