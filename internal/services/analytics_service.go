package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"soulcare-backend/internal/models"
	"soulcare-backend/internal/store"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// AnalyticsService derives rollup metrics from the immutable
// message/assessment/disposition stream. Everything here is recomputed from the
// underlying records on each call: it is never a source of truth, so
// recomputation is always safe and idempotent.
type AnalyticsService struct {
	store store.Store
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(s store.Store) *AnalyticsService {
	return &AnalyticsService{store: s}
}

// GetAnalytics recomputes the org's rollup for [from, to). The three rollup
// families load their source records concurrently; each is a pure fold over
// its stream.
func (s *AnalyticsService) GetAnalytics(ctx context.Context, orgID uuid.UUID, from, to time.Time) (*models.AnalyticsRollup, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("%w: date range end must be after start", ErrValidation)
	}

	var (
		messages     []models.ConversationMessage
		assessments  []models.RiskAssessment
		items        []models.EscalationItem
		dispositions []models.DispositionRecord
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		messages, err = s.store.ListMessagesByOrgAndRange(gCtx, orgID, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		assessments, err = s.store.ListAssessmentsByOrgAndRange(gCtx, orgID, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = s.store.ListEscalationItemsByOrgAndRange(gCtx, orgID, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		dispositions, err = s.store.ListDispositionsByOrgAndRange(gCtx, orgID, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load analytics source records: %w", err)
	}

	rollup := &models.AnalyticsRollup{
		OrganizationID:   orgID,
		From:             from,
		To:               to,
		DailyUsage:       dailyUsage(messages, items),
		ReviewerStats:    reviewerStats(dispositions),
		CategoryTriggers: categoryTriggers(assessments),
		GeneratedAt:      time.Now(),
	}
	for _, it := range items {
		if it.Status == models.StatusExpired {
			rollup.ExpiredItemCount++
		}
	}

	log.Printf("[AnalyticsService] GetAnalytics: Recomputed rollup for org %s (%d days, %d reviewers, %d expired)",
		orgID, len(rollup.DailyUsage), len(rollup.ReviewerStats), rollup.ExpiredItemCount)
	return rollup, nil
}

// dailyUsage folds messages and escalations into per-day counts. Interaction
// counting is user-message based; it is a best-effort derived metric, not an
// invariant.
func dailyUsage(messages []models.ConversationMessage, items []models.EscalationItem) []models.DailyUsageMetrics {
	type dayKey struct {
		date string
	}
	byDay := make(map[dayKey]*models.DailyUsageMetrics)
	conversations := make(map[dayKey]map[uuid.UUID]map[uuid.UUID]bool) // day -> persona -> user

	day := func(t time.Time) dayKey { return dayKey{t.UTC().Format("2006-01-02")} }

	get := func(k dayKey) *models.DailyUsageMetrics {
		if m, ok := byDay[k]; ok {
			return m
		}
		m := &models.DailyUsageMetrics{Date: k.date}
		byDay[k] = m
		return m
	}

	for _, msg := range messages {
		k := day(msg.CreatedAt)
		m := get(k)
		if msg.Role == models.RoleMessageUser {
			m.UserMessageCount++
		} else {
			m.AIMessageCount++
		}
		if conversations[k] == nil {
			conversations[k] = make(map[uuid.UUID]map[uuid.UUID]bool)
		}
		if conversations[k][msg.PersonaID] == nil {
			conversations[k][msg.PersonaID] = make(map[uuid.UUID]bool)
		}
		conversations[k][msg.PersonaID][msg.UserID] = true
	}
	for _, it := range items {
		get(day(it.CreatedAt)).EscalationCount++
	}
	for k, personas := range conversations {
		count := 0
		for _, users := range personas {
			count += len(users)
		}
		get(k).ConversationDays = count
	}

	out := make([]models.DailyUsageMetrics, 0, len(byDay))
	for _, m := range byDay {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// reviewerStats folds dispositions into per-reviewer performance.
func reviewerStats(dispositions []models.DispositionRecord) []models.ReviewerPerformance {
	byReviewer := make(map[uuid.UUID]*models.ReviewerPerformance)
	totalSeconds := make(map[uuid.UUID]float64)

	for _, d := range dispositions {
		perf, ok := byReviewer[d.ReviewerID]
		if !ok {
			perf = &models.ReviewerPerformance{ReviewerID: d.ReviewerID}
			byReviewer[d.ReviewerID] = perf
		}
		perf.CasesResolved++
		totalSeconds[d.ReviewerID] += d.ReviewDuration.Seconds()
		switch d.Action {
		case models.ActionApprove:
			perf.ApprovedCount++
		case models.ActionModify:
			perf.ModifiedCount++
		case models.ActionReject:
			perf.RejectedCount++
		case models.ActionEscalate:
			perf.EscalatedCount++
		}
	}

	out := make([]models.ReviewerPerformance, 0, len(byReviewer))
	for id, perf := range byReviewer {
		if perf.CasesResolved > 0 {
			perf.AvgReviewSeconds = totalSeconds[id] / float64(perf.CasesResolved)
		}
		out = append(out, *perf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReviewerID.String() < out[j].ReviewerID.String() })
	return out
}

// categoryTriggers counts how often each risk category fired.
func categoryTriggers(assessments []models.RiskAssessment) map[models.RiskCategory]int {
	counts := make(map[models.RiskCategory]int)
	for _, a := range assessments {
		for _, c := range a.Categories {
			counts[c]++
		}
	}
	return counts
}
