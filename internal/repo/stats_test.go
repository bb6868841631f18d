package repo

import (
	"context"
	"testing"

	"github.com/snapback/snapback-backend/internal/domain"
)

func TestGetProjectStats(t *testing.T) {
	db, p := feedbackDB(t)
	ctx := context.Background()

	seedFeedback(t, db, p.ID, func(f *domain.Feedback) {
		f.Category = domain.CategoryBug
		f.Status = domain.StatusNew
	})
	seedFeedback(t, db, p.ID, func(f *domain.Feedback) {
		f.Category = domain.CategoryBug
		f.Status = domain.StatusResolved
	})
	seedFeedback(t, db, p.ID, func(f *domain.Feedback) {
		f.Category = domain.CategoryFeature
		f.Status = domain.StatusNew
	})

	stats, err := GetProjectStats(ctx, db, p.ID)
	if err != nil {
		t.Fatalf("GetProjectStats: %v", err)
	}
	if stats.Total != 3 {
		t.Fatalf("Total = %d, want 3", stats.Total)
	}
	if stats.ByCategory[domain.CategoryBug] != 2 || stats.ByCategory[domain.CategoryFeature] != 1 {
		t.Fatalf("ByCategory = %v", stats.ByCategory)
	}
	if stats.ByStatus[domain.StatusNew] != 2 || stats.ByStatus[domain.StatusResolved] != 1 {
		t.Fatalf("ByStatus = %v", stats.ByStatus)
	}
	if stats.LastReportAt == nil {
		t.Fatal("LastReportAt not set")
	}
}

func TestGetProjectStats_EmptyProject(t *testing.T) {
	db, p := feedbackDB(t)

	stats, err := GetProjectStats(context.Background(), db, p.ID)
	if err != nil {
		t.Fatalf("GetProjectStats: %v", err)
	}
	if stats.Total != 0 {
		t.Fatalf("Total = %d, want 0", stats.Total)
	}
	if len(stats.ByStatus) != 0 || len(stats.ByCategory) != 0 {
		t.Fatalf("expected empty maps: %+v", stats)
	}
	if stats.LastReportAt != nil {
		t.Fatalf("LastReportAt should be nil, got %v", stats.LastReportAt)
	}
}

func TestFeedbackStats(t *testing.T) {
	db, p := feedbackDB(t)
	ctx := context.Background()

	count, last, err := FeedbackStats(ctx, db, []string{p.ID})
	if err != nil || count != 0 || last != nil {
		t.Fatalf("empty stats: count=%d last=%v err=%v", count, last, err)
	}

	seedFeedback(t, db, p.ID, nil)
	seedFeedback(t, db, p.ID, nil)

	count, last, err = FeedbackStats(ctx, db, []string{p.ID})
	if err != nil {
		t.Fatalf("FeedbackStats: %v", err)
	}
	if count != 2 || last == nil {
		t.Fatalf("count=%d last=%v", count, last)
	}
}
