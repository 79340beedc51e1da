package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestDashboardService_Summary(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewDashboardService(gdb)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var newest uint
	for i := 0; i < 25; i++ {
		blog := seedBlog(t, gdb, fmt.Sprintf("blog-%02d", i), i%5 != 0, base.Add(time.Duration(i)*time.Hour))
		newest = blog.ID
	}
	seedComment(t, gdb, newest, "a", true)
	seedComment(t, gdb, newest, "b", false)
	seedComment(t, gdb, newest, "c", false)

	summary, err := svc.Summary(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Blogs != 25 || summary.Comments != 3 || summary.Drafts != 5 {
		t.Fatalf("unexpected counts %+v", summary)
	}
	if summary.TotalPages != 3 {
		t.Fatalf("expected 3 pages, got %d", summary.TotalPages)
	}
	if len(summary.RecentBlogs) != 10 || summary.RecentBlogs[0].ID != newest {
		t.Fatalf("expected newest blog first, got %d items", len(summary.RecentBlogs))
	}

	last, err := svc.Summary(context.Background(), 3, 10)
	if err != nil {
		t.Fatalf("summary page 3: %v", err)
	}
	if len(last.RecentBlogs) != 5 {
		t.Fatalf("expected 5 blogs on last page, got %d", len(last.RecentBlogs))
	}

	beyond, err := svc.Summary(context.Background(), 9, 10)
	if err != nil {
		t.Fatalf("summary page 9: %v", err)
	}
	if len(beyond.RecentBlogs) != 0 || beyond.Blogs != 25 {
		t.Fatalf("expected empty page with counts intact, got %+v", beyond)
	}
}

func TestDashboardService_SummaryDefaults(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewDashboardService(gdb)

	summary, err := svc.Summary(context.Background(), 0, -3)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Page != 1 || summary.PageSize != 10 {
		t.Fatalf("expected defaults page=1 limit=10, got %d/%d", summary.Page, summary.PageSize)
	}
	if summary.TotalPages != 1 || summary.RecentBlogs == nil {
		t.Fatalf("expected a single empty page, got %+v", summary)
	}
}

func TestProperty_DashboardPagesPartitionBlogs(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewDashboardService(gdb)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	const total = 13
	for i := 0; i < total; i++ {
		seedBlog(t, gdb, fmt.Sprintf("page-%02d", i), i%2 == 0, base.Add(time.Duration(i)*time.Minute))
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("consecutive pages are disjoint and cover every blog", prop.ForAll(
		func(limit int) bool {
			seen := make(map[uint]bool, total)
			var previous time.Time
			first, err := svc.Summary(context.Background(), 1, limit)
			if err != nil {
				return false
			}
			for page := 1; page <= first.TotalPages; page++ {
				summary, err := svc.Summary(context.Background(), page, limit)
				if err != nil || len(summary.RecentBlogs) > limit {
					return false
				}
				for _, blog := range summary.RecentBlogs {
					if seen[blog.ID] {
						return false
					}
					if !previous.IsZero() && blog.CreatedAt.After(previous) {
						return false
					}
					previous = blog.CreatedAt
					seen[blog.ID] = true
				}
			}
			return len(seen) == total
		},
		gen.IntRange(1, 15),
	))

	properties.TestingRun(t)
}
