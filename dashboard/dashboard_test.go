package dashboard

import (
	"reflect"
	"testing"

	"cloud.google.com/go/civil"

	"taskboard/models"
)

var today = civil.Date{Year: 2026, Month: 10, Day: 17}

func TestSummarizeEmpty(t *testing.T) {
	s := SummarizeAt(nil, today)

	if s.Total != 0 || s.Completed != 0 || s.CompletionRate != 0 {
		t.Errorf("Expected zero totals, got %+v", s)
	}
	if s.OverdueCount != 0 || s.DueTodayCount != 0 || s.WithDueDateCount != 0 {
		t.Errorf("Expected zero date counts, got %+v", s)
	}
	want := map[models.Priority]int{models.PriorityHigh: 0, models.PriorityMedium: 0, models.PriorityLow: 0}
	if !reflect.DeepEqual(s.ByPriority, want) {
		t.Errorf("Expected zero-filled priorities, got %v", s.ByPriority)
	}
	if len(s.ByCategory) != 0 {
		t.Errorf("Expected empty categories, got %v", s.ByCategory)
	}
}

func TestSummarizeScenario(t *testing.T) {
	yesterday := today.AddDays(-1)
	tasks := []models.Task{
		{Completed: true, Priority: models.PriorityHigh, Category: models.CategoryWork},
		{Completed: false, Priority: models.PriorityLow, DueDate: &yesterday},
	}

	s := SummarizeAt(tasks, today)
	if s.Total != 2 || s.Completed != 1 || s.Pending != 1 {
		t.Errorf("Expected total=2 completed=1 pending=1, got %+v", s)
	}
	if s.CompletionRate != 50 {
		t.Errorf("Expected 50%%, got %v", s.CompletionRate)
	}
	if s.OverdueCount != 1 {
		t.Errorf("Expected 1 overdue, got %d", s.OverdueCount)
	}
	if s.ByPriority[models.PriorityHigh] != 1 || s.ByPriority[models.PriorityLow] != 1 || s.ByPriority[models.PriorityMedium] != 0 {
		t.Errorf("Unexpected priority counts: %v", s.ByPriority)
	}
	// Categoria vazia conta como general.
	wantCategories := map[models.Category]int{models.CategoryWork: 1, models.CategoryGeneral: 1}
	if !reflect.DeepEqual(s.ByCategory, wantCategories) {
		t.Errorf("Expected %v, got %v", wantCategories, s.ByCategory)
	}
}

func TestSummarizeDueDates(t *testing.T) {
	tomorrow := today.AddDays(1)
	lastWeek := today.AddDays(-7)
	d := today

	tasks := []models.Task{
		{DueDate: &d},
		{DueDate: &d, Completed: true},
		{DueDate: &tomorrow},
		{DueDate: &lastWeek, Completed: true},
		{DueDate: &lastWeek},
		{},
	}

	s := SummarizeAt(tasks, today)
	if s.DueTodayCount != 1 {
		t.Errorf("Expected 1 pending task due today, got %d", s.DueTodayCount)
	}
	if s.OverdueCount != 1 {
		t.Errorf("Expected 1 overdue, got %d", s.OverdueCount)
	}
	if s.WithDueDateCount != 5 {
		t.Errorf("Expected 5 with due date, got %d", s.WithDueDateCount)
	}
}

func TestCompletionRateBounds(t *testing.T) {
	tasks := []models.Task{{Completed: true}, {Completed: true}, {}}
	s := SummarizeAt(tasks, today)
	if s.CompletionRate < 66.6 || s.CompletionRate > 66.7 {
		t.Errorf("Expected ~66.67%%, got %v", s.CompletionRate)
	}

	all := SummarizeAt([]models.Task{{Completed: true}}, today)
	if all.CompletionRate != 100 {
		t.Errorf("Expected 100%%, got %v", all.CompletionRate)
	}
}
