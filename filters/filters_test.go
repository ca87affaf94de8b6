package filters

import (
	"errors"
	"net/url"
	"reflect"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"taskboard/models"
)

var today = civil.Date{Year: 2026, Month: 10, Day: 17}

func date(y int, m time.Month, d int) *civil.Date {
	return &civil.Date{Year: y, Month: m, Day: d}
}

func at(hour int) time.Time {
	return time.Date(2026, 10, 1, hour, 0, 0, 0, time.UTC)
}

func sample() []models.Task {
	return []models.Task{
		{ID: "1", Title: "Write report", Description: "quarterly numbers", Category: models.CategoryWork,
			Priority: models.PriorityHigh, Tags: []string{"Finance"}, DueDate: date(2026, 10, 10), CreatedAt: at(1)},
		{ID: "2", Title: "buy apples", Category: models.CategoryShopping, Priority: models.PriorityLow,
			Completed: true, DueDate: date(2026, 10, 12), CreatedAt: at(2)},
		{ID: "3", Title: "Gym", Category: models.CategoryHealth, Priority: models.PriorityMedium,
			DueDate: date(2026, 10, 17), CreatedAt: at(3)},
		{ID: "4", Title: "Read Go book", Category: models.CategoryLearning, Priority: models.PriorityMedium,
			Tags: []string{"reading"}, CreatedAt: at(4)},
	}
}

func ids(tasks []models.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestDefaultCriteriaSortsNewestFirst(t *testing.T) {
	got := ids(DeriveViewAt(sample(), Default(), today))
	want := []string{"4", "3", "2", "1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestEmptyInput(t *testing.T) {
	got := DeriveViewAt(nil, Default(), today)
	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", got)
	}
}

func TestSearch(t *testing.T) {
	tests := []struct {
		search string
		want   []string
	}{
		{"REPORT", []string{"1"}},
		{"numbers", []string{"1"}},
		{"finance", []string{"1"}},
		{"read", []string{"4"}},
		{"", []string{"4", "3", "2", "1"}},
		{"nothing matches", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			c := Default()
			c.Search = tt.search
			got := ids(DeriveViewAt(sample(), c, today))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCategoryAndPriorityFilters(t *testing.T) {
	c := Default()
	c.Priority = string(models.PriorityMedium)
	if got := ids(DeriveViewAt(sample(), c, today)); !reflect.DeepEqual(got, []string{"4", "3"}) {
		t.Errorf("Expected medium tasks [4 3], got %v", got)
	}

	c.Category = string(models.CategoryHealth)
	if got := ids(DeriveViewAt(sample(), c, today)); !reflect.DeepEqual(got, []string{"3"}) {
		t.Errorf("Expected [3], got %v", got)
	}
}

func TestStatusFilters(t *testing.T) {
	tests := []struct {
		status Status
		want   []string
	}{
		{StatusAll, []string{"4", "3", "2", "1"}},
		{StatusCompleted, []string{"2"}},
		{StatusPending, []string{"4", "3", "1"}},
		// 3 vence hoje, 2 está concluída e 4 não tem prazo.
		{StatusOverdue, []string{"1"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			c := Default()
			c.Status = tt.status
			got := ids(DeriveViewAt(sample(), c, today))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSorting(t *testing.T) {
	tests := []struct {
		key  SortKey
		dir  SortDirection
		want []string
	}{
		{SortTitle, Asc, []string{"2", "3", "4", "1"}},
		{SortTitle, Desc, []string{"1", "4", "3", "2"}},
		{SortPriority, Desc, []string{"1", "3", "4", "2"}},
		{SortPriority, Asc, []string{"2", "3", "4", "1"}},
		{SortDueDate, Asc, []string{"1", "2", "3", "4"}},
		{SortDueDate, Desc, []string{"4", "3", "2", "1"}},
		{SortCreatedAt, Asc, []string{"1", "2", "3", "4"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.key)+"_"+string(tt.dir), func(t *testing.T) {
			c := Default()
			c.SortKey, c.SortDirection = tt.key, tt.dir
			got := ids(DeriveViewAt(sample(), c, today))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSortIsStableInBothDirections(t *testing.T) {
	tasks := []models.Task{
		{ID: "a", Title: "x", Priority: models.PriorityHigh},
		{ID: "b", Title: "y", Priority: models.PriorityHigh},
		{ID: "c", Title: "z", Priority: "urgent"},
		{ID: "d", Title: "w", Priority: models.PriorityHigh},
	}
	for _, dir := range []SortDirection{Asc, Desc} {
		c := Default()
		c.SortKey, c.SortDirection = SortPriority, dir
		got := ids(DeriveViewAt(tasks, c, today))
		want := []string{"c", "a", "b", "d"}
		if dir == Desc {
			want = []string{"a", "b", "d", "c"}
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%s: expected %v, got %v", dir, want, got)
		}
	}
}

func TestDeriveViewDoesNotMutateInput(t *testing.T) {
	tasks := sample()
	before := sample()

	c := Default()
	c.SortKey, c.SortDirection = SortTitle, Asc
	c.Search = "o"
	view := DeriveViewAt(tasks, c, today)
	if len(view) > 0 {
		view[0].Title = "changed"
	}

	if !reflect.DeepEqual(tasks, before) {
		t.Error("Expected input slice untouched")
	}
}

func TestFilterIdempotence(t *testing.T) {
	c := Default()
	c.Status = StatusPending
	c.SortKey, c.SortDirection = SortDueDate, Asc

	once := DeriveViewAt(sample(), c, today)
	twice := DeriveViewAt(once, c, today)
	if !reflect.DeepEqual(ids(once), ids(twice)) {
		t.Errorf("Expected idempotent result, got %v then %v", ids(once), ids(twice))
	}
}

func TestActive(t *testing.T) {
	c := Default()
	if c.Active() {
		t.Error("Expected default criteria inactive")
	}
	c.SortKey = SortTitle
	if c.Active() {
		t.Error("Expected sort change not to count as a filter")
	}
	c.Status = StatusOverdue
	if !c.Active() {
		t.Error("Expected status filter active")
	}
}

func TestParseCriteria(t *testing.T) {
	c, err := ParseCriteria(url.Values{})
	if err != nil {
		t.Fatalf("Failed to parse empty query: %v", err)
	}
	if c != Default() {
		t.Errorf("Expected defaults, got %+v", c)
	}

	q := url.Values{"search": {"Milk"}, "category": {"Shopping"}, "status": {"overdue"}, "sort": {"due_date"}, "order": {"asc"}}
	c, err = ParseCriteria(q)
	if err != nil {
		t.Fatalf("Failed to parse query: %v", err)
	}
	want := Criteria{Search: "Milk", Category: "shopping", Priority: All, Status: StatusOverdue, SortKey: SortDueDate, SortDirection: Asc}
	if c != want {
		t.Errorf("Expected %+v, got %+v", want, c)
	}

	for _, bad := range []url.Values{
		{"category": {"chores"}},
		{"priority": {"urgent"}},
		{"status": {"late"}},
		{"sort": {"name"}},
		{"order": {"up"}},
	} {
		if _, err := ParseCriteria(bad); !errors.Is(err, models.ErrValidation) {
			t.Errorf("Expected ErrValidation for %v, got %v", bad, err)
		}
	}
}
