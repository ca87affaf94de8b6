// Package dashboard calcula as estatísticas de progresso de uma lista de tarefas.
package dashboard

import (
	"time"

	"cloud.google.com/go/civil"

	"taskboard/models"
)

type Summary struct {
	Total            int                     `json:"total"`
	Completed        int                     `json:"completed"`
	Pending          int                     `json:"pending"`
	CompletionRate   float64                 `json:"completion_rate_percent"`
	ByPriority       map[models.Priority]int `json:"by_priority"`
	ByCategory       map[models.Category]int `json:"by_category"`
	OverdueCount     int                     `json:"overdue_count"`
	DueTodayCount    int                     `json:"due_today_count"`
	WithDueDateCount int                     `json:"with_due_date_count"`
}

// Summarize usa a data local de hoje, lida uma única vez.
func Summarize(tasks []models.Task) Summary {
	return SummarizeAt(tasks, civil.DateOf(time.Now()))
}

// SummarizeAt calcula o resumo considerando today como a data corrente.
func SummarizeAt(tasks []models.Task, today civil.Date) Summary {
	s := Summary{
		Total:      len(tasks),
		ByPriority: make(map[models.Priority]int, len(models.Priorities)),
		ByCategory: map[models.Category]int{},
	}
	for _, p := range models.Priorities {
		s.ByPriority[p] = 0
	}

	for _, t := range tasks {
		if t.Completed {
			s.Completed++
		}
		if _, known := s.ByPriority[t.Priority]; known {
			s.ByPriority[t.Priority]++
		}

		category := t.Category
		if category == "" {
			category = models.CategoryGeneral
		}
		s.ByCategory[category]++

		if t.DueDate == nil {
			continue
		}
		s.WithDueDateCount++
		if t.IsOverdue(today) {
			s.OverdueCount++
		}
		if !t.Completed && *t.DueDate == today {
			s.DueTodayCount++
		}
	}

	s.Pending = s.Total - s.Completed
	if s.Total > 0 {
		s.CompletionRate = float64(s.Completed) * 100 / float64(s.Total)
	}
	return s
}
