// Package filters deriva a visão exibida de uma lista de tarefas: busca,
// filtros por categoria, prioridade e status, e ordenação estável.
package filters

import (
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"taskboard/models"
)

// farFuture ordena tarefas sem prazo depois de qualquer data real.
var farFuture = civil.Date{Year: 9999, Month: 12, Day: 31}

// DeriveView aplica os critérios usando a data local de hoje.
func DeriveView(tasks []models.Task, c Criteria) []models.Task {
	return DeriveViewAt(tasks, c, civil.DateOf(time.Now()))
}

// DeriveViewAt filtra e ordena uma cópia de tasks. A entrada não é alterada.
func DeriveViewAt(tasks []models.Task, c Criteria, today civil.Date) []models.Task {
	needle := strings.ToLower(c.Search)

	view := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if !matchesSearch(t, needle) {
			continue
		}
		if c.Category != "" && c.Category != All && string(t.Category) != c.Category {
			continue
		}
		if c.Priority != "" && c.Priority != All && string(t.Priority) != c.Priority {
			continue
		}
		if !matchesStatus(t, c.Status, today) {
			continue
		}
		view = append(view, t)
	}

	cmp := comparator(c.SortKey)
	if c.SortDirection != Asc {
		asc := cmp
		cmp = func(a, b models.Task) int { return -asc(a, b) }
	}
	slices.SortStableFunc(view, cmp)
	return view
}

func matchesSearch(t models.Task, needle string) bool {
	if needle == "" {
		return true
	}
	if strings.Contains(strings.ToLower(t.Title), needle) ||
		strings.Contains(strings.ToLower(t.Description), needle) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

func matchesStatus(t models.Task, status Status, today civil.Date) bool {
	switch status {
	case StatusCompleted:
		return t.Completed
	case StatusPending:
		return !t.Completed
	case StatusOverdue:
		return t.IsOverdue(today)
	}
	return true
}

// comparator devolve a comparação ascendente para a chave.
func comparator(key SortKey) func(a, b models.Task) int {
	switch key {
	case SortTitle:
		return func(a, b models.Task) int {
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		}
	case SortPriority:
		return func(a, b models.Task) int {
			return a.Priority.Rank() - b.Priority.Rank()
		}
	case SortDueDate:
		return func(a, b models.Task) int {
			return compareDates(dueOrFar(a), dueOrFar(b))
		}
	}
	return func(a, b models.Task) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func dueOrFar(t models.Task) civil.Date {
	if t.DueDate == nil {
		return farFuture
	}
	return *t.DueDate
}

func compareDates(a, b civil.Date) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}
