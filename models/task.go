package models

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

type Category string

const (
	CategoryGeneral  Category = "general"
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryShopping Category = "shopping"
	CategoryHealth   Category = "health"
	CategoryLearning Category = "learning"
)

// Categories lista as categorias aceitas, na ordem exibida pelo cliente.
var Categories = []Category{
	CategoryGeneral,
	CategoryWork,
	CategoryPersonal,
	CategoryShopping,
	CategoryHealth,
	CategoryLearning,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Rank devolve o peso usado na ordenação por prioridade (desconhecida = 0).
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

type Task struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Completed   bool        `json:"completed"`
	DueDate     *civil.Date `json:"due_date"`
	Category    Category    `json:"category"`
	Priority    Priority    `json:"priority"`
	Tags        []string    `json:"tags"`
	OwnerID     string      `json:"user_id"`
	WorkspaceID *string     `json:"workspace_id"`
	CreatedAt   time.Time   `json:"created_at"`
}

// IsOverdue indica se a tarefa está pendente com prazo anterior a today.
func (t Task) IsOverdue(today civil.Date) bool {
	return !t.Completed && t.DueDate != nil && t.DueDate.Before(today)
}

// TaskInput é o corpo aceito na criação de uma tarefa.
type TaskInput struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	DueDate     *civil.Date `json:"due_date"`
	Category    Category    `json:"category"`
	Priority    Priority    `json:"priority"`
	Tags        []string    `json:"tags"`
	WorkspaceID *string     `json:"workspace_id"`
}

// Normalize aplica os valores padrão e valida a entrada.
// O título é validado antes de qualquer acesso ao banco.
func (in *TaskInput) Normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if in.Category == "" {
		in.Category = CategoryGeneral
	}
	if !in.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrValidation, in.Category)
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !in.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrValidation, in.Priority)
	}
	in.Tags = CleanTags(in.Tags)
	if in.WorkspaceID != nil && *in.WorkspaceID == "" {
		in.WorkspaceID = nil
	}
	return nil
}

// TaskPatch descreve uma atualização parcial; campos nil não são alterados.
type TaskPatch struct {
	Title        *string     `json:"title"`
	Description  *string     `json:"description"`
	DueDate      *civil.Date `json:"due_date"`
	ClearDueDate bool        `json:"clear_due_date"`
	Category     *Category   `json:"category"`
	Priority     *Priority   `json:"priority"`
	Tags         []string    `json:"tags"`
	Completed    *bool       `json:"completed"`
}

// Apply valida o patch e o aplica sobre uma cópia de t.
func (p TaskPatch) Apply(t Task) (Task, error) {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return t, fmt.Errorf("%w: title is required", ErrValidation)
		}
		t.Title = title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.ClearDueDate {
		t.DueDate = nil
	} else if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
	if p.Category != nil {
		if !p.Category.Valid() {
			return t, fmt.Errorf("%w: unknown category %q", ErrValidation, *p.Category)
		}
		t.Category = *p.Category
	}
	if p.Priority != nil {
		if !p.Priority.Valid() {
			return t, fmt.Errorf("%w: unknown priority %q", ErrValidation, *p.Priority)
		}
		t.Priority = *p.Priority
	}
	if p.Tags != nil {
		t.Tags = CleanTags(p.Tags)
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t, nil
}

// CleanTags remove espaços nas pontas e descarta rótulos vazios, mantendo a ordem.
func CleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
