package filters

import (
	"fmt"
	"net/url"
	"strings"

	"taskboard/models"
)

type Status string

const (
	StatusAll       Status = "all"
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
	StatusOverdue   Status = "overdue"
)

type SortKey string

const (
	SortCreatedAt SortKey = "created_at"
	SortTitle     SortKey = "title"
	SortPriority  SortKey = "priority"
	SortDueDate   SortKey = "due_date"
)

type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// All é o valor que desativa os filtros de categoria e prioridade.
const All = "all"

type Criteria struct {
	Search        string        `json:"search"`
	Category      string        `json:"category"`
	Priority      string        `json:"priority"`
	Status        Status        `json:"status"`
	SortKey       SortKey       `json:"sort_by"`
	SortDirection SortDirection `json:"sort_order"`
}

// Default devolve os critérios iniciais: nada filtrado, mais novas primeiro.
func Default() Criteria {
	return Criteria{
		Category:      All,
		Priority:      All,
		Status:        StatusAll,
		SortKey:       SortCreatedAt,
		SortDirection: Desc,
	}
}

// Active indica se algum filtro (não a ordenação) difere do padrão.
func (c Criteria) Active() bool {
	return c.Search != "" || c.Category != All || c.Priority != All || c.Status != StatusAll
}

// Validate confere os valores enumerados.
func (c Criteria) Validate() error {
	if c.Category != All && !models.Category(c.Category).Valid() {
		return fmt.Errorf("%w: unknown category %q", models.ErrValidation, c.Category)
	}
	if c.Priority != All && !models.Priority(c.Priority).Valid() {
		return fmt.Errorf("%w: unknown priority %q", models.ErrValidation, c.Priority)
	}
	switch c.Status {
	case StatusAll, StatusCompleted, StatusPending, StatusOverdue:
	default:
		return fmt.Errorf("%w: unknown status %q", models.ErrValidation, c.Status)
	}
	switch c.SortKey {
	case SortCreatedAt, SortTitle, SortPriority, SortDueDate:
	default:
		return fmt.Errorf("%w: unknown sort key %q", models.ErrValidation, c.SortKey)
	}
	if c.SortDirection != Asc && c.SortDirection != Desc {
		return fmt.Errorf("%w: unknown sort direction %q", models.ErrValidation, c.SortDirection)
	}
	return nil
}

// ParseCriteria lê search, category, priority, status, sort e order da query
// string. Parâmetros ausentes ficam com o valor padrão.
func ParseCriteria(q url.Values) (Criteria, error) {
	c := Default()
	c.Search = q.Get("search")
	if v := strings.TrimSpace(q.Get("category")); v != "" {
		c.Category = strings.ToLower(v)
	}
	if v := strings.TrimSpace(q.Get("priority")); v != "" {
		c.Priority = strings.ToLower(v)
	}
	if v := strings.TrimSpace(q.Get("status")); v != "" {
		c.Status = Status(strings.ToLower(v))
	}
	if v := strings.TrimSpace(q.Get("sort")); v != "" {
		c.SortKey = SortKey(strings.ToLower(v))
	}
	if v := strings.TrimSpace(q.Get("order")); v != "" {
		c.SortDirection = SortDirection(strings.ToLower(v))
	}
	return c, c.Validate()
}
