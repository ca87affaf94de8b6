package database

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/lib/pq"
)

// Formato de largura fixa para timestamps no SQLite, para que a ordenação
// textual coincida com a cronológica.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// nullDate lê colunas DATE (Postgres) ou TEXT "AAAA-MM-DD" (SQLite).
type nullDate struct {
	Date  civil.Date
	Valid bool
}

func (n *nullDate) Scan(src any) error {
	n.Valid = false
	switch v := src.(type) {
	case nil:
		return nil
	case time.Time:
		n.Date, n.Valid = civil.DateOf(v), true
		return nil
	case []byte:
		return n.parse(string(v))
	case string:
		return n.parse(v)
	}
	return fmt.Errorf("tipo não suportado para data: %T", src)
}

func (n *nullDate) parse(s string) error {
	if s == "" {
		return nil
	}
	if len(s) > 10 {
		s = s[:10]
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return err
	}
	n.Date, n.Valid = d, true
	return nil
}

func (n nullDate) ptr() *civil.Date {
	if !n.Valid {
		return nil
	}
	d := n.Date
	return &d
}

func dateArg(d *civil.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

// timestamp lê TIMESTAMPTZ (Postgres) ou o texto gravado por timeArg (SQLite).
type timestamp struct {
	Time time.Time
}

var timestampLayouts = []string{
	sqliteTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

func (t *timestamp) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v
		return nil
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return fmt.Errorf("tipo não suportado para timestamp: %T", src)
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp inválido: %q", s)
}

func (db *DB) timeArg(t time.Time) any {
	if db.dialect == Postgres {
		return t
	}
	return t.UTC().Format(sqliteTimeLayout)
}

// tagList lê TEXT[] (Postgres) ou um array JSON (SQLite).
type tagList []string

func (l *tagList) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*l = []string{}
		return nil
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("tipo não suportado para tags: %T", src)
	}

	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		var tags []string
		if err := json.Unmarshal([]byte(raw), &tags); err != nil {
			return err
		}
		*l = tags
		return nil
	}

	var arr pq.StringArray
	if err := arr.Scan([]byte(raw)); err != nil {
		return err
	}
	*l = []string(arr)
	return nil
}

func (db *DB) tagsArg(tags []string) any {
	if tags == nil {
		tags = []string{}
	}
	if db.dialect == Postgres {
		return pq.StringArray(tags)
	}
	encoded, _ := json.Marshal(tags)
	return string(encoded)
}
