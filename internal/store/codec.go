package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/justyntemme/tscat/internal/entity"
)

// List and attribute columns hold JSON text; timestamps are UTC nanoseconds.

func encodeStrings(list []string) string {
	if list == nil {
		list = []string{}
	}
	data, _ := json.Marshal(list)
	return string(data)
}

func decodeStrings(col string) ([]string, error) {
	var list []string
	if err := json.Unmarshal([]byte(col), &list); err != nil {
		return nil, fmt.Errorf("decode list %q: %w", col, err)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list, nil
}

func encodeAttributes(a *entity.Attributes) (string, error) {
	if a == nil {
		a = entity.NewAttributes()
	}
	data, err := json.Marshal(a)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeAttributes(col string) (*entity.Attributes, error) {
	a := entity.NewAttributes()
	if err := json.Unmarshal([]byte(col), a); err != nil {
		return nil, fmt.Errorf("decode attributes: %w", err)
	}
	return a, nil
}

func encodePredicate(p *entity.Predicate) (sql.NullString, error) {
	if p == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodePredicate(col sql.NullString) (*entity.Predicate, error) {
	if !col.Valid {
		return nil, nil
	}
	p := &entity.Predicate{}
	if err := json.Unmarshal([]byte(col.String), p); err != nil {
		return nil, fmt.Errorf("decode predicate: %w", err)
	}
	return p, nil
}

func encodeTime(t time.Time) int64 { return t.UTC().UnixNano() }

func decodeTime(n int64) time.Time { return time.Unix(0, n).UTC() }

type scanner interface {
	Scan(dest ...any) error
}
