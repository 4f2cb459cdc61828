package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/playperu/tabletop/internal/playground"
)

// SQLite stores the document as one row of JSONB columns. The table comes
// from the embedded migrations.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) FindDocument(ctx context.Context) (playground.State, bool, error) {
	var elements, templates string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(elements), json(templates) FROM playground WHERE id = 1`,
	).Scan(&elements, &templates)
	if errors.Is(err, sql.ErrNoRows) {
		return playground.State{}, false, nil
	}
	if err != nil {
		return playground.State{}, false, fmt.Errorf("reading playground: %w", err)
	}

	st := playground.NewState()
	if err := json.Unmarshal([]byte(elements), &st.Elements); err != nil {
		return playground.State{}, false, fmt.Errorf("decoding stored elements: %w", err)
	}
	if err := json.Unmarshal([]byte(templates), &st.Templates); err != nil {
		return playground.State{}, false, fmt.Errorf("decoding stored templates: %w", err)
	}
	return st.Clone(), true, nil
}

func (s *SQLite) CreateDocument(ctx context.Context, st playground.State) error {
	elements, templates, err := encodeState(st)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO playground (id, elements, templates) VALUES (1, jsonb(?), jsonb(?))
		 ON CONFLICT(id) DO NOTHING`,
		elements, templates,
	)
	if err != nil {
		return fmt.Errorf("creating playground: %w", err)
	}
	return nil
}

// ReplaceFields inserts the row if missing. Unset fields start out empty on
// insert and keep their stored value on update.
func (s *SQLite) ReplaceFields(ctx context.Context, f Fields) error {
	elements, templates := "{}", "{}"
	var sets []string

	if f.Elements != nil {
		data, err := json.Marshal(*f.Elements)
		if err != nil {
			return fmt.Errorf("encoding elements: %w", err)
		}
		elements = string(data)
		sets = append(sets, "elements = excluded.elements")
	}
	if f.Templates != nil {
		data, err := json.Marshal(*f.Templates)
		if err != nil {
			return fmt.Errorf("encoding templates: %w", err)
		}
		templates = string(data)
		sets = append(sets, "templates = excluded.templates")
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')")

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO playground (id, elements, templates) VALUES (1, jsonb(?), jsonb(?))
		 ON CONFLICT(id) DO UPDATE SET `+strings.Join(sets, ", "),
		elements, templates,
	)
	if err != nil {
		return fmt.Errorf("replacing playground: %w", err)
	}
	return nil
}

func (s *SQLite) Check(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func encodeState(st playground.State) (elements, templates string, err error) {
	st = st.Clone()
	e, err := json.Marshal(st.Elements)
	if err != nil {
		return "", "", fmt.Errorf("encoding elements: %w", err)
	}
	t, err := json.Marshal(st.Templates)
	if err != nil {
		return "", "", fmt.Errorf("encoding templates: %w", err)
	}
	return string(e), string(t), nil
}

var _ Adapter = (*SQLite)(nil)
