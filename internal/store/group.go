package store

import (
	"database/sql"
	"fmt"

	"github.com/mhollis/dutywheel/internal/model"
)

type GroupStore struct {
	db *sql.DB
}

func NewGroupStore(db *sql.DB) *GroupStore {
	return &GroupStore{db: db}
}

const groupCols = `id, name, created_at`

func scanGroup(scanner interface{ Scan(...any) error }) (*model.Group, error) {
	var g model.Group
	err := scanner.Scan(&g.ID, &g.Name, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *GroupStore) Create(name string) (*model.Group, error) {
	result, err := s.db.Exec(`INSERT INTO groups (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert group: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *GroupStore) GetByID(id int64) (*model.Group, error) {
	row := s.db.QueryRow(`SELECT `+groupCols+` FROM groups WHERE id = ?`, id)
	g, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return g, nil
}

func (s *GroupStore) List() ([]model.Group, error) {
	rows, err := s.db.Query(`SELECT ` + groupCols + ` FROM groups ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []model.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, *g)
	}
	return groups, rows.Err()
}
