// Package store persists paper metadata and paper groups in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Paper is the bookkeeping record for one uploaded document.
type Paper struct {
	ID          string    `json:"paper_id"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	UploadDate  time.Time `json:"upload_date"`
	TotalPages  int       `json:"total_pages"`
	TotalChunks int       `json:"total_chunks"`
	FilePath    string    `json:"-"`
}

// Group is a named set of papers queried together.
type Group struct {
	ID          string    `json:"group_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PaperIDs    []string  `json:"paper_ids"`
	CreatedDate time.Time `json:"created_date"`
}

// GroupUpdate carries a partial group update. Nil pointer fields are
// left unchanged; paper additions apply before removals.
type GroupUpdate struct {
	Name         *string
	Description  *string
	AddPapers    []string
	RemovePapers []string
}

// ErrNotFound is returned when a paper or group does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			title TEXT,
			upload_date TEXT NOT NULL,
			total_pages INTEGER NOT NULL DEFAULT 0,
			total_chunks INTEGER NOT NULL DEFAULT 0,
			file_path TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS groups (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			created_date TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS group_papers (
			group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			paper_id TEXT NOT NULL,
			PRIMARY KEY (group_id, paper_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_group_papers_paper ON group_papers(paper_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SavePaper inserts or replaces a paper record.
func (s *Store) SavePaper(p *Paper) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO papers (id, filename, title, upload_date, total_pages, total_chunks, file_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Filename, p.Title, p.UploadDate.Format(time.RFC3339Nano),
		p.TotalPages, p.TotalChunks, p.FilePath,
	)
	if err != nil {
		return fmt.Errorf("saving paper %s: %w", p.ID, err)
	}
	return nil
}

// GetPaper fetches one paper, or ErrNotFound.
func (s *Store) GetPaper(id string) (*Paper, error) {
	row := s.db.QueryRow(
		`SELECT id, filename, title, upload_date, total_pages, total_chunks, file_path
		 FROM papers WHERE id = ?`, id)
	p, err := scanPaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting paper %s: %w", id, err)
	}
	return p, nil
}

// ListPapers returns all papers, newest upload first.
func (s *Store) ListPapers() ([]*Paper, error) {
	rows, err := s.db.Query(
		`SELECT id, filename, title, upload_date, total_pages, total_chunks, file_path
		 FROM papers ORDER BY upload_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing papers: %w", err)
	}
	defer rows.Close()

	papers := []*Paper{}
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// DeletePaper removes a paper record and its group memberships.
func (s *Store) DeletePaper(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("deleting paper %s: %w", id, err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM papers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting paper %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting paper %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(`DELETE FROM group_papers WHERE paper_id = ?`, id); err != nil {
		return fmt.Errorf("removing paper %s from groups: %w", id, err)
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaper(r rowScanner) (*Paper, error) {
	var p Paper
	var title, filePath sql.NullString
	var uploaded string
	if err := r.Scan(&p.ID, &p.Filename, &title, &uploaded, &p.TotalPages, &p.TotalChunks, &filePath); err != nil {
		return nil, err
	}
	p.Title = title.String
	p.FilePath = filePath.String
	t, err := time.Parse(time.RFC3339Nano, uploaded)
	if err != nil {
		return nil, fmt.Errorf("parsing upload date: %w", err)
	}
	p.UploadDate = t
	return &p, nil
}

// CreateGroup creates a named group with an optional initial paper set.
func (s *Store) CreateGroup(name, description string, paperIDs []string) (*Group, error) {
	g := &Group{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		PaperIDs:    dedupe(paperIDs),
		CreatedDate: time.Now().UTC(),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("creating group: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO groups (id, name, description, created_date) VALUES (?, ?, ?, ?)`,
		g.ID, g.Name, g.Description, g.CreatedDate.Format(time.RFC3339Nano),
	); err != nil {
		return nil, fmt.Errorf("creating group: %w", err)
	}
	for _, pid := range g.PaperIDs {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO group_papers (group_id, paper_id) VALUES (?, ?)`,
			g.ID, pid,
		); err != nil {
			return nil, fmt.Errorf("adding paper %s to group: %w", pid, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("creating group: %w", err)
	}
	return g, nil
}

// GetGroup fetches one group with its paper IDs, or ErrNotFound.
func (s *Store) GetGroup(id string) (*Group, error) {
	row := s.db.QueryRow(`SELECT id, name, description, created_date FROM groups WHERE id = ?`, id)
	g, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting group %s: %w", id, err)
	}
	if g.PaperIDs, err = s.groupPapers(id); err != nil {
		return nil, err
	}
	return g, nil
}

// ListGroups returns all groups with their paper IDs.
func (s *Store) ListGroups() ([]*Group, error) {
	rows, err := s.db.Query(`SELECT id, name, description, created_date FROM groups ORDER BY created_date`)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	defer rows.Close()

	groups := []*Group{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, g := range groups {
		if g.PaperIDs, err = s.groupPapers(g.ID); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

// UpdateGroup applies a partial update in one transaction and returns
// the updated group, or ErrNotFound.
func (s *Store) UpdateGroup(id string, upd GroupUpdate) (*Group, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("updating group %s: %w", id, err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM groups WHERE id = ?`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("updating group %s: %w", id, err)
	}
	if exists == 0 {
		return nil, ErrNotFound
	}

	if upd.Name != nil {
		if _, err := tx.Exec(`UPDATE groups SET name = ? WHERE id = ?`, *upd.Name, id); err != nil {
			return nil, fmt.Errorf("updating group name: %w", err)
		}
	}
	if upd.Description != nil {
		if _, err := tx.Exec(`UPDATE groups SET description = ? WHERE id = ?`, *upd.Description, id); err != nil {
			return nil, fmt.Errorf("updating group description: %w", err)
		}
	}
	for _, pid := range upd.AddPapers {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO group_papers (group_id, paper_id) VALUES (?, ?)`, id, pid); err != nil {
			return nil, fmt.Errorf("adding paper %s: %w", pid, err)
		}
	}
	for _, pid := range upd.RemovePapers {
		if _, err := tx.Exec(`DELETE FROM group_papers WHERE group_id = ? AND paper_id = ?`, id, pid); err != nil {
			return nil, fmt.Errorf("removing paper %s: %w", pid, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("updating group %s: %w", id, err)
	}
	return s.GetGroup(id)
}

// DeleteGroup removes a group; memberships cascade.
func (s *Store) DeleteGroup(id string) error {
	res, err := s.db.Exec(`DELETE FROM groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting group %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting group %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GroupsForPaper returns every group containing the paper.
func (s *Store) GroupsForPaper(paperID string) ([]*Group, error) {
	rows, err := s.db.Query(
		`SELECT g.id, g.name, g.description, g.created_date
		 FROM groups g JOIN group_papers gp ON gp.group_id = g.id
		 WHERE gp.paper_id = ? ORDER BY g.created_date`, paperID)
	if err != nil {
		return nil, fmt.Errorf("groups for paper %s: %w", paperID, err)
	}
	defer rows.Close()

	groups := []*Group{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, g := range groups {
		if g.PaperIDs, err = s.groupPapers(g.ID); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func (s *Store) groupPapers(groupID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT paper_id FROM group_papers WHERE group_id = ? ORDER BY paper_id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("papers for group %s: %w", groupID, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanGroup(r rowScanner) (*Group, error) {
	var g Group
	var description sql.NullString
	var created string
	if err := r.Scan(&g.ID, &g.Name, &description, &created); err != nil {
		return nil, err
	}
	g.Description = description.String
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("parsing created date: %w", err)
	}
	g.CreatedDate = t
	return &g, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := []string{}
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
