package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gosimple/slug"
	_ "github.com/mattn/go-sqlite3"

	"github.com/abrezinsky/tennisbracket/internal/bracket"
	"github.com/abrezinsky/tennisbracket/internal/models"
)

// Repository provides data access methods
type Repository struct {
	db *sql.DB
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// SQLite works best with a single connection, and :memory: databases
	// exist per connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}

	if err := repo.migrate(); err != nil {
		return nil, err
	}

	return repo, nil
}

// DB returns the underlying database connection (for transactions)
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS brackets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT UNIQUE NOT NULL,
			slug TEXT NOT NULL,
			correct_predictions INTEGER NOT NULL DEFAULT 0,
			total_predictions INTEGER NOT NULL DEFAULT 0,
			saved_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS seeds (
			bracket_id INTEGER NOT NULL,
			position INTEGER NOT NULL,
			participant_id INTEGER,
			name TEXT,
			PRIMARY KEY (bracket_id, position),
			FOREIGN KEY (bracket_id) REFERENCES brackets(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS bracket_matches (
			bracket_id INTEGER NOT NULL,
			match_id INTEGER NOT NULL,
			round INTEGER NOT NULL,
			status TEXT NOT NULL,
			p1_id INTEGER,
			p1_score INTEGER,
			p1_kind TEXT,
			p1_outcome TEXT,
			p1_provisional BOOLEAN DEFAULT 0,
			p2_id INTEGER,
			p2_score INTEGER,
			p2_kind TEXT,
			p2_outcome TEXT,
			p2_provisional BOOLEAN DEFAULT 0,
			PRIMARY KEY (bracket_id, match_id),
			FOREIGN KEY (bracket_id) REFERENCES brackets(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS predictions (
			bracket_id INTEGER NOT NULL,
			match_id INTEGER NOT NULL,
			winner_id INTEGER NOT NULL,
			winner_score INTEGER NOT NULL,
			loser_score INTEGER NOT NULL,
			occupant1 INTEGER NOT NULL,
			occupant2 INTEGER NOT NULL,
			state TEXT NOT NULL,
			PRIMARY KEY (bracket_id, match_id),
			FOREIGN KEY (bracket_id) REFERENCES brackets(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_brackets_slug ON brackets(slug)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}

// ==================== Bracket Methods ====================

// SaveBracket stores a snapshot in one transaction, replacing any bracket
// with the same title
func (r *Repository) SaveBracket(ctx context.Context, snap bracket.Snapshot) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM brackets WHERE title = ?`, snap.Title); err != nil {
		return 0, err
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO brackets (title, slug, correct_predictions, total_predictions)
		VALUES (?, ?, ?, ?)
	`, snap.Title, slug.Make(snap.Title), snap.Counters.CorrectPredictions, snap.Counters.TotalPredictions)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	for pos, p := range snap.Roster {
		var participantID, name any
		if p != nil {
			participantID, name = p.ID, p.Name
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO seeds (bracket_id, position, participant_id, name) VALUES (?, ?, ?, ?)
		`, id, pos, participantID, name); err != nil {
			return 0, fmt.Errorf("seed %d: %w", pos, err)
		}
	}

	for _, m := range snap.Matches {
		args := []any{id, m.MatchID, m.Round, m.Status.String()}
		args = append(args, playerArgs(m.Player1)...)
		args = append(args, playerArgs(m.Player2)...)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bracket_matches (bracket_id, match_id, round, status,
				p1_id, p1_score, p1_kind, p1_outcome, p1_provisional,
				p2_id, p2_score, p2_kind, p2_outcome, p2_provisional)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, args...); err != nil {
			return 0, fmt.Errorf("match %d: %w", m.MatchID, err)
		}
	}

	for _, p := range snap.Predictions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO predictions (bracket_id, match_id, winner_id, winner_score, loser_score, occupant1, occupant2, state)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, id, p.MatchID, p.PredictedWinnerID, p.WinnerScore.Value, p.LoserScore.Value,
			p.Occupants[0], p.Occupants[1], string(p.State)); err != nil {
			return 0, fmt.Errorf("prediction %d: %w", p.MatchID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func playerArgs(p *bracket.SnapshotPlayer) []any {
	if p == nil {
		return []any{nil, nil, nil, nil, false}
	}
	var score any
	if p.Score != nil {
		score = *p.Score
	}
	return []any{p.ID, score, string(p.Kind), string(p.Outcome), p.Provisional}
}

// playerColumns scans the nullable columns of one match slot
type playerColumns struct {
	id          sql.NullInt64
	score       sql.NullInt64
	kind        sql.NullString
	outcome     sql.NullString
	provisional sql.NullBool
}

func (c *playerColumns) dest() []any {
	return []any{&c.id, &c.score, &c.kind, &c.outcome, &c.provisional}
}

func (c *playerColumns) player() *bracket.SnapshotPlayer {
	if !c.id.Valid {
		return nil
	}
	p := &bracket.SnapshotPlayer{
		ID:          int(c.id.Int64),
		Kind:        bracket.ScoreKind(c.kind.String),
		Outcome:     bracket.Outcome(c.outcome.String),
		Provisional: c.provisional.Bool,
	}
	if c.score.Valid {
		v := int(c.score.Int64)
		p.Score = &v
	}
	return p
}

// GetBracket loads a stored bracket by title or slug
func (r *Repository) GetBracket(ctx context.Context, key string) (*bracket.Snapshot, error) {
	var id int64
	snap := &bracket.Snapshot{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, correct_predictions, total_predictions
		FROM brackets WHERE title = ? OR slug = ?
		ORDER BY title = ? DESC LIMIT 1
	`, key, key, key).Scan(&id, &snap.Title, &snap.Counters.CorrectPredictions, &snap.Counters.TotalPredictions)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if snap.Roster, err = r.seeds(ctx, id); err != nil {
		return nil, err
	}
	if snap.Matches, err = r.matches(ctx, id); err != nil {
		return nil, err
	}
	if snap.Predictions, err = r.predictions(ctx, id); err != nil {
		return nil, err
	}
	return snap, nil
}

func (r *Repository) seeds(ctx context.Context, bracketID int64) ([]*bracket.Participant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT participant_id, name FROM seeds WHERE bracket_id = ? ORDER BY position
	`, bracketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roster []*bracket.Participant
	for rows.Next() {
		var id sql.NullInt64
		var name sql.NullString
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		if !id.Valid {
			roster = append(roster, nil)
			continue
		}
		roster = append(roster, &bracket.Participant{ID: int(id.Int64), Name: name.String})
	}
	return roster, rows.Err()
}

func (r *Repository) matches(ctx context.Context, bracketID int64) ([]bracket.SnapshotMatch, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT match_id, round, status,
		       p1_id, p1_score, p1_kind, p1_outcome, p1_provisional,
		       p2_id, p2_score, p2_kind, p2_outcome, p2_provisional
		FROM bracket_matches WHERE bracket_id = ? ORDER BY match_id
	`, bracketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []bracket.SnapshotMatch
	for rows.Next() {
		var m bracket.SnapshotMatch
		var status string
		var p1, p2 playerColumns
		dest := append([]any{&m.MatchID, &m.Round, &status}, p1.dest()...)
		dest = append(dest, p2.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if m.Status, err = bracket.ParseStatus(status); err != nil {
			return nil, err
		}
		m.Player1, m.Player2 = p1.player(), p2.player()
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *Repository) predictions(ctx context.Context, bracketID int64) ([]bracket.Prediction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT match_id, winner_id, winner_score, loser_score, occupant1, occupant2, state
		FROM predictions WHERE bracket_id = ? ORDER BY match_id
	`, bracketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var preds []bracket.Prediction
	for rows.Next() {
		p := bracket.Prediction{
			WinnerScore: bracket.Score{Kind: bracket.ScorePredicted},
			LoserScore:  bracket.Score{Kind: bracket.ScorePredicted},
		}
		var state string
		if err := rows.Scan(&p.MatchID, &p.PredictedWinnerID, &p.WinnerScore.Value, &p.LoserScore.Value,
			&p.Occupants[0], &p.Occupants[1], &state); err != nil {
			return nil, err
		}
		p.State = bracket.PredictionState(state)
		preds = append(preds, p)
	}
	return preds, rows.Err()
}

// ListBrackets returns stored brackets, most recently saved first
func (r *Repository) ListBrackets(ctx context.Context) ([]models.BracketSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT b.id, b.title, b.slug, b.correct_predictions, b.total_predictions, b.saved_at,
		       (SELECT COUNT(*) FROM seeds s WHERE s.bracket_id = b.id AND s.participant_id IS NOT NULL)
		FROM brackets b
		ORDER BY b.saved_at DESC, b.id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var brackets []models.BracketSummary
	for rows.Next() {
		var b models.BracketSummary
		var savedAt sql.NullString
		if err := rows.Scan(&b.ID, &b.Title, &b.Slug, &b.CorrectPredictions, &b.TotalPredictions, &savedAt, &b.Players); err != nil {
			return nil, err
		}
		b.SavedAt = savedAt.String
		brackets = append(brackets, b)
	}
	return brackets, rows.Err()
}

// DeleteBracket removes a bracket by title or slug
func (r *Repository) DeleteBracket(ctx context.Context, key string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM brackets WHERE title = ? OR slug = ?`, key, key)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ==================== Settings Methods ====================

// GetSetting retrieves a setting value
func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// SetSetting updates a setting value
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	return err
}
