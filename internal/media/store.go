package media

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Store provides access to the media registry.
type Store struct {
	db *sql.DB
}

// NewStore creates a new media store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// mapSQLiteError converts SQLite errors to custom error types.
func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	// modernc.org/sqlite wraps errors; check error message for constraint violations
	errStr := err.Error()
	if strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "PRIMARY KEY constraint failed") {
		return ErrDuplicate
	}
	return err
}

// Add inserts a new item into the registry.
// Sets ID, AddedAt, and UpdatedAt on the struct.
func (s *Store) Add(it *Item) error {
	if it.Status == "" {
		it.Status = StatusMissing
	}
	now := time.Now()
	result, err := s.db.Exec(`
		INSERT INTO media (type, title, year, folder_path, youtube_id, profile, status, trailer_exists, downloaded_at, added_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.Type, it.Title, it.Year, it.FolderPath, it.YouTubeID, it.Profile, it.Status, it.TrailerExists, it.DownloadedAt, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert media: %w", mapSQLiteError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	it.ID = id
	it.AddedAt = now
	it.UpdatedAt = now
	return nil
}

const itemColumns = `id, type, title, year, folder_path, youtube_id, profile, status, trailer_exists, downloaded_at, added_at, updated_at`

func scanItem(row interface{ Scan(...any) error }) (*Item, error) {
	it := &Item{}
	err := row.Scan(&it.ID, &it.Type, &it.Title, &it.Year, &it.FolderPath, &it.YouTubeID,
		&it.Profile, &it.Status, &it.TrailerExists, &it.DownloadedAt, &it.AddedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return it, nil
}

// Get retrieves an item by ID.
// Returns ErrNotFound if the item does not exist.
func (s *Store) Get(id int64) (*Item, error) {
	it, err := scanItem(s.db.QueryRow(`SELECT `+itemColumns+` FROM media WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("get media %d: %w", id, mapSQLiteError(err))
	}
	return it, nil
}

// List returns items matching the filter.
func (s *Store) List(f Filter) ([]*Item, error) {
	var conditions []string
	var args []any

	if f.Type != nil {
		conditions = append(conditions, "type = ?")
		args = append(args, *f.Type)
	}
	if f.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *f.Status)
	}
	if f.Title != nil {
		conditions = append(conditions, "title = ?")
		args = append(args, *f.Title)
	}
	if f.Year != nil {
		conditions = append(conditions, "year = ?")
		args = append(args, *f.Year)
	}

	query := `SELECT ` + itemColumns + ` FROM media`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Wanted returns items whose trailer is missing or monitored, oldest first.
func (s *Store) Wanted(limit int) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM media WHERE status IN (?, ?) ORDER BY updated_at`
	args := []any{StatusMissing, StatusMonitored}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list wanted media: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// SetStatus transitions an item's trailer status, guarded by the lifecycle
// state machine. Also records trailer presence and the download timestamp.
func (s *Store) SetStatus(id int64, status Status, trailerExists bool, downloadedAt *time.Time) error {
	it, err := s.Get(id)
	if err != nil {
		return err
	}
	if it.Status != status && !it.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, it.Status, status)
	}

	_, err = s.db.Exec(`
		UPDATE media SET status = ?, trailer_exists = ?, downloaded_at = ?, updated_at = ?
		WHERE id = ?`,
		status, trailerExists, downloadedAt, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("set status: %w", mapSQLiteError(err))
	}
	return nil
}

// SetYouTubeID records the trailer source chosen for an item so later
// sessions can reuse it without a fresh search.
func (s *Store) SetYouTubeID(id int64, youtubeID string) error {
	res, err := s.db.Exec(`UPDATE media SET youtube_id = ?, updated_at = ? WHERE id = ?`,
		youtubeID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("set youtube id: %w", mapSQLiteError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an item from the registry.
func (s *Store) Delete(id int64) error {
	res, err := s.db.Exec(`DELETE FROM media WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete media: %w", mapSQLiteError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
