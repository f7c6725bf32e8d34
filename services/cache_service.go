package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github/mosaic/backend/models"
)

// StoryCache is the local SQLite store. Stories the fetcher has already seen
// are written through here so repeated questions about the same themes don't
// have to walk the archive again, and users can save named collections of
// story ids.
type StoryCache struct {
	db *sqlx.DB
}

// cachedStory is the row shape of the stories table. Structured fields are
// stored as JSON text.
type cachedStory struct {
	StoryID     int    `db:"story_id"`
	Title       string `db:"title"`
	Description string `db:"description"`
	Keywords    string `db:"keywords"`
	Location    string `db:"location"`
	URL         string `db:"url"`
	AudioURL    string `db:"audio_url"`
	CachedAt    string `db:"cached_at"`
}

type cachedCollection struct {
	Name      string `db:"name"`
	StoryIDs  string `db:"story_ids"`
	CreatedAt string `db:"created_at"`
}

// OpenStoryCache opens (or creates) the cache database at the given path and
// applies the schema. Use ":memory:" for tests.
func OpenStoryCache(path string) (*StoryCache, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	cache := &StoryCache{db: db}
	if err := cache.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}
	return cache, nil
}

// Close closes the underlying database connection.
func (c *StoryCache) Close() error {
	return c.db.Close()
}

func (c *StoryCache) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS stories (
		story_id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		keywords TEXT NOT NULL,
		location TEXT NOT NULL,
		url TEXT NOT NULL,
		audio_url TEXT NOT NULL,
		cached_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		story_ids TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	`
	_, err := c.db.Exec(schema)
	return err
}

// SaveStories upserts fetched records. Errors are returned but callers treat
// caching as best-effort: a failed write never fails the user's request.
func (c *StoryCache) SaveStories(stories []models.StoryRecord) error {
	if len(stories) == 0 {
		return nil
	}
	tx, err := c.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, s := range stories {
		keywords, err := json.Marshal(s.Keywords)
		if err != nil {
			return fmt.Errorf("marshal keywords for story %d: %w", s.ID, err)
		}
		location, err := json.Marshal(s.Location)
		if err != nil {
			return fmt.Errorf("marshal location for story %d: %w", s.ID, err)
		}
		_, err = tx.Exec(
			`INSERT OR REPLACE INTO stories
			 (story_id, title, description, keywords, location, url, audio_url, cached_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID, s.Title, s.Description, string(keywords), string(location), s.URL, s.AudioURL, now,
		)
		if err != nil {
			return fmt.Errorf("insert story %d: %w", s.ID, err)
		}
	}
	return tx.Commit()
}

// SearchStories looks up cached stories whose keywords or description contain
// the term, optionally filtered by location, newest first.
func (c *StoryCache) SearchStories(term, location string, limit int) ([]models.StoryRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT story_id, title, description, keywords, location, url, audio_url, cached_at
	          FROM stories WHERE (keywords LIKE ? OR description LIKE ?)`
	args := []interface{}{"%" + term + "%", "%" + term + "%"}
	if location != "" {
		query += " AND location LIKE ?"
		args = append(args, "%"+location+"%")
	}
	query += " ORDER BY cached_at DESC LIMIT ?"
	args = append(args, limit)

	var rows []cachedStory
	if err := c.db.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("search cached stories: %w", err)
	}

	records := make([]models.StoryRecord, 0, len(rows))
	for _, row := range rows {
		rec := models.StoryRecord{
			ID:          row.StoryID,
			Title:       row.Title,
			Description: row.Description,
			URL:         row.URL,
			AudioURL:    row.AudioURL,
		}
		if err := json.Unmarshal([]byte(row.Keywords), &rec.Keywords); err != nil {
			log.Printf("CACHE WARN: bad keywords JSON for story %d: %v", row.StoryID, err)
			rec.Keywords = []string{}
		}
		if err := json.Unmarshal([]byte(row.Location), &rec.Location); err != nil {
			log.Printf("CACHE WARN: bad location JSON for story %d: %v", row.StoryID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// SaveCollection stores (or replaces) a named list of story ids.
func (c *StoryCache) SaveCollection(name string, storyIDs []int) error {
	ids, err := json.Marshal(storyIDs)
	if err != nil {
		return fmt.Errorf("marshal story ids: %w", err)
	}
	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO collections (name, story_ids, created_at) VALUES (?, ?, ?)`,
		name, string(ids), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save collection %q: %w", name, err)
	}
	return nil
}

// ListCollections returns all saved collections, newest first.
func (c *StoryCache) ListCollections() ([]models.Collection, error) {
	var rows []cachedCollection
	err := c.db.Select(&rows, `SELECT name, story_ids, created_at FROM collections ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	collections := make([]models.Collection, 0, len(rows))
	for _, row := range rows {
		col := models.Collection{Name: row.Name, CreatedAt: row.CreatedAt}
		if err := json.Unmarshal([]byte(row.StoryIDs), &col.StoryIDs); err != nil {
			log.Printf("CACHE WARN: bad story_ids JSON for collection %q: %v", row.Name, err)
			col.StoryIDs = []int{}
		}
		collections = append(collections, col)
	}
	return collections, nil
}
