package proc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/go-pkgz/lgr"

	"podcastapi/internal/app/podcastapi/podcast"
)

// Page of a list request
type Page struct {
	Number int
	Limit  int
}

// NewPage makes page with defaults 1 and 10 for missing or invalid values
func NewPage(number, limit int) Page {
	if number < 1 {
		number = 1
	}
	if limit < 1 {
		limit = 10
	}
	return Page{Number: number, Limit: limit}
}

// Offset of the first row of page
func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// SQLStore keeps podcasts, episodes and the download log in a sql database
type SQLStore struct {
	DB      *sql.DB
	Dialect Dialect
}

// OpenSQLStore opens database for driver and creates missing tables
func OpenSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}

	if file := dialect.dbFile(dsn); file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o700); err != nil {
			return nil, fmt.Errorf("make db dir: %w", err)
		}
	}

	db, err := sql.Open(dialect.Driver, dialect.dsn(dsn))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Driver, err)
	}
	if dialect.Driver == "sqlite" {
		// single writer, async download events would hit SQLITE_BUSY otherwise
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.Driver, err)
	}

	s := &SQLStore{DB: db, Dialect: dialect}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates tables and indexes
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.Dialect.schema {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close database
func (s *SQLStore) Close() error {
	return s.DB.Close()
}

const podcastColumns = `id, name, created_at, updated_at`

const episodeColumns = `id, podcast_id, title, description, episode_number, download_url,
	filename, mime_type, file_size, track_length, bit_rate, sample_rate, channels,
	is_variable_bit_rate, is_lossless, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPodcast(row scanner) (*podcast.Podcast, error) {
	p := &podcast.Podcast{}
	if err := row.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt, p.UpdatedAt = p.CreatedAt.UTC(), p.UpdatedAt.UTC()
	return p, nil
}

func scanEpisode(row scanner) (*podcast.Episode, error) {
	e := &podcast.Episode{}
	err := row.Scan(&e.ID, &e.PodcastID, &e.Title, &e.Description, &e.EpisodeNumber, &e.DownloadURL,
		&e.Filename, &e.MimeType, &e.FileSize, &e.TrackLength, &e.BitRate, &e.SampleRate, &e.Channels,
		&e.IsVariableBitRate, &e.IsLossless, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	// drivers return their own locations, responses always render utc
	e.CreatedAt, e.UpdatedAt = e.CreatedAt.UTC(), e.UpdatedAt.UTC()
	return e, nil
}

// GetPodcast by id
func (s *SQLStore) GetPodcast(ctx context.Context, id int64) (*podcast.Podcast, error) {
	row := s.DB.QueryRowContext(ctx, s.Dialect.rebind(`SELECT `+podcastColumns+` FROM podcast WHERE id = ?`), id)
	p, err := scanPodcast(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("podcast %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get podcast %d: %w", id, err)
	}
	return p, nil
}

// PodcastExists checks podcast id
func (s *SQLStore) PodcastExists(ctx context.Context, id int64) (bool, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, s.Dialect.rebind(`SELECT COUNT(*) FROM podcast WHERE id = ?`), id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check podcast %d: %w", id, err)
	}
	return n > 0, nil
}

// ListPodcasts ordered by id
func (s *SQLStore) ListPodcasts(ctx context.Context, page Page) ([]*podcast.Podcast, error) {
	rows, err := s.DB.QueryContext(ctx,
		s.Dialect.rebind(`SELECT `+podcastColumns+` FROM podcast ORDER BY id LIMIT ? OFFSET ?`),
		page.Limit, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("list podcasts: %w", err)
	}
	defer rows.Close()

	result := []*podcast.Podcast{}
	for rows.Next() {
		p, err := scanPodcast(rows)
		if err != nil {
			return nil, fmt.Errorf("scan podcast: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// SavePodcast inserts podcast without id or updates existing one in a single transaction
func (s *SQLStore) SavePodcast(ctx context.Context, p *podcast.Podcast) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if p.ID == 0 {
			row := tx.QueryRowContext(ctx,
				s.Dialect.rebind(`INSERT INTO podcast (name, created_at, updated_at) VALUES (?, ?, ?) RETURNING id`),
				p.Name, p.CreatedAt, p.UpdatedAt)
			if err := row.Scan(&p.ID); err != nil {
				return fmt.Errorf("insert podcast: %w", err)
			}
			log.Printf("[DEBUG] podcast %d created", p.ID)
			return nil
		}

		res, err := tx.ExecContext(ctx,
			s.Dialect.rebind(`UPDATE podcast SET name = ?, updated_at = ? WHERE id = ?`),
			p.Name, p.UpdatedAt, p.ID)
		if err != nil {
			return fmt.Errorf("update podcast %d: %w", p.ID, err)
		}
		return affected(res, "podcast", p.ID)
	})
}

// DeletePodcast removes podcast, its episodes and download log
func (s *SQLStore) DeletePodcast(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.Dialect.rebind(`DELETE FROM podcast WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete podcast %d: %w", id, err)
		}
		return affected(res, "podcast", id)
	})
}

// GetEpisode by id
func (s *SQLStore) GetEpisode(ctx context.Context, id int64) (*podcast.Episode, error) {
	row := s.DB.QueryRowContext(ctx, s.Dialect.rebind(`SELECT `+episodeColumns+` FROM episode WHERE id = ?`), id)
	e, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("episode %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get episode %d: %w", id, err)
	}
	return e, nil
}

// ListEpisodes ordered by id
func (s *SQLStore) ListEpisodes(ctx context.Context, page Page) ([]*podcast.Episode, error) {
	return s.queryEpisodes(ctx, `SELECT `+episodeColumns+` FROM episode ORDER BY id LIMIT ? OFFSET ?`,
		page.Limit, page.Offset())
}

// EpisodesOf returns all episodes of podcast
func (s *SQLStore) EpisodesOf(ctx context.Context, podcastID int64) ([]*podcast.Episode, error) {
	return s.queryEpisodes(ctx, `SELECT `+episodeColumns+` FROM episode WHERE podcast_id = ? ORDER BY id`, podcastID)
}

func (s *SQLStore) queryEpisodes(ctx context.Context, query string, args ...any) ([]*podcast.Episode, error) {
	rows, err := s.DB.QueryContext(ctx, s.Dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query episodes: %w", err)
	}
	defer rows.Close()

	result := []*podcast.Episode{}
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// CountEpisodes returns number of episodes of podcast
func (s *SQLStore) CountEpisodes(ctx context.Context, podcastID int64) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, s.Dialect.rebind(`SELECT COUNT(*) FROM episode WHERE podcast_id = ?`), podcastID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count episodes of podcast %d: %w", podcastID, err)
	}
	return n, nil
}

// SaveEpisode inserts episode without id or updates existing one in a single transaction
func (s *SQLStore) SaveEpisode(ctx context.Context, e *podcast.Episode) error {
	values := []any{e.PodcastID, e.Title, nullable(e.Description), e.EpisodeNumber, nullable(e.DownloadURL),
		nullable(e.Filename), nullable(e.MimeType), nullable(e.FileSize), nullable(e.TrackLength),
		nullable(e.BitRate), nullable(e.SampleRate), nullable(e.Channels),
		nullable(e.IsVariableBitRate), nullable(e.IsLossless)}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if e.ID == 0 {
			row := tx.QueryRowContext(ctx, s.Dialect.rebind(`INSERT INTO episode (podcast_id, title, description,
				episode_number, download_url, filename, mime_type, file_size, track_length, bit_rate,
				sample_rate, channels, is_variable_bit_rate, is_lossless, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
				append(values, e.CreatedAt, e.UpdatedAt)...)
			if err := row.Scan(&e.ID); err != nil {
				return fmt.Errorf("insert episode: %w", err)
			}
			log.Printf("[DEBUG] episode %d created for podcast %d", e.ID, e.PodcastID)
			return nil
		}

		res, err := tx.ExecContext(ctx, s.Dialect.rebind(`UPDATE episode SET podcast_id = ?, title = ?,
			description = ?, episode_number = ?, download_url = ?, filename = ?, mime_type = ?,
			file_size = ?, track_length = ?, bit_rate = ?, sample_rate = ?, channels = ?,
			is_variable_bit_rate = ?, is_lossless = ?, updated_at = ? WHERE id = ?`),
			append(values, e.UpdatedAt, e.ID)...)
		if err != nil {
			return fmt.Errorf("update episode %d: %w", e.ID, err)
		}
		return affected(res, "episode", e.ID)
	})
}

// DeleteEpisode removes episode and its download log
func (s *SQLStore) DeleteEpisode(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.Dialect.rebind(`DELETE FROM episode WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete episode %d: %w", id, err)
		}
		return affected(res, "episode", id)
	})
}

// SaveDownload appends an entry to the download log
func (s *SQLStore) SaveDownload(ctx context.Context, d *podcast.EpisodeDownloaded) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, s.Dialect.rebind(`INSERT INTO episode_downloaded
			(event_id, episode_id, podcast_id, occurred_at) VALUES (?, ?, ?, ?) RETURNING id`),
			d.EventID, d.EpisodeID, d.PodcastID, d.OccurredAt)
		if err := row.Scan(&d.ID); err != nil {
			return fmt.Errorf("insert download of episode %d: %w", d.EpisodeID, err)
		}
		return nil
	})
}

// DownloadsOf returns the download log of episode
func (s *SQLStore) DownloadsOf(ctx context.Context, episodeID int64) ([]*podcast.EpisodeDownloaded, error) {
	rows, err := s.DB.QueryContext(ctx, s.Dialect.rebind(`SELECT id, event_id, episode_id, podcast_id, occurred_at
		FROM episode_downloaded WHERE episode_id = ? ORDER BY id`), episodeID)
	if err != nil {
		return nil, fmt.Errorf("query downloads: %w", err)
	}
	defer rows.Close()

	result := []*podcast.EpisodeDownloaded{}
	for rows.Next() {
		d := &podcast.EpisodeDownloaded{}
		if err := rows.Scan(&d.ID, &d.EventID, &d.EpisodeID, &d.PodcastID, &d.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan download: %w", err)
		}
		d.OccurredAt = d.OccurredAt.UTC()
		result = append(result, d)
	}
	return result, rows.Err()
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			log.Printf("[WARN] rollback failed, %v", rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func affected(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return nil
}

func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}
