package proc

import (
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers pgx driver
	_ "modernc.org/sqlite"            // registers sqlite driver
)

// Dialect describes the differences between supported sql drivers
type Dialect struct {
	Driver   string
	schema   []string
	numbered bool
}

var sqliteDialect = Dialect{
	Driver: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS podcast (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS episode (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			podcast_id INTEGER NOT NULL REFERENCES podcast(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			description TEXT,
			episode_number INTEGER NOT NULL,
			download_url TEXT,
			filename TEXT,
			mime_type TEXT,
			file_size INTEGER,
			track_length INTEGER,
			bit_rate INTEGER,
			sample_rate INTEGER,
			channels INTEGER,
			is_variable_bit_rate BOOLEAN,
			is_lossless BOOLEAN,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_episode_podcast ON episode(podcast_id)`,
		`CREATE TABLE IF NOT EXISTS episode_downloaded (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT NOT NULL,
			episode_id INTEGER NOT NULL REFERENCES episode(id) ON DELETE CASCADE,
			podcast_id INTEGER NOT NULL REFERENCES podcast(id) ON DELETE CASCADE,
			occurred_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_episode_downloaded_episode ON episode_downloaded(episode_id)`,
	},
}

var pgxDialect = Dialect{
	Driver:   "pgx",
	numbered: true,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS podcast (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS episode (
			id BIGSERIAL PRIMARY KEY,
			podcast_id BIGINT NOT NULL REFERENCES podcast(id) ON DELETE CASCADE,
			title VARCHAR(255) NOT NULL,
			description TEXT,
			episode_number BIGINT NOT NULL,
			download_url TEXT,
			filename VARCHAR(255),
			mime_type VARCHAR(255),
			file_size BIGINT,
			track_length BIGINT,
			bit_rate BIGINT,
			sample_rate BIGINT,
			channels BIGINT,
			is_variable_bit_rate BOOLEAN,
			is_lossless BOOLEAN,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_episode_podcast ON episode(podcast_id)`,
		`CREATE TABLE IF NOT EXISTS episode_downloaded (
			id BIGSERIAL PRIMARY KEY,
			event_id VARCHAR(255) NOT NULL,
			episode_id BIGINT NOT NULL REFERENCES episode(id) ON DELETE CASCADE,
			podcast_id BIGINT NOT NULL REFERENCES podcast(id) ON DELETE CASCADE,
			occurred_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_episode_downloaded_episode ON episode_downloaded(episode_id)`,
	},
}

// DialectFor returns dialect by driver name, "sqlite" or "pgx"
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "", "sqlite":
		return sqliteDialect, nil
	case "pgx", "postgres":
		return pgxDialect, nil
	}
	return Dialect{}, fmt.Errorf("unsupported db driver %q", driver)
}

// rebind converts ? placeholders to $n for drivers with numbered parameters
func (d Dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// dsn adds the connection options the store relies on, each one unless already set
func (d Dialect) dsn(dsn string) string {
	if d.Driver != "sqlite" {
		return dsn
	}
	for _, pragma := range []string{"foreign_keys(1)", "busy_timeout(5000)"} {
		name, _, _ := strings.Cut(pragma, "(")
		if strings.Contains(dsn, name) {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=" + pragma
	}
	return dsn
}

// dbFile returns the database file of a sqlite dsn, empty for other drivers and in-memory databases
func (d Dialect) dbFile(dsn string) string {
	if d.Driver != "sqlite" {
		return ""
	}
	path, query, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	if path == "" || path == ":memory:" || strings.Contains(query, "mode=memory") {
		return ""
	}
	return path
}
