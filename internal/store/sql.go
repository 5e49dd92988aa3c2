package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/andygrunwald/fuel-price-scraper/internal/models"
)

// Dialect selects the SQL database behind a SQLStore.
type Dialect string

const (
	// DialectSQLite uses modernc.org/sqlite.
	DialectSQLite Dialect = "sqlite"
	// DialectPostgres uses pgx through database/sql.
	DialectPostgres Dialect = "postgres"
)

var (
	//go:embed schema_sqlite.sql
	sqliteSchema string
	//go:embed schema_postgres.sql
	postgresSchema string
)

// SQLStore keeps the history of one source in the fuel_prices table.
//
// Rows are only ever inserted. Persist inserts the added records in a single
// transaction, so a failed write leaves the table as it was.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	source  string
	base    zerolog.Logger
	logger  zerolog.Logger
}

// OpenSQL connects to the database and creates the schema if needed.
func OpenSQL(ctx context.Context, dialect Dialect, dsn, source string, logger zerolog.Logger) (*SQLStore, error) {
	var (
		driver string
		schema string
	)
	switch dialect {
	case DialectSQLite:
		driver, schema = "sqlite", sqliteSchema
	case DialectPostgres:
		driver, schema = "pgx", postgresSchema
	default:
		return nil, fmt.Errorf("unknown SQL dialect %q", dialect)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database connection: %w", err)
	}

	if dialect == DialectSQLite {
		// A single connection keeps :memory: databases shared and serializes writers.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return newSQLStore(db, dialect, source, logger), nil
}

func newSQLStore(db *sql.DB, dialect Dialect, source string, logger zerolog.Logger) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: dialect,
		source:  source,
		base:    logger,
		logger:  logger.With().Str("component", "store").Str("dialect", string(dialect)).Str("source", source).Logger(),
	}
}

// ForSource returns a store for another source sharing the same connection.
// Closing either store closes the connection.
func (s *SQLStore) ForSource(source string) *SQLStore {
	return newSQLStore(s.db, s.dialect, source, s.base)
}

// Load reads the rows of the store's source in insertion order.
func (s *SQLStore) Load(ctx context.Context) (*Snapshot, error) {
	query := fmt.Sprintf(`
		SELECT station, price, observed_date, fuel, scrape_date, source
		FROM fuel_prices
		WHERE source = %s
		ORDER BY id
	`, s.placeholder(1))

	rows, err := s.db.QueryContext(ctx, query, s.source)
	if err != nil {
		return nil, fmt.Errorf("querying prices: %w", err)
	}
	defer rows.Close()

	snapshot := NewSnapshot()
	for rows.Next() {
		var (
			station, observed, fuel, scraped, source string
			price                                    float64
		)
		if err := rows.Scan(&station, &price, &observed, &fuel, &scraped, &source); err != nil {
			return nil, fmt.Errorf("scanning price: %w", err)
		}
		fields := []string{station, strconv.FormatFloat(price, 'f', -1, 64), observed, fuel, scraped, source}
		record, ok := ParseRow(snapshot.Header, fields)
		snapshot.Rows = append(snapshot.Rows, Row{Fields: fields, Record: record, OK: ok})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating prices: %w", err)
	}

	s.logger.Debug().Int("rows", snapshot.Len()).Msg("loaded store")
	return snapshot, nil
}

// Persist inserts added. Existing rows are never updated.
func (s *SQLStore) Persist(ctx context.Context, _ *Snapshot, added []models.PriceRecord) error {
	if len(added) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO fuel_prices (source, station, station_key, price, price_key, observed_date, fuel, fuel_key, scrape_date)
		VALUES (%s)
		ON CONFLICT DO NOTHING
	`, s.placeholders(9))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range added {
		_, err := stmt.ExecContext(ctx,
			s.source,
			r.Station,
			strings.ToLower(strings.TrimSpace(r.Station)),
			r.Price,
			fmt.Sprintf("%.3f", r.Price),
			r.ObservedDate.Format(models.DateLayout),
			string(r.FuelCategory),
			strings.ToLower(strings.TrimSpace(string(r.FuelCategory))),
			r.ScrapeDate.Format(models.DateLayout),
		)
		if err != nil {
			return fmt.Errorf("inserting price: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing prices: %w", err)
	}

	s.logger.Debug().Int("added", len(added)).Msg("persisted store")
	return nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Backend returns the dialect name.
func (s *SQLStore) Backend() string {
	return string(s.dialect)
}

// Ping checks if the database connection is alive.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) placeholder(n int) string {
	if s.dialect == DialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func (s *SQLStore) placeholders(count int) string {
	p := make([]string, count)
	for i := range p {
		p[i] = s.placeholder(i + 1)
	}
	return strings.Join(p, ", ")
}
