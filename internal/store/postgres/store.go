package postgres

import (
	"context"
	"errors"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	conf "github.com/webitel/bot-report-exporter/config"
	dberr "github.com/webitel/bot-report-exporter/internal/errors"
	"github.com/webitel/bot-report-exporter/internal/store"
	otelpgx "github.com/webitel/webitel-go-kit/infra/otel/instrumentation/pgx"
)

const schema = "bot_report"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store is the struct implementing the Store interface.
type Store struct {
	historyStore store.HistoryStore
	uploadStore  store.UploadStore
	config       *conf.DatabaseConfig
	conn         *pgxpool.Pool
}

// New creates a new Store instance.
func New(config *conf.DatabaseConfig) *Store {
	return &Store{config: config}
}

func (s *Store) History() store.HistoryStore {
	if s.historyStore == nil {
		s.historyStore = &History{storage: s}
	}
	return s.historyStore
}

func (s *Store) Uploads() store.UploadStore {
	if s.uploadStore == nil {
		s.uploadStore = &Uploads{storage: s}
	}
	return s.uploadStore
}

// Database returns the database connection or a custom error if it is not opened.
func (s *Store) Database() (*pgxpool.Pool, error) {
	if s.conn == nil {
		return nil, dberr.New("database connection is not opened")
	}
	return s.conn, nil
}

// Open establishes a connection to the database and returns a custom error if it fails.
func (s *Store) Open() error {
	config, err := pgxpool.ParseConfig(s.config.Url)
	if err != nil {
		return dberr.NewDBInternalError("open", err)
	}

	// Attach the OpenTelemetry tracer for pgx
	config.ConnConfig.Tracer = otelpgx.NewTracer(otelpgx.WithTrimSQLInSpanName())

	conn, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return dberr.NewDBInternalError("open", err)
	}
	s.conn = conn
	slog.Debug("report_exporter.store.connection_opened", slog.String("message", "postgres: connection opened"))
	return nil
}

// Close closes the database connection and returns a custom error if it fails.
func (s *Store) Close() error {
	if s.conn != nil {
		s.conn.Close()
		slog.Debug("report_exporter.store.connection_closed", slog.String("message", "postgres: connection closed"))
		s.conn = nil
	}
	return nil
}

// mapPgError classifies constraint violations; anything else is internal.
func mapPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return &dberr.DBUniqueViolationError{
				DBError: *dberr.NewDBError(op, pgErr.Message),
				Column:  pgErr.ConstraintName,
			}
		case "23503": // foreign_key_violation
			return &dberr.DBForeignKeyViolationError{
				DBError:         *dberr.NewDBError(op, pgErr.Message),
				ForeignKeyTable: pgErr.TableName,
			}
		}
	}
	return dberr.NewDBInternalError(op, err)
}
