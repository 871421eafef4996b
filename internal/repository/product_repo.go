package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"zepto-analytics/internal/model"
	"zepto-analytics/pkg/database"
	"zepto-analytics/pkg/logger"

	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("product-repository")

// ProductRepository reads the whole product table.
type ProductRepository interface {
	FetchAll(ctx context.Context) (model.RawTable, error)
	Table() string
}

// Connector opens a connection for a single load.
type Connector func(ctx context.Context) (*gorm.DB, error)

type productRepo struct {
	connect      Connector
	table        string
	queryTimeout time.Duration
}

// NewProductRepo builds a repository that connects, queries and disconnects on every FetchAll.
// table must already be validated as a plain identifier.
func NewProductRepo(opts database.Options, table string, queryTimeout time.Duration) ProductRepository {
	return NewProductRepoWithConnector(func(ctx context.Context) (*gorm.DB, error) {
		return database.Connect(ctx, opts)
	}, table, queryTimeout)
}

func NewProductRepoWithConnector(connect Connector, table string, queryTimeout time.Duration) ProductRepository {
	return &productRepo{connect: connect, table: table, queryTimeout: queryTimeout}
}

func (r *productRepo) Table() string { return r.table }

// query quotes the table so mixed-case names are not folded to lowercase.
func (r *productRepo) query() string {
	return `SELECT * FROM "` + strings.ReplaceAll(r.table, `"`, `""`) + `"`
}

func (r *productRepo) FetchAll(ctx context.Context) (model.RawTable, error) {
	ctx, span := tracer.Start(ctx, "repository.FetchAll",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.sql.table", r.table),
			attribute.String("db.statement", r.query()),
		),
	)
	defer span.End()

	raw, err := r.fetch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return raw, err
	}

	span.SetAttributes(
		attribute.Int("db.rows", len(raw.Rows)),
		attribute.Int("db.columns", len(raw.Columns)),
	)
	return raw, nil
}

func (r *productRepo) fetch(ctx context.Context) (model.RawTable, error) {
	var raw model.RawTable

	db, err := r.connect(ctx)
	if err != nil {
		return raw, fmt.Errorf("%w: %v", model.ErrConnection, err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.Warn(ctx).Err(err).Msg("Failed to close database connection")
		}
	}()

	qctx := ctx
	if r.queryTimeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, r.queryTimeout)
		defer cancel()
	}

	rows, err := db.WithContext(qctx).Raw(r.query()).Rows()
	if err != nil {
		return raw, classify(qctx, err)
	}
	defer rows.Close()

	raw.Columns, err = rows.Columns()
	if err != nil {
		return raw, classify(qctx, err)
	}

	for rows.Next() {
		values := make([]any, len(raw.Columns))
		dest := make([]any, len(values))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return raw, classify(qctx, err)
		}
		raw.Rows = append(raw.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return raw, classify(qctx, err)
	}

	return raw, nil
}

// classify maps a query failure onto the load error taxonomy.
// An expired deadline or a dropped link counts as the source being unreachable.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: query timed out: %v", model.ErrConnection, err)
	}
	if connectionLost(err) {
		return fmt.Errorf("%w: connection lost: %v", model.ErrConnection, err)
	}
	return fmt.Errorf("%w: %v", model.ErrQuery, err)
}

func connectionLost(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08: connection exception, 57P: server shutting down or not accepting connections
		return strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P")
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return pgconn.SafeToRetry(err) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed)
}
