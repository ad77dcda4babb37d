package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/didi/gendry/builder"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/formpilot/internal/form"
	"github.com/xxxsen/formpilot/internal/model"
	"github.com/xxxsen/formpilot/internal/pkg/dbutil"
	appErr "github.com/xxxsen/formpilot/internal/pkg/errors"
)

const (
	tableForms       = "forms"
	tableVectorForms = "vector_forms"
)

var recordColumns = []string{"id", "object_id", "domain", "form", "created_at"}

// PostgresStore keeps raw forms in "forms" and chunk vectors in the pgvector
// table "vector_forms". The form column is json so key order and string
// content survive unchanged.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Commit(ctx context.Context, batch *Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := s.apply(ctx, tx, batch); err != nil {
		_ = tx.Rollback()
		if dbutil.IsConflict(err) {
			return fmt.Errorf("%w: %w", appErr.ErrConflict, err)
		}
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) apply(ctx context.Context, tx *sql.Tx, batch *Batch) error {
	var ts int64
	if err := tx.QueryRowContext(ctx, `SELECT (EXTRACT(EPOCH FROM now()) * 1000)::BIGINT`).Scan(&ts); err != nil {
		return fmt.Errorf("read commit time: %w", err)
	}
	if len(batch.vectorDeletes) > 0 {
		if err := execDelete(ctx, tx, tableVectorForms, batch.vectorDeletes); err != nil {
			return err
		}
	}
	if len(batch.recordDeletes) > 0 {
		if err := execDelete(ctx, tx, tableForms, batch.recordDeletes); err != nil {
			return err
		}
	}
	if len(batch.vectors) > 0 {
		rows := make([]map[string]interface{}, 0, len(batch.vectors))
		for _, entry := range batch.vectors {
			rows = append(rows, map[string]interface{}{
				"id":         entry.ID,
				"object_id":  entry.ObjectID,
				"domain":     entry.Domain,
				"embedding":  pgvector.NewVector(entry.Embedding),
				"created_at": ts,
			})
		}
		if err := execInsert(ctx, tx, tableVectorForms, rows); err != nil {
			return err
		}
	}
	if len(batch.records) > 0 {
		rows := make([]map[string]interface{}, 0, len(batch.records))
		for _, rec := range batch.records {
			raw, err := form.Encode(rec.Form)
			if err != nil {
				return fmt.Errorf("encode form %s: %w", rec.ObjectID, err)
			}
			rows = append(rows, map[string]interface{}{
				"id":         rec.ID,
				"object_id":  rec.ObjectID,
				"domain":     rec.Domain,
				"form":       string(raw),
				"created_at": ts,
			})
		}
		if err := execInsert(ctx, tx, tableForms, rows); err != nil {
			return err
		}
	}
	return nil
}

func execInsert(ctx context.Context, tx *sql.Tx, table string, rows []map[string]interface{}) error {
	sqlStr, args, err := builder.BuildInsert(table, rows)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

func execDelete(ctx context.Context, tx *sql.Tx, table string, ids []string) error {
	where := map[string]interface{}{
		"id in": toInterfaces(ids),
	}
	sqlStr, args, err := builder.BuildDelete(table, where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return nil
}

func (s *PostgresStore) FindVectorIDs(ctx context.Context, field string, value string) ([]string, error) {
	column, ok := vectorColumn(field)
	if !ok {
		return s.findVectorIDsByForm(ctx, field, value)
	}
	where := map[string]interface{}{
		column:     value,
		"_orderby": "id asc",
	}
	return s.selectIDs(ctx, tableVectorForms, where)
}

// findVectorIDsByForm selects the vectors owned by raw entries whose form
// field at the path equals value.
func (s *PostgresStore) findVectorIDsByForm(ctx context.Context, field string, value string) ([]string, error) {
	path, ok := formPath(field)
	if !ok {
		return nil, nil
	}
	const query = `SELECT id FROM vector_forms WHERE object_id IN (SELECT object_id FROM forms WHERE form #>> $1 = $2) ORDER BY id ASC`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(path), value)
	if err != nil {
		return nil, err
	}
	return scanIDs(rows)
}

func (s *PostgresStore) FindRecordIDs(ctx context.Context, field string, value string) ([]string, error) {
	if column, ok := recordColumn(field); ok {
		where := map[string]interface{}{
			column:     value,
			"_orderby": "id asc",
		}
		return s.selectIDs(ctx, tableForms, where)
	}
	path, ok := formPath(field)
	if !ok {
		return nil, nil
	}
	const query = `SELECT id FROM forms WHERE form #>> $1 = $2 ORDER BY id ASC`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(path), value)
	if err != nil {
		return nil, err
	}
	return scanIDs(rows)
}

func (s *PostgresStore) selectIDs(ctx context.Context, table string, where map[string]interface{}) ([]string, error) {
	sqlStr, args, err := builder.BuildSelect(table, where, []string{"id"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	return scanIDs(rows)
}

func (s *PostgresStore) ListRecordsIn(ctx context.Context, field string, values []string) ([]model.RawRecord, error) {
	if len(values) > MaxInSetSize {
		return nil, fmt.Errorf("%d values: %w", len(values), appErr.ErrInSetTooLarge)
	}
	if len(values) == 0 {
		return nil, nil
	}
	column, ok := recordColumn(field)
	if !ok {
		return nil, fmt.Errorf("unsupported in-set field %q: %w", field, appErr.ErrInvalid)
	}
	where := map[string]interface{}{
		column + " in": toInterfaces(values),
	}
	return s.selectRecords(ctx, where)
}

func (s *PostgresStore) ListRecordsByDomain(ctx context.Context, domain string) ([]model.RawRecord, error) {
	where := map[string]interface{}{
		"domain":   domain,
		"_orderby": "created_at asc, object_id asc",
	}
	return s.selectRecords(ctx, where)
}

func (s *PostgresStore) selectRecords(ctx context.Context, where map[string]interface{}) ([]model.RawRecord, error) {
	sqlStr, args, err := builder.BuildSelect(tableForms, where, recordColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RawRecord
	for rows.Next() {
		var rec model.RawRecord
		var raw []byte
		if err := rows.Scan(&rec.ID, &rec.ObjectID, &rec.Domain, &raw, &rec.Timestamp); err != nil {
			return nil, err
		}
		parsed, err := form.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("decode form %s: %w", rec.ObjectID, err)
		}
		rec.Form = parsed
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SearchVectors(ctx context.Context, embedding []float32, filter Filter, limit int) ([]model.VectorMatch, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `
		SELECT object_id, created_at, embedding <=> $1 AS distance
		FROM vector_forms
		WHERE ($2 = '' OR domain = $2)
		ORDER BY embedding <=> $1
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, pgvector.NewVector(embedding), filter.Domain, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.VectorMatch
	for rows.Next() {
		var m model.VectorMatch
		if err := rows.Scan(&m.ObjectID, &m.TimestampMs, &m.Distance); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func vectorColumn(field string) (string, bool) {
	switch field {
	case FieldObjectID:
		return "object_id", true
	case FieldDomain:
		return "domain", true
	}
	return "", false
}

func recordColumn(field string) (string, bool) {
	return vectorColumn(field)
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}
