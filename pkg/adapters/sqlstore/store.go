// Package sqlstore persists consultations in SQLite or PostgreSQL.
//
// Consultations live in one row each; their answer history lives in
// consultation_answers ordered by ordinal. Timestamps are stored as Unix
// nanoseconds so both dialects round-trip them exactly.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/aretw0/anamnesis/pkg/domain"
	"github.com/aretw0/anamnesis/pkg/ports"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store implements ports.SessionStore over database/sql through sqlx.
type Store struct {
	db *sqlx.DB
}

// Open connects to the database, applies migrations and returns a ready store.
// For SQLite, dsn is a file path; for PostgreSQL it is a connection URL.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch driver {
	case DriverSQLite:
		db, err = sqlx.ConnectContext(ctx, DriverSQLite, sqliteDSN(dsn))
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		// A single writer connection avoids SQLITE_BUSY between our own goroutines.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(time.Hour)
	case DriverPostgres:
		db, err = sqlx.ConnectContext(ctx, DriverPostgres, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db), nil
}

// New wraps an already migrated database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
}

// DB exposes the underlying handle.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type consultationRow struct {
	ID                 string        `db:"id"`
	PatientID          string        `db:"patient_id"`
	DoctorID           string        `db:"doctor_id"`
	CurrentNodeID      string        `db:"current_node_id"`
	Status             string        `db:"status"`
	DiagnosisCandidate string        `db:"diagnosis_candidate"`
	FinalDiagnosis     string        `db:"final_diagnosis"`
	DoctorNotes        string        `db:"doctor_notes"`
	CreatedAt          int64         `db:"created_at"`
	UpdatedAt          int64         `db:"updated_at"`
	CompletedAt        sql.NullInt64 `db:"completed_at"`
	Version            int64         `db:"version"`
}

type answerRow struct {
	ConsultationID string `db:"consultation_id"`
	Ordinal        int    `db:"ordinal"`
	NodeID         string `db:"node_id"`
	Question       string `db:"question"`
	Answer         string `db:"answer"`
	AnsweredAt     int64  `db:"answered_at"`
}

const consultationColumns = `id, patient_id, doctor_id, current_node_id, status, diagnosis_candidate,
	final_diagnosis, doctor_notes, created_at, updated_at, completed_at, version`

func toRow(c *domain.Consultation, version int64) consultationRow {
	row := consultationRow{
		ID:                 c.ID,
		PatientID:          c.PatientID,
		DoctorID:           c.DoctorID,
		CurrentNodeID:      c.CurrentNodeID,
		Status:             string(c.Status),
		DiagnosisCandidate: c.DiagnosisCandidate,
		FinalDiagnosis:     c.FinalDiagnosis,
		DoctorNotes:        c.DoctorNotes,
		CreatedAt:          c.CreatedAt.UnixNano(),
		UpdatedAt:          c.UpdatedAt.UnixNano(),
		Version:            version,
	}
	if c.CompletedAt != nil {
		row.CompletedAt = sql.NullInt64{Int64: c.CompletedAt.UnixNano(), Valid: true}
	}
	return row
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func (r consultationRow) toDomain(answers []answerRow) *domain.Consultation {
	c := &domain.Consultation{
		ID:                 r.ID,
		PatientID:          r.PatientID,
		DoctorID:           r.DoctorID,
		CurrentNodeID:      r.CurrentNodeID,
		Status:             domain.Status(r.Status),
		DiagnosisCandidate: r.DiagnosisCandidate,
		FinalDiagnosis:     r.FinalDiagnosis,
		DoctorNotes:        r.DoctorNotes,
		CreatedAt:          fromNanos(r.CreatedAt),
		UpdatedAt:          fromNanos(r.UpdatedAt),
		Version:            r.Version,
		History:            make([]domain.HistoryEntry, 0, len(answers)),
	}
	if r.CompletedAt.Valid {
		t := fromNanos(r.CompletedAt.Int64)
		c.CompletedAt = &t
	}
	for _, a := range answers {
		c.History = append(c.History, domain.HistoryEntry{
			Ordinal:    a.Ordinal,
			NodeID:     a.NodeID,
			Question:   a.Question,
			Answer:     domain.Answer(a.Answer),
			AnsweredAt: fromNanos(a.AnsweredAt),
		})
	}
	return c
}

// Save writes the consultation and replaces its answer rows in one transaction.
// The version check is part of the INSERT/UPDATE statement itself.
func (s *Store) Save(ctx context.Context, c *domain.Consultation) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	next := c.Version + 1
	row := toRow(c, next)

	var res sql.Result
	if c.Version == 0 {
		res, err = tx.NamedExecContext(ctx, `INSERT INTO consultations (`+consultationColumns+`)
			VALUES (:id, :patient_id, :doctor_id, :current_node_id, :status, :diagnosis_candidate,
				:final_diagnosis, :doctor_notes, :created_at, :updated_at, :completed_at, :version)
			ON CONFLICT (id) DO NOTHING`, row)
	} else {
		res, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE consultations SET
				current_node_id = ?, status = ?, diagnosis_candidate = ?, final_diagnosis = ?,
				doctor_notes = ?, updated_at = ?, completed_at = ?, version = ?
			WHERE id = ? AND version = ?`),
			row.CurrentNodeID, row.Status, row.DiagnosisCandidate, row.FinalDiagnosis,
			row.DoctorNotes, row.UpdatedAt, row.CompletedAt, row.Version,
			row.ID, c.Version)
	}
	if err != nil {
		return fmt.Errorf("write consultation %s: %w", c.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write consultation %s: %w", c.ID, err)
	}
	if affected != 1 {
		return domain.ErrVersionConflict
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM consultation_answers WHERE consultation_id = ?`), c.ID); err != nil {
		return fmt.Errorf("clear answers %s: %w", c.ID, err)
	}
	for _, h := range c.History {
		_, err := tx.NamedExecContext(ctx, `INSERT INTO consultation_answers
			(consultation_id, ordinal, node_id, question, answer, answered_at)
			VALUES (:consultation_id, :ordinal, :node_id, :question, :answer, :answered_at)`,
			answerRow{
				ConsultationID: c.ID,
				Ordinal:        h.Ordinal,
				NodeID:         h.NodeID,
				Question:       h.Question,
				Answer:         string(h.Answer),
				AnsweredAt:     h.AnsweredAt.UnixNano(),
			})
		if err != nil {
			return fmt.Errorf("write answer %d of %s: %w", h.Ordinal, c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit consultation %s: %w", c.ID, err)
	}
	c.Version = next
	return nil
}

// Load retrieves a consultation and its history.
func (s *Store) Load(ctx context.Context, id string) (*domain.Consultation, error) {
	var row consultationRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+consultationColumns+` FROM consultations WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("read consultation %s: %w", id, err)
	}

	answers, err := s.answers(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	return row.toDomain(answers[id]), nil
}

func (s *Store) answers(ctx context.Context, ids []string) (map[string][]answerRow, error) {
	out := make(map[string][]answerRow, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`SELECT consultation_id, ordinal, node_id, question, answer, answered_at
		FROM consultation_answers WHERE consultation_id IN (?) ORDER BY consultation_id, ordinal`, ids)
	if err != nil {
		return nil, fmt.Errorf("build answers query: %w", err)
	}
	var rows []answerRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}
	for _, r := range rows {
		out[r.ConsultationID] = append(out[r.ConsultationID], r)
	}
	return out, nil
}

// List filters in SQL and returns consultations newest first.
func (s *Store) List(ctx context.Context, filter ports.ListFilter) ([]*domain.Consultation, error) {
	var (
		where []string
		args  []any
	)
	if filter.PatientID != "" {
		where = append(where, "patient_id = ?")
		args = append(args, filter.PatientID)
	}
	if filter.DoctorID != "" {
		where = append(where, "doctor_id = ?")
		args = append(args, filter.DoctorID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		where = append(where, "status IN (?)")
		args = append(args, statuses)
	}

	query := `SELECT ` + consultationColumns + ` FROM consultations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC"

	if len(filter.Statuses) > 0 {
		var err error
		query, args, err = sqlx.In(query, args...)
		if err != nil {
			return nil, fmt.Errorf("build list query: %w", err)
		}
	}

	var rows []consultationRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list consultations: %w", err)
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	answers, err := s.answers(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Consultation, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain(answers[r.ID]))
	}
	return out, nil
}
