package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore persists appointments in Postgres. It is the durable
// alternative to MemoryStore for multi-instance deployments.
type PostgresStore struct {
	db db
}

// NewPostgresStore creates a store over the given connection pool.
func NewPostgresStore(db db) *PostgresStore {
	if db == nil {
		panic("booking: nil db")
	}
	return &PostgresStore{db: db}
}

// Save inserts or replaces the appointment by code.
func (s *PostgresStore) Save(ctx context.Context, a Appointment) error {
	if a.Code == "" {
		return errors.New("appointment code is required")
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO appointments (code, patient_name, phone, treatment, date, time, duration_minutes, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (code) DO UPDATE SET
			patient_name = EXCLUDED.patient_name,
			phone = EXCLUDED.phone,
			treatment = EXCLUDED.treatment,
			date = EXCLUDED.date,
			time = EXCLUDED.time,
			duration_minutes = EXCLUDED.duration_minutes,
			status = EXCLUDED.status`,
		a.Code, a.PatientName, a.Phone, a.Treatment, a.Date, a.Time,
		int(a.Duration/time.Minute), string(a.Status), a.CreatedAt)
	if err != nil {
		return fmt.Errorf("booking: save appointment %s: %w", a.Code, err)
	}
	return nil
}

const selectColumns = `code, patient_name, phone, treatment, date, time, duration_minutes, status, created_at`

func scanAppointment(row pgx.Row) (Appointment, error) {
	var a Appointment
	var minutes int
	var status string
	if err := row.Scan(&a.Code, &a.PatientName, &a.Phone, &a.Treatment,
		&a.Date, &a.Time, &minutes, &status, &a.CreatedAt); err != nil {
		return Appointment{}, err
	}
	a.Duration = time.Duration(minutes) * time.Minute
	a.Status = Status(status)
	return a, nil
}

// Get returns the appointment for the code or ErrCodeNotFound.
func (s *PostgresStore) Get(ctx context.Context, code string) (Appointment, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM appointments WHERE code = $1`, code)
	a, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Appointment{}, ErrCodeNotFound
	}
	if err != nil {
		return Appointment{}, fmt.Errorf("booking: get appointment %s: %w", code, err)
	}
	return a, nil
}

func (s *PostgresStore) queryAll(ctx context.Context, sql string, args ...any) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("booking: query appointments: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("booking: scan appointment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ByPatient returns the patient's appointments, newest start first.
func (s *PostgresStore) ByPatient(ctx context.Context, name string) ([]Appointment, error) {
	return s.queryAll(ctx,
		`SELECT `+selectColumns+` FROM appointments
		 WHERE lower(patient_name) = lower($1)
		 ORDER BY date DESC, time DESC`, name)
}

// ByPhone returns the appointments booked under the phone number, newest
// start first.
func (s *PostgresStore) ByPhone(ctx context.Context, phone string) ([]Appointment, error) {
	return s.queryAll(ctx,
		`SELECT `+selectColumns+` FROM appointments
		 WHERE phone <> '' AND phone = $1
		 ORDER BY date DESC, time DESC`, phone)
}

// ByDate returns the confirmed appointments on the day in start order.
func (s *PostgresStore) ByDate(ctx context.Context, date string) ([]Appointment, error) {
	return s.queryAll(ctx,
		`SELECT `+selectColumns+` FROM appointments
		 WHERE date = $1 AND status = 'confirmed'
		 ORDER BY time ASC`, date)
}
