// Package audit persists gate decisions for back-office review. The caller
// uid is stored as a salted hash; the log explains outcomes, it is not a
// directory.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type auditDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Writer struct {
	DB       auditDB
	HashSalt []byte
}

type Record struct {
	DecisionID string
	UIDHash    string
	Region     string
	Role       string
	Decision   string
	Reason     string
	Route      string
	CreatedAt  time.Time
}

// HashUID derives the stored subject identifier.
func (w *Writer) HashUID(uid string) string {
	sum := sha256.Sum256(append(append([]byte{}, w.HashSalt...), uid...))
	return hex.EncodeToString(sum[:])
}

func (w *Writer) Append(ctx context.Context, rec Record) error {
	_, err := w.DB.Exec(ctx, `
		INSERT INTO gate_decisions
		(decision_id, uid_hash, region, role, decision, reason, route, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, rec.DecisionID, rec.UIDHash, rec.Region, rec.Role, rec.Decision, rec.Reason, rec.Route, rec.CreatedAt)
	return err
}

func (w *Writer) Get(ctx context.Context, decisionID string) (Record, error) {
	var rec Record
	row := w.DB.QueryRow(ctx, `
		SELECT decision_id, uid_hash, region, role, decision, reason, route, created_at
		FROM gate_decisions WHERE decision_id = $1
	`, decisionID)
	if err := row.Scan(&rec.DecisionID, &rec.UIDHash, &rec.Region, &rec.Role, &rec.Decision, &rec.Reason, &rec.Route, &rec.CreatedAt); err != nil {
		return rec, err
	}
	return rec, nil
}
