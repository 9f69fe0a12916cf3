package directory

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"mandi/pkg/roles"
)

type pgDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres reads the operational mirror of the platform's document store.
type Postgres struct {
	DB pgDB
}

func (p *Postgres) Account(ctx context.Context, uid string) (Account, error) {
	row := p.DB.QueryRow(ctx, `
		SELECT role, COALESCE(org_id, '')
		FROM user_accounts WHERE uid = $1
	`, uid)
	var rawRole, orgID string
	if err := row.Scan(&rawRole, &orgID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{UID: uid, Role: roles.Unassigned}, nil
		}
		return Account{}, err
	}
	return Account{UID: uid, Role: roles.Parse(rawRole), OrgID: strings.TrimSpace(orgID)}, nil
}

func (p *Postgres) VerificationStatus(ctx context.Context, orgID string) (string, error) {
	row := p.DB.QueryRow(ctx, `
		SELECT COALESCE(verification_status, '')
		FROM organizations WHERE org_id = $1
	`, orgID)
	var status string
	if err := row.Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return status, nil
}
