package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Tables whose rows may be referenced from a request body.
const (
	refCustomers = "customers"
	refProfiles  = "user_profiles"
	refTeams     = "teams"
	refOrders    = "orders"
	refProducts  = "product_library"
)

// orgRef is an id that must name a row of table in the caller's organisation.
type orgRef struct {
	table string
	id    *string
}

func ref(table string, id *string) orgRef {
	return orgRef{table: table, id: id}
}

func refValue(table, id string) orgRef {
	return orgRef{table: table, id: &id}
}

// checkReferences returns ErrInvalidReference when a non-nil id does not
// exist in orgID. Foreign keys are global, so this is the only place the
// organisation boundary is enforced for referenced rows.
func checkReferences(ctx context.Context, tx pgx.Tx, orgID string, refs ...orgRef) error {
	for _, r := range refs {
		if r.id == nil {
			continue
		}
		var exists bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM `+r.table+` WHERE organisation_id = $1 AND id = $2)`,
			orgID, *r.id,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check %s reference: %w", r.table, err)
		}
		if !exists {
			return fmt.Errorf("%s %s: %w", r.table, *r.id, ErrInvalidReference)
		}
	}
	return nil
}
