package database

import "github.com/jmoiron/sqlx"

// Queryer is the query surface shared by *sqlx.DB and *sqlx.Tx. Repository
// methods take it explicitly so the same code runs inside and outside a
// transaction; callers pass database.DB or the transaction they hold.
type Queryer interface {
	sqlx.ExtContext
}

// forUpdate returns the row-lock suffix for the active driver. SQLite has no
// FOR UPDATE; its single writer connection serializes mutations instead.
func forUpdate(q Queryer) string {
	if q.DriverName() == "postgres" {
		return " FOR UPDATE"
	}
	return ""
}
