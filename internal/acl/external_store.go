/*
Copyright (C) 2026  rkv contributors

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package acl

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ExternalStore mirrors user records to a shared table (see Upsert) so a
// fleet of servers can converge on the same user directory, while the
// in-process AccessControl table stays authoritative for AUTH (no
// network round trip on the hot path). Either backend is a thin SQL
// mirror; neither is consulted for permission checks. The server itself
// neither opens an ExternalStore nor calls Upsert on ACL SETUSER.
type ExternalStore struct {
	db     *sql.DB
	driver string
	fold   cases.Caser
}

// driver name tokens accepted as the scheme of OpenExternalStore's dsn, e.g.
// "postgres://..." or "mysql://...".
const (
	driverPostgres = "postgres"
	driverMySQL    = "mysql"
)

// OpenExternalStore connects to dsn, inferring the driver from its
// scheme, and ensures the mirror table exists.
func OpenExternalStore(ctx context.Context, dsn string) (*ExternalStore, error) {
	driver, conn, ok := strings.Cut(dsn, "://")
	if !ok {
		return nil, fmt.Errorf("acl: external_dsn %q has no scheme", dsn)
	}
	switch driver {
	case driverPostgres, driverMySQL:
	default:
		return nil, fmt.Errorf("acl: unsupported external_dsn scheme %q", driver)
	}

	db, err := sql.Open(driver, conn)
	if err != nil {
		return nil, fmt.Errorf("acl: open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("acl: ping %s: %w", driver, err)
	}

	es := &ExternalStore{db: db, driver: driver, fold: cases.Fold()}
	if err := es.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return es, nil
}

func (es *ExternalStore) ensureSchema(ctx context.Context) error {
	stmt := `CREATE TABLE IF NOT EXISTS rkv_users (
		name          VARCHAR(255) PRIMARY KEY,
		password_hash VARCHAR(255) NOT NULL DEFAULT '',
		cmd_flag      BIGINT NOT NULL DEFAULT 0,
		enabled       BOOLEAN NOT NULL DEFAULT TRUE
	)`
	_, err := es.db.ExecContext(ctx, stmt)
	return err
}

// normalize case-folds a username with Unicode-aware rules so "Alice" and
// "alice" mirror to the same row.
func (es *ExternalStore) normalize(name string) string {
	return es.fold.String(name)
}

// Upsert mirrors ac's current state to the shared table, keyed by its
// normalized name.
func (es *ExternalStore) Upsert(ctx context.Context, ac *AccessControl, passwordHash string) error {
	snap := ac.Snapshot()
	name := es.normalize(snap.Name)

	var stmt string
	switch es.driver {
	case driverPostgres:
		stmt = `INSERT INTO rkv_users (name, password_hash, cmd_flag, enabled)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (name) DO UPDATE SET
				password_hash = EXCLUDED.password_hash,
				cmd_flag = EXCLUDED.cmd_flag,
				enabled = EXCLUDED.enabled`
	case driverMySQL:
		stmt = `INSERT INTO rkv_users (name, password_hash, cmd_flag, enabled)
			VALUES (?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				password_hash = VALUES(password_hash),
				cmd_flag = VALUES(cmd_flag),
				enabled = VALUES(enabled)`
	}
	_, err := es.db.ExecContext(ctx, stmt, name, passwordHash, uint32(snap.CmdFlag), snap.Enabled)
	return err
}

// LoadAll reads every mirrored user row, for populating the in-process
// table at startup.
func (es *ExternalStore) LoadAll(ctx context.Context) ([]Snapshot, error) {
	rows, err := es.db.QueryContext(ctx, `SELECT name, cmd_flag, enabled FROM rkv_users`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		var cmdFlag uint32
		if err := rows.Scan(&s.Name, &cmdFlag, &s.Enabled); err != nil {
			return nil, err
		}
		s.CmdFlag = Category(cmdFlag)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (es *ExternalStore) Close() error { return es.db.Close() }
