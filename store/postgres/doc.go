// Package postgres implements identity.Store on PostgreSQL through
// database/sql and the pgx driver.
//
// Every method is a single statement, so each mutation is atomic without a
// surrounding transaction. Schema changes ship as embedded goose migrations;
// call Migrate before first use.
package postgres
