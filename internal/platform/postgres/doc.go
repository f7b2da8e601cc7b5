// Package postgres implements the store interfaces over PostgreSQL,
// using the pgx stdlib driver and hand-written SQL. Task state
// transitions are conditional UPDATEs on the state column so racing
// workers and the maintenance scheduler resolve through the database.
package postgres
