// Package postgres provides the durable implementations of the
// notification, preference, template, and audit stores on pgx/v5.
//
// Channel claims are conditional UPDATE ... RETURNING statements, so
// multiple scheduler instances can sweep the same database without
// double-delivering: exactly one of them wins each channel transition.
// The schema lives in the migrations directory and is applied with
// goose via pg.Migrate.
package postgres
