// Package pgstore persists user documents and audit entries in PostgreSQL
// through database/sql and lib/pq.
//
// Each user row carries the full JSON document plus a version column. Update
// reads the row, applies the callback, and writes back with
// "WHERE version = $old"; zero affected rows means another writer won and the
// update is retried.
package pgstore
