// Package pg manages the PostgreSQL connection pool and schema migrations
// for services built on this toolkit.
package pg
