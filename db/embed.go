// Package db embeds the PostgreSQL schema applied at startup.
package db

import _ "embed"

// Schema creates the users, products, cart_items, orders and order_items
// tables. Every statement is idempotent.
//
//go:embed migrations/001_schema.sql
var Schema string
