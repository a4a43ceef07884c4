// Package db provides the embedded schema for the PostgreSQL state store.
package db

import _ "embed"

// Schema contains the DDL for the storefront_state table.
//
//go:embed migrations/001_schema.sql
var Schema string
