package db

import (
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// EnsureSchema creates schema if it does not exist yet.
func EnsureSchema(d *gorm.DB, schema string) error {
	return d.Exec(`CREATE SCHEMA IF NOT EXISTS ` + pq.QuoteIdentifier(schema)).Error
}

// EnsurePostGIS installs the postgis extension when the role is allowed to.
func EnsurePostGIS(d *gorm.DB) error {
	return d.Exec(`CREATE EXTENSION IF NOT EXISTS postgis`).Error
}
