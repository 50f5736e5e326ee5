// Package dbtest opens throwaway SQLite databases mirroring the Postgres schema.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const ServicePoints = `
CREATE TABLE IF NOT EXISTS service_points (
  id TEXT PRIMARY KEY,
  label TEXT NOT NULL,
  center TEXT NOT NULL,
  radius_km REAL NOT NULL,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`

const OriginCenter = `
CREATE TABLE IF NOT EXISTS origin_center (
  id INTEGER PRIMARY KEY,
  label TEXT NOT NULL,
  location TEXT NOT NULL,
  active INTEGER NOT NULL DEFAULT 1,
  updated_by TEXT,
  updated_at DATETIME
);`

const DistanceSlots = `
CREATE TABLE IF NOT EXISTS distance_slots (
  id TEXT PRIMARY KEY,
  kind TEXT NOT NULL,
  position INTEGER NOT NULL DEFAULT 0,
  min_distance_km REAL NOT NULL,
  max_distance_km REAL NOT NULL,
  value TEXT NOT NULL
);`

const PostalEligibilities = `
CREATE TABLE IF NOT EXISTS postal_eligibilities (
  code TEXT PRIMARY KEY,
  area_label TEXT NOT NULL,
  active INTEGER NOT NULL DEFAULT 1
);`

const CatalogItems = `
CREATE TABLE IF NOT EXISTS catalog_items (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  unit_price TEXT NOT NULL,
  active INTEGER NOT NULL DEFAULT 1,
  updated_at DATETIME
);`

const Orders = `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  address_line TEXT NOT NULL,
  building TEXT,
  unit TEXT,
  postal_code TEXT NOT NULL,
  destination TEXT,
  distance_km REAL NOT NULL,
  delivery_fee TEXT NOT NULL,
  estimated_minutes INTEGER NOT NULL,
  currency TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  payment_status TEXT NOT NULL DEFAULT 'pending',
  fulfillment_status TEXT NOT NULL DEFAULT 'pending',
  gateway_intent_id TEXT,
  gateway_payment_id TEXT,
  gateway_signature TEXT,
  intent_created_at DATETIME,
  handled_by TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`

const OrderLineItems = `
CREATE TABLE IF NOT EXISTS order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  catalog_item_id TEXT NOT NULL,
  name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price TEXT NOT NULL,
  line_total TEXT NOT NULL,
  created_at DATETIME
);`

const Notifications = `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  audience TEXT NOT NULL,
  recipient_id TEXT,
  order_id TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  read_at DATETIME,
  created_at DATETIME
);`

const OutboxEvents = `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload BLOB NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`

const OutboxDLQ = `
CREATE TABLE IF NOT EXISTS outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json BLOB NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);`

// All lists every table in dependency order.
var All = []string{
	ServicePoints,
	OriginCenter,
	DistanceSlots,
	PostalEligibilities,
	CatalogItems,
	Orders,
	OrderLineItems,
	Notifications,
	OutboxEvents,
	OutboxDLQ,
}

// Open returns an isolated in-memory database with the given tables created.
// Without ddl every table is created.
func Open(t *testing.T, ddl ...string) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	if len(ddl) == 0 {
		ddl = All
	}
	for _, stmt := range ddl {
		require.NoError(t, conn.Exec(stmt).Error)
	}

	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}
