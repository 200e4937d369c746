package repos

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrStale means a guarded update matched no row in the expected state.
	ErrStale = errors.New("row changed concurrently")
)

// StampLayout is fixed-width so timestamps sort lexically in both dialects.
const StampLayout = "2006-01-02T15:04:05.000000Z"

// Now is swapped in tests that need deterministic timestamps.
var Now = func() time.Time { return time.Now().UTC() }

func Stamp(t time.Time) string { return t.UTC().Format(StampLayout) }

func nowStamp() string { return Stamp(Now()) }

// nullable maps "" to SQL NULL for optional foreign keys.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Driver picks the database/sql driver from the DSN scheme.
func Driver(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}

func OpenDB(dsn string) (*sqlx.DB, error) {
	driver := Driver(dsn)
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		// one connection keeps :memory: databases alive and serialises writers
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := EnsureSchema(db); err != nil {
		return nil, err
	}
	// Catalog reference data (idempotent; safe to run every start)
	if err := SeedCatalog(db, DefaultCatalog); err != nil {
		return nil, err
	}
	return db, nil
}

func EnsureSchema(db *sqlx.DB) error {
	if db.DriverName() == "sqlite" {
		if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
			return err
		}
	}
	for _, stmt := range strings.Split(schema, ";\n") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

const schema = `
-- Users (mirrored from the auth provider)
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  clerk_id TEXT NOT NULL UNIQUE,
  email TEXT NOT NULL DEFAULT '',
  name TEXT NOT NULL DEFAULT '',
  image_url TEXT,
  stripe_account_id TEXT UNIQUE,
  stripe_onboarded BOOLEAN NOT NULL DEFAULT FALSE,
  push_token TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

-- Brands & club models
CREATE TABLE IF NOT EXISTS brands(
  id TEXT PRIMARY KEY,
  slug TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  logo_url TEXT
);

CREATE TABLE IF NOT EXISTS club_models(
  id TEXT PRIMARY KEY,
  brand_id TEXT NOT NULL REFERENCES brands(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  category TEXT NOT NULL,
  year INTEGER
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_club_models_brand_name ON club_models(brand_id, LOWER(name));

-- Products (listings)
CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL,
  brand_id TEXT REFERENCES brands(id) ON DELETE SET NULL,
  model_id TEXT REFERENCES club_models(id) ON DELETE SET NULL,
  brand_name TEXT NOT NULL DEFAULT '',
  condition TEXT NOT NULL CHECK (condition IN ('NEW','LIKE_NEW','EXCELLENT','GOOD','FAIR','POOR')),
  price NUMERIC NOT NULL CHECK (price >= 0),
  images_json TEXT NOT NULL DEFAULT '[]',
  is_sold BOOLEAN NOT NULL DEFAULT FALSE,
  created_at TEXT NOT NULL,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_products_seller     ON products(seller_id);
CREATE INDEX IF NOT EXISTS idx_products_category   ON products(category);
CREATE INDEX IF NOT EXISTS idx_products_brand      ON products(brand_id);
CREATE INDEX IF NOT EXISTS idx_products_title      ON products(LOWER(title));
CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at);

-- Favorites
CREATE TABLE IF NOT EXISTS favorites(
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  created_at TEXT NOT NULL,
  PRIMARY KEY (user_id, product_id)
);

-- Addresses
CREATE TABLE IF NOT EXISTS addresses(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  line1 TEXT NOT NULL,
  line2 TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL,
  county TEXT NOT NULL DEFAULT '',
  postcode TEXT NOT NULL,
  country TEXT NOT NULL DEFAULT 'GB',
  phone TEXT NOT NULL DEFAULT '',
  is_default BOOLEAN NOT NULL DEFAULT FALSE,
  created_at TEXT NOT NULL,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_addresses_user ON addresses(user_id);

-- Orders (one product per order)
CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL REFERENCES products(id),
  buyer_id TEXT NOT NULL REFERENCES users(id),
  seller_id TEXT NOT NULL REFERENCES users(id),
  amount NUMERIC NOT NULL,
  fee NUMERIC NOT NULL DEFAULT 0,
  currency TEXT NOT NULL DEFAULT 'gbp',
  status TEXT NOT NULL DEFAULT 'PAYMENT_PENDING',
  hold_status TEXT NOT NULL DEFAULT 'NONE',
  checkout_session_id TEXT UNIQUE,
  payment_intent_id TEXT,
  transfer_id TEXT,
  ship_name TEXT NOT NULL DEFAULT '',
  ship_line1 TEXT NOT NULL DEFAULT '',
  ship_line2 TEXT NOT NULL DEFAULT '',
  ship_city TEXT NOT NULL DEFAULT '',
  ship_postcode TEXT NOT NULL DEFAULT '',
  ship_country TEXT NOT NULL DEFAULT '',
  carrier TEXT,
  tracking_number TEXT,
  shipped_at TEXT,
  delivered_at TEXT,
  released_at TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_orders_buyer  ON orders(buyer_id);
CREATE INDEX IF NOT EXISTS idx_orders_seller ON orders(seller_id);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);

-- Offers
CREATE TABLE IF NOT EXISTS offers(
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  buyer_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  seller_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  amount NUMERIC NOT NULL CHECK (amount > 0),
  counter_amount NUMERIC,
  status TEXT NOT NULL DEFAULT 'PENDING',
  expires_at TEXT NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_offers_product ON offers(product_id);
CREATE INDEX IF NOT EXISTS idx_offers_buyer   ON offers(buyer_id);

-- Messages (per order conversation)
CREATE TABLE IF NOT EXISTS messages(
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  sender_id TEXT NOT NULL REFERENCES users(id),
  body TEXT NOT NULL,
  read_at TEXT,
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_order ON messages(order_id, created_at);

-- Waitlist
CREATE TABLE IF NOT EXISTS waitlist(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  source TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_waitlist_email ON waitlist(LOWER(email));
`

// CatalogSeed is the brand/model reference data, also loadable from YAML by the admin CLI.
type CatalogSeed struct {
	Brands []BrandSeed `yaml:"brands"`
}

type BrandSeed struct {
	Slug   string      `yaml:"slug"`
	Name   string      `yaml:"name"`
	Models []ModelSeed `yaml:"models"`
}

type ModelSeed struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Year     int    `yaml:"year"`
}

var DefaultCatalog = CatalogSeed{Brands: []BrandSeed{
	{Slug: "titleist", Name: "Titleist", Models: []ModelSeed{
		{Name: "TSR2", Category: "DRIVERS", Year: 2022},
		{Name: "T100", Category: "IRONS", Year: 2023},
		{Name: "Vokey SM10", Category: "WEDGES", Year: 2024},
	}},
	{Slug: "callaway", Name: "Callaway", Models: []ModelSeed{
		{Name: "Paradym", Category: "DRIVERS", Year: 2023},
		{Name: "Apex Pro", Category: "IRONS", Year: 2023},
	}},
	{Slug: "taylormade", Name: "TaylorMade", Models: []ModelSeed{
		{Name: "Qi10", Category: "DRIVERS", Year: 2024},
		{Name: "P790", Category: "IRONS", Year: 2023},
		{Name: "Spider Tour", Category: "PUTTERS", Year: 2023},
	}},
	{Slug: "ping", Name: "PING", Models: []ModelSeed{
		{Name: "G430 Max", Category: "DRIVERS", Year: 2023},
		{Name: "Anser", Category: "PUTTERS", Year: 2021},
	}},
	{Slug: "cobra", Name: "Cobra"},
	{Slug: "mizuno", Name: "Mizuno", Models: []ModelSeed{
		{Name: "JPX923 Hot Metal", Category: "IRONS", Year: 2022},
	}},
	{Slug: "srixon", Name: "Srixon"},
	{Slug: "cleveland", Name: "Cleveland"},
	{Slug: "odyssey", Name: "Odyssey"},
	{Slug: "scotty-cameron", Name: "Scotty Cameron", Models: []ModelSeed{
		{Name: "Newport 2", Category: "PUTTERS", Year: 2023},
	}},
}}

// SeedCatalog inserts brands and models that don't already exist.
func SeedCatalog(db *sqlx.DB, seed CatalogSeed) error {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	for _, b := range seed.Brands {
		brandID := "brand-" + b.Slug
		res, err := tx.Exec(tx.Rebind(`
			INSERT INTO brands(id, slug, name) VALUES(?, ?, ?)
			ON CONFLICT(slug) DO NOTHING
		`), brandID, b.Slug, b.Name)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
		// the brand may predate this seed under another id
		if err := tx.Get(&brandID, tx.Rebind(`SELECT id FROM brands WHERE slug = ?`), b.Slug); err != nil {
			return err
		}
		for _, m := range b.Models {
			var year any
			if m.Year > 0 {
				year = m.Year
			}
			if _, err := tx.Exec(tx.Rebind(`
				INSERT INTO club_models(id, brand_id, name, category, year) VALUES(?, ?, ?, ?, ?)
				ON CONFLICT DO NOTHING
			`), "model-"+b.Slug+"-"+slugify(m.Name), brandID, m.Name, m.Category, year); err != nil {
				return err
			}
		}
	}
	if inserted > 0 {
		log.Printf("[seed] inserted %d brands", inserted)
	}
	return tx.Commit()
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
