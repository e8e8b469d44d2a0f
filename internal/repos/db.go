package repos

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"apotek/internal/domain"
)

// ErrNotFound is returned when a lookup or guarded update matches no row.
var ErrNotFound = errors.New("not found")

// ErrStale is returned when a guarded status update lost a race: the row
// exists but no longer carries the expected status.
var ErrStale = errors.New("row changed concurrently")

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection: SQLite serializes writers anyway, and an in-memory
	// database only exists on the connection that created it.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}
	if err := seedUsers(db); err != nil {
		return nil, err
	}
	return db, nil
}

// InTx runs fn inside a transaction; any error rolls everything back.
func InTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS categories(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  brand TEXT NOT NULL DEFAULT '',
  tags TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL REFERENCES categories(id) ON DELETE RESTRICT,
  price INTEGER NOT NULL CHECK (price >= 0),
  original_price INTEGER,
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  sold INTEGER NOT NULL DEFAULT 0,
  image_url TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  requires_prescription INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_products_category   ON products(category);
CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at);

CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  phone TEXT NOT NULL DEFAULT '',
  password_hash TEXT NOT NULL,
  email_confirmed INTEGER NOT NULL DEFAULT 0,
  phone_verified INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','inactive','banned')),
  created_at TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS user_roles(
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  role TEXT NOT NULL,
  PRIMARY KEY (user_id, role)
);

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

CREATE TABLE IF NOT EXISTS addresses(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  label TEXT NOT NULL,
  recipient_name TEXT NOT NULL,
  phone TEXT NOT NULL,
  address_line TEXT NOT NULL,
  city TEXT NOT NULL,
  province TEXT NOT NULL,
  postal_code TEXT NOT NULL,
  is_default INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_addresses_user ON addresses(user_id);

CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id),
  status TEXT NOT NULL DEFAULT 'pending',
  total_amount INTEGER NOT NULL,
  shipping_address TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  created_at TEXT NOT NULL,
  status_updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_user       ON orders(user_id);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);

CREATE TABLE IF NOT EXISTS order_items(
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  price INTEGER NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity >= 1)
);
CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);

CREATE TABLE IF NOT EXISTS prescriptions(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id),
  image_url TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  price INTEGER,
  notes TEXT NOT NULL DEFAULT '',
  pharmacist_notes TEXT NOT NULL DEFAULT '',
  payment_method TEXT NOT NULL DEFAULT '',
  shipping_address TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_prescriptions_user ON prescriptions(user_id);
`
	_, err := db.Exec(schema)
	return err
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM categories`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo categories/products")

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()
	tx.MustExec(`INSERT INTO categories(id,name) VALUES
	  ('obat','Obat'),
	  ('vitamin','Vitamin & Suplemen'),
	  ('alat-kesehatan','Alat Kesehatan'),
	  ('perawatan-diri','Perawatan Diri')`)

	type seed struct {
		id, name, brand, tags, cat string
		price                      int64
		original                   *int64
		stock                      int
		desc                       string
		rx                         bool
	}
	orig := func(v int64) *int64 { return &v }
	products := []seed{
		{"paracetamol-500", "Paracetamol 500mg", "Sanbe", "demam,nyeri,sakit kepala", "obat", 12000, orig(15000), 120, "Meredakan <b>demam</b> dan nyeri ringan.", false},
		{"amoxicillin-500", "Amoxicillin 500mg", "Kimia Farma", "antibiotik,infeksi", "obat", 25000, nil, 40, "Antibiotik. <i>Wajib resep dokter.</i>", true},
		{"vitamin-c-1000", "Vitamin C 1000mg", "Holisticare", "imun,daya tahan", "vitamin", 45000, orig(52000), 60, "Menjaga daya tahan tubuh.", false},
		{"vitamin-d3-1000", "Vitamin D3 1000 IU", "Blackmores", "tulang,imun", "vitamin", 98000, nil, 8, "Membantu penyerapan kalsium.", false},
		{"termometer-digital", "Termometer Digital", "Omron", "demam,suhu", "alat-kesehatan", 65000, nil, 25, "Hasil pengukuran dalam <b>10 detik</b>.", false},
		{"masker-medis-3ply", "Masker Medis 3 Ply (50 pcs)", "Sensi", "masker,pelindung", "alat-kesehatan", 35000, orig(40000), 200, "Masker sekali pakai.", false},
		{"hand-sanitizer-500", "Hand Sanitizer 500ml", "Dettol", "antiseptik,kebersihan", "perawatan-diri", 42000, nil, 5, "Membunuh 99.9% kuman.", false},
		{"minyak-kayu-putih-60", "Minyak Kayu Putih 60ml", "Cap Lang", "masuk angin,hangat", "perawatan-diri", 23000, nil, 90, "Menghangatkan tubuh.", false},
	}
	now := domain.Now()
	for _, p := range products {
		tx.MustExec(`INSERT INTO products(id,name,brand,tags,category,price,original_price,stock,sold,image_url,description,requires_prescription,created_at,updated_at)
		  VALUES(?,?,?,?,?,?,?,?,0,?,?,?,?,?)`,
			p.id, p.name, p.brand, p.tags, p.cat, p.price, p.original, p.stock,
			"/media/product-images/"+p.id+".jpg", p.desc, p.rx, now, now)
	}
	return tx.Commit()
}

// seedUsers ensures demo customers and one admin exist (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, Email, Name, Phone string
		PhoneVerified, Admin   bool
	}
	users := []u{
		{"u-admin", "admin@apotek.test", "Admin Apotek", "081200000001", true, true},
		{"u-budi", "budi@apotek.test", "Budi", "081234567890", true, false},
		{"u-siti", "siti@apotek.test", "Siti", "", false, false},
	}
	h, err := bcrypt.GenerateFromPassword([]byte("Passw0rd!"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	now := domain.Now()
	for _, x := range users {
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,name,phone,password_hash,email_confirmed,phone_verified,status,created_at)
			VALUES(?,?,?,?,?,1,?,'active',?)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.Email, x.Name, x.Phone, string(h), x.PhoneVerified, now); err != nil {
			return err
		}
		if x.Admin {
			if _, err := tx.Exec(`INSERT INTO user_roles(user_id, role) VALUES(?, ?) ON CONFLICT DO NOTHING`, x.ID, domain.RoleAdmin); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}
