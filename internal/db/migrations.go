// internal/db/migrations.go
package db

import "fmt"

const accountSchema = `
CREATE TABLE IF NOT EXISTS plans (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    max_tables   INTEGER NOT NULL,
    max_menus    INTEGER NOT NULL,
    price_cents  INTEGER NOT NULL DEFAULT 0
);

INSERT OR IGNORE INTO plans (id, name, max_tables, max_menus, price_cents) VALUES
    ('free',    'Free',    5,   25,  0),
    ('starter', 'Starter', 20,  100, 1900),
    ('pro',     'Pro',     100, 500, 4900);

CREATE TABLE IF NOT EXISTS admins (
    id                  TEXT PRIMARY KEY,
    email               TEXT UNIQUE NOT NULL,
    encrypted_password  TEXT,
    restaurant_name     TEXT NOT NULL DEFAULT '',
    plan_id             TEXT NOT NULL DEFAULT 'free' REFERENCES plans(id),
    theme               TEXT NOT NULL DEFAULT '{}' CHECK (json_valid(theme)),
    last_sign_in_at     TEXT,
    created_at          TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at          TEXT NOT NULL DEFAULT (datetime('now')),
    deleted_at          TEXT
);

CREATE INDEX IF NOT EXISTS idx_admins_email ON admins(email);

CREATE TABLE IF NOT EXISTS admin_sessions (
    id          TEXT PRIMARY KEY,
    admin_id    TEXT NOT NULL REFERENCES admins(id) ON DELETE CASCADE,
    created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_admin_sessions_admin_id ON admin_sessions(admin_id);

CREATE TABLE IF NOT EXISTS admin_refresh_tokens (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    token       TEXT UNIQUE NOT NULL,
    admin_id    TEXT NOT NULL REFERENCES admins(id) ON DELETE CASCADE,
    session_id  TEXT REFERENCES admin_sessions(id) ON DELETE CASCADE,
    revoked     INTEGER NOT NULL DEFAULT 0,
    created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_admin_refresh_tokens_token ON admin_refresh_tokens(token);

CREATE TABLE IF NOT EXISTS oauth_states (
    state       TEXT PRIMARY KEY,
    provider    TEXT NOT NULL,
    redirect_to TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    expires_at  TEXT NOT NULL
);
`

const catalogSchema = `
CREATE TABLE IF NOT EXISTS categories (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    admin_id    TEXT NOT NULL REFERENCES admins(id) ON DELETE CASCADE,
    name        TEXT NOT NULL,
    icon        TEXT NOT NULL DEFAULT '',
    sort_order  INTEGER NOT NULL DEFAULT 0,
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now')),
    UNIQUE(admin_id, name)
);

CREATE TABLE IF NOT EXISTS ingredients (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    admin_id    TEXT NOT NULL REFERENCES admins(id) ON DELETE CASCADE,
    name        TEXT NOT NULL,
    unit        TEXT NOT NULL DEFAULT '',
    stock       REAL NOT NULL DEFAULT 0,
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now')),
    UNIQUE(admin_id, name)
);

CREATE TABLE IF NOT EXISTS menus (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    admin_id     TEXT NOT NULL REFERENCES admins(id) ON DELETE CASCADE,
    category_id  INTEGER REFERENCES categories(id) ON DELETE SET NULL,
    name         TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    price_cents  INTEGER NOT NULL,
    image_key    TEXT NOT NULL DEFAULT '',
    available    INTEGER NOT NULL DEFAULT 1,
    created_at   TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at   TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_menus_admin_id ON menus(admin_id);

CREATE TABLE IF NOT EXISTS menu_ingredients (
    menu_id        INTEGER NOT NULL REFERENCES menus(id) ON DELETE CASCADE,
    ingredient_id  INTEGER NOT NULL REFERENCES ingredients(id) ON DELETE CASCADE,
    PRIMARY KEY (menu_id, ingredient_id)
);
`

const orderSchema = `
CREATE TABLE IF NOT EXISTS dining_tables (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    admin_id    TEXT NOT NULL REFERENCES admins(id) ON DELETE CASCADE,
    code        TEXT UNIQUE NOT NULL,
    name        TEXT NOT NULL,
    status      TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'occupied')),
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_dining_tables_admin_id ON dining_tables(admin_id);
CREATE INDEX IF NOT EXISTS idx_dining_tables_code ON dining_tables(code);

CREATE TABLE IF NOT EXISTS orders (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    admin_id     TEXT NOT NULL REFERENCES admins(id) ON DELETE CASCADE,
    table_id     INTEGER NOT NULL REFERENCES dining_tables(id),
    status       TEXT NOT NULL DEFAULT 'pending'
                 CHECK (status IN ('pending', 'preparing', 'ready', 'delivered', 'paid', 'cancelled')),
    notes        TEXT NOT NULL DEFAULT '',
    total_cents  INTEGER NOT NULL DEFAULT 0,
    created_at   TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at   TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_orders_admin_id ON orders(admin_id);
CREATE INDEX IF NOT EXISTS idx_orders_table_id ON orders(table_id);

CREATE TABLE IF NOT EXISTS order_items (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id     INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    menu_id      INTEGER REFERENCES menus(id) ON DELETE SET NULL,
    menu_name    TEXT NOT NULL,
    quantity     INTEGER NOT NULL CHECK (quantity > 0),
    price_cents  INTEGER NOT NULL,
    notes        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);
`

// RunMigrations creates the full schema. Every statement is idempotent so
// the migrations can run on every startup.
func (db *DB) RunMigrations() error {
	_, err := db.Exec(accountSchema)
	if err != nil {
		return fmt.Errorf("failed to run account migrations: %w", err)
	}

	_, err = db.Exec(catalogSchema)
	if err != nil {
		return fmt.Errorf("failed to run catalog migrations: %w", err)
	}

	_, err = db.Exec(orderSchema)
	if err != nil {
		return fmt.Errorf("failed to run order migrations: %w", err)
	}

	return nil
}
