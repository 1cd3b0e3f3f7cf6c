package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/shop-management/internal/model"
)

const shopsTable = `CREATE TABLE IF NOT EXISTS shops (
  id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
  shop_id CHAR(36) NOT NULL,
  shop_name VARCHAR(100) COLLATE utf8mb4_bin NOT NULL,
  shop_slug VARCHAR(150) COLLATE utf8mb4_bin NOT NULL,
  detailed_shop_address VARCHAR(300) NOT NULL DEFAULT '',
  country VARCHAR(100) NOT NULL DEFAULT '',
  selected_plan_id CHAR(36) NULL,
  trial_running BOOLEAN NOT NULL DEFAULT FALSE,
  trial_over BOOLEAN NOT NULL DEFAULT FALSE,
  trial_start_at DATETIME NULL,
  expires_at DATETIME NULL,
  subscription_expired BOOLEAN NOT NULL DEFAULT FALSE,
  currency VARCHAR(8) NOT NULL DEFAULT 'BDT',
  created_by VARCHAR(100) NOT NULL,
  created_at DATETIME NOT NULL,
  updated_by VARCHAR(100) NOT NULL DEFAULT '',
  updated_at DATETIME NULL,
  UNIQUE KEY uq_shops_shop_id (shop_id),
  UNIQUE KEY uq_shops_shop_name (shop_name)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const usersTable = `CREATE TABLE IF NOT EXISTS users (
  id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
  user_id CHAR(36) NOT NULL,
  shop_id CHAR(36) NOT NULL,
  shop_name VARCHAR(100) NOT NULL,
  name VARCHAR(100) NOT NULL,
  username VARCHAR(100) NOT NULL,
  email VARCHAR(254) NOT NULL,
  mobile VARCHAR(32) NOT NULL,
  password_hash VARCHAR(100) NOT NULL,
  capabilities TINYINT UNSIGNED NOT NULL DEFAULT 0,
  detailed_shop_address VARCHAR(300) NOT NULL DEFAULT '',
  country VARCHAR(100) NOT NULL DEFAULT '',
  created_by VARCHAR(100) NOT NULL,
  created_at DATETIME NOT NULL,
  updated_by VARCHAR(100) NOT NULL DEFAULT '',
  updated_at DATETIME NULL,
  UNIQUE KEY uq_users_user_id (user_id),
  UNIQUE KEY uq_users_username (username),
  UNIQUE KEY uq_users_email (email),
  KEY idx_users_shop_id (shop_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// catalogTable is shared by the four catalog kinds; only the table name
// differs.  The (shop_id, name) key makes names unique per shop.  Names
// are stored lowercased, so a binary collation keeps "cafe" and "café"
// apart.
const catalogTable = `CREATE TABLE IF NOT EXISTS %s (
  id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
  entity_id CHAR(36) NOT NULL,
  shop_id CHAR(36) NOT NULL,
  name VARCHAR(150) COLLATE utf8mb4_bin NOT NULL,
  slug VARCHAR(200) COLLATE utf8mb4_bin NOT NULL,
  created_by VARCHAR(100) NOT NULL,
  created_at DATETIME NOT NULL,
  updated_by VARCHAR(100) NOT NULL DEFAULT '',
  updated_at DATETIME NULL,
  UNIQUE KEY uq_entity_id (entity_id),
  UNIQUE KEY uq_shop_name (shop_id, name)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const productsTable = `CREATE TABLE IF NOT EXISTS products (
  id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
  product_id CHAR(36) NOT NULL,
  shop_id CHAR(36) NOT NULL,
  product_title VARCHAR(420) NOT NULL,
  product_title_slug VARCHAR(420) COLLATE utf8mb4_bin NOT NULL,
  product_name VARCHAR(150) NOT NULL,
  group_name VARCHAR(200) NOT NULL,
  supplier VARCHAR(150) NOT NULL,
  category VARCHAR(100) NOT NULL,
  weight_or_size VARCHAR(150) NOT NULL,
  product_type VARCHAR(100) NOT NULL,
  discount_option BOOLEAN NOT NULL DEFAULT TRUE,
  purchase_price DOUBLE NOT NULL,
  sell_price DOUBLE NOT NULL,
  stock_left BIGINT NOT NULL DEFAULT 0,
  lifetime_supply BIGINT NOT NULL DEFAULT 0,
  lifetime_sells BIGINT NOT NULL DEFAULT 0,
  created_by VARCHAR(100) NOT NULL,
  created_at DATETIME NOT NULL,
  updated_by VARCHAR(100) NOT NULL DEFAULT '',
  updated_at DATETIME NULL,
  UNIQUE KEY uq_products_product_id (product_id),
  UNIQUE KEY uq_products_shop_title (shop_id, product_title_slug)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const plansTable = `CREATE TABLE IF NOT EXISTS subscription_plans (
  id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
  plan_id CHAR(36) NOT NULL,
  plan_name VARCHAR(100) COLLATE utf8mb4_bin NOT NULL,
  description VARCHAR(400) NOT NULL,
  duration VARCHAR(30) NOT NULL,
  price DOUBLE NOT NULL,
  currency VARCHAR(8) NOT NULL,
  features VARCHAR(400) NOT NULL,
  limitations VARCHAR(200) NOT NULL,
  upgrade_downgrade_options VARCHAR(200) NOT NULL,
  cancellation_policy VARCHAR(200) NOT NULL,
  trial_period VARCHAR(20) NOT NULL,
  renewal_policy VARCHAR(200) NOT NULL,
  terms_and_conditions VARCHAR(500) NOT NULL,
  created_by VARCHAR(100) NOT NULL,
  created_at DATETIME NOT NULL,
  UNIQUE KEY uq_plans_plan_id (plan_id),
  UNIQUE KEY uq_plans_plan_name (plan_name)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// Statements returns the DDL in creation order.
func Statements() []string {
	stmts := []string{shopsTable, usersTable}
	for _, k := range model.Kinds {
		stmts = append(stmts, fmt.Sprintf(catalogTable, k.Table))
	}
	return append(stmts, productsTable, plansTable)
}

// Migrate creates missing tables.  Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range Statements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
