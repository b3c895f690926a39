package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"commerce-backend/config"
)

// InitDB opens the MySQL pool and applies the schema.
func InitDB(cfg *config.Config) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func migrate(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		sku VARCHAR(64) NOT NULL,
		image VARCHAR(512) NOT NULL DEFAULT '',
		price DECIMAL(12,2) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_products_sku (sku)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		order_number VARCHAR(16) NOT NULL,
		customer_id INT NOT NULL,
		customer_email VARCHAR(255) NOT NULL DEFAULT '',
		customer_phone VARCHAR(32) NOT NULL DEFAULT '',
		status VARCHAR(16) NOT NULL,
		payment_status VARCHAR(16) NOT NULL,
		subtotal DECIMAL(12,2) NOT NULL,
		tax_amount DECIMAL(12,2) NOT NULL,
		shipping_cost DECIMAL(12,2) NOT NULL,
		discount_amount DECIMAL(12,2) NOT NULL,
		total DECIMAL(12,2) NOT NULL,
		shipping_address JSON NOT NULL,
		billing_address JSON NULL,
		notes TEXT,
		created_at DATETIME(6) NOT NULL,
		confirmed_at DATETIME(6) NULL,
		shipped_at DATETIME(6) NULL,
		delivered_at DATETIME(6) NULL,
		cancelled_at DATETIME(6) NULL,
		UNIQUE KEY uq_orders_order_number (order_number),
		KEY idx_orders_customer (customer_id, created_at),
		KEY idx_orders_status (status)
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		order_id BIGINT NOT NULL,
		product_id BIGINT NOT NULL,
		product_name VARCHAR(255) NOT NULL,
		sku VARCHAR(64) NOT NULL,
		image VARCHAR(512) NOT NULL DEFAULT '',
		quantity INT NOT NULL,
		unit_price DECIMAL(12,2) NOT NULL,
		total DECIMAL(12,2) NOT NULL,
		KEY idx_order_items_order (order_id),
		CONSTRAINT fk_order_items_order FOREIGN KEY (order_id)
			REFERENCES orders(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id CHAR(36) PRIMARY KEY,
		order_id BIGINT NOT NULL,
		amount DECIMAL(12,2) NOT NULL,
		currency CHAR(3) NOT NULL,
		method VARCHAR(32) NOT NULL,
		status VARCHAR(16) NOT NULL,
		external_id VARCHAR(128) NOT NULL DEFAULT '',
		metadata TEXT,
		created_at DATETIME(6) NOT NULL,
		processed_at DATETIME(6) NULL,
		KEY idx_payments_order (order_id),
		KEY idx_payments_external (external_id),
		CONSTRAINT fk_payments_order FOREIGN KEY (order_id) REFERENCES orders(id)
	)`,
}
