package db

import (
	"database/sql"
	"fmt"
	"log"

	"soundwave/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database.")
	return nil
}

// InitDB initializes the database schema, creating tables if they don't exist.
// The users table is managed by GORM (see ConnectGormDB); only the songs
// catalog lives on raw SQL.
func InitDB() error {
	if err := createSongsTable(); err != nil {
		return err
	}
	log.Println("Database initialization completed.")
	return nil
}

func createSongsTable() error {
	// IDs are opaque server-generated strings, not auto-increments, so that a
	// record keeps its identity if ever exported or re-imported.
	query := `
	CREATE TABLE IF NOT EXISTS songs (
		id VARCHAR(64) PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		artist VARCHAR(255) NOT NULL,
		file_key VARCHAR(767) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := DB.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create songs table: %w", err)
	}
	log.Println("Songs table initialized successfully (or already exists).")
	return nil
}
