package database

import (
	"database/sql"
	"log"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// OpenDB initializes and returns the store's connection pool.
// It reads the DSN from the environment variable (or a local-dev fallback).
func OpenDB() (*sql.DB, error) {
	// 1. Define the Data Source Name (DSN)
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		// FALLBACK: local development database.
		dsn = "root:root@tcp(127.0.0.1:3306)/stockflow?parseTime=true"
	}

	return OpenDBWithDSN(dsn)
}

// OpenDBWithDSN creates and configures a DB connection pool
// using any provided DSN string.
func OpenDBWithDSN(dsn string) (*sql.DB, error) {
	// 2. Open a new connection pool.
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// 3. Configure the connection pool settings.
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 4. Ping the database to verify the connection.
	err = db.Ping()
	if err != nil {
		log.Printf("Error connecting to database: %v", err)
		return nil, err
	}

	log.Println("Database connection pool established successfully")
	return db, nil
}
