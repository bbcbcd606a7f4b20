package repository

import (
	"context"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const InMemory = ":memory:"

const ( // Local Database tables for client side application

	createUsersTable = `
		-- Just to store the current logged-in user
		CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL,
            created_at DATETIME NOT NULL -- DATETIME works TEXT, INTEGER will not be mapped to time.Time
		);
	`
	createConversationTable = `
		CREATE TABLE IF NOT EXISTS conversation (
            id TEXT PRIMARY KEY,
            participant_a_id TEXT NOT NULL,
            participant_b_id TEXT NOT NULL,
            listing_id TEXT,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            last_message TEXT,
            unread_count INTEGER NOT NULL DEFAULT 0
		);
	`
	createMessageTable = `
		CREATE TABLE IF NOT EXISTS message (
            id TEXT PRIMARY KEY,
            conversation_id TEXT NOT NULL,
            sender_id TEXT NOT NULL,
            recipient_id TEXT NOT NULL,
            content TEXT NOT NULL,
            read BOOLEAN NOT NULL DEFAULT FALSE,
            client_msg_id TEXT,
            created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_message_conversation_id ON message(conversation_id);
	`
)

type DB struct {
	*sqlx.DB
}

// OpenDB opens the cache file at path, InMemory gives a throwaway database
func OpenDB(path string) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := sqlx.ConnectContext(ctx, "sqlite3", path)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, err
	}
	if path == InMemory {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(5)
		db.SetConnMaxIdleTime(15 * time.Minute)
	}
	return &DB{db}, nil
}

func DeleteDBFile(path string) error {
	if path == InMemory {
		return nil
	}
	return os.Remove(path)
}

func (db *DB) RunMigrations() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, stmt := range []string{createUsersTable, createConversationTable, createMessageTable} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
