package database

import (
	"database/sql"
	"fmt"

	"sagechat-backend/internal/models"
)

func setPragmaValues(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return err
	}

	// these next 2 extremely speed up performance of sqlite
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return err
	}

	if _, err := db.Exec("PRAGMA synchronous = normal"); err != nil {
		return err
	}

	return nil
}

func readPragmaValues(db *sql.DB) error {
	var foreignKeysValue bool
	err := db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeysValue)
	if err != nil {
		return err
	}
	fmt.Printf("sqlite PRAGMA foreign_keys: %t\n", foreignKeysValue)

	var journalModeValue string
	err = db.QueryRow("PRAGMA journal_mode").Scan(&journalModeValue)
	if err != nil {
		return err
	}
	fmt.Printf("sqlite PRAGMA journal_mode: %s\n", journalModeValue)

	return nil
}

func Setup(cfg *models.ConfigFile) (*sql.DB, error) {
	if cfg.SelfContained {
		fmt.Println("Connecting to database sqlite...")
	} else {
		fmt.Println("Connecting to database mysql/mariadb...")
	}

	var db *sql.DB
	var err error

	if cfg.SelfContained {
		db, err = sql.Open("sqlite", "./database.db")
		if err != nil {
			return db, err
		}

		// there can be sqlite busy errors if this is not set to 1
		db.SetMaxOpenConns(1)

		err = setPragmaValues(db)
		if err != nil {
			return db, err
		}

		err = readPragmaValues(db)
		if err != nil {
			return db, err
		}
	} else {
		db, err = sql.Open("mysql", fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&timeout=10s", cfg.DbUser, cfg.DbPassword, cfg.DbAddress, cfg.DbPort, cfg.DbDatabase))
		if err != nil {
			return db, err
		}

		db.SetMaxOpenConns(10)
	}

	err = SetupTables(db)
	if err != nil {
		return db, err
	}

	return db, nil
}

// OpenMemory opens a throwaway in-memory sqlite database with the full
// schema, for tests.
func OpenMemory() (*sql.DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	err = SetupTables(db)
	if err != nil {
		return nil, err
	}

	return db, nil
}

func SetupTables(db *sql.DB) error {
	var err error

	_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS users (
				id BIGINT PRIMARY KEY,
				username VARCHAR(32) NOT NULL UNIQUE,
				name VARCHAR(64) NOT NULL,
				avatar_initials VARCHAR(8) NOT NULL,
				status VARCHAR(16) NOT NULL,
				last_login TIMESTAMP NULL,
				password BINARY(60) NOT NULL
			);
		`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS channels (
				id BIGINT PRIMARY KEY,
				name VARCHAR(64) NOT NULL UNIQUE,
				display_name VARCHAR(64) NOT NULL,
				description VARCHAR(256) NOT NULL,
				icon VARCHAR(32) NOT NULL,
				type VARCHAR(16) NOT NULL,
				creator_id BIGINT NOT NULL,
				created_at TIMESTAMP NOT NULL,
				FOREIGN KEY (creator_id) REFERENCES users(id) ON DELETE CASCADE
			);
		`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS channel_members (
				channel_id BIGINT NOT NULL,
				user_id BIGINT NOT NULL,
				since TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (channel_id, user_id),
				FOREIGN KEY (channel_id) REFERENCES channels(id) ON DELETE CASCADE,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			);
		`)
	if err != nil {
		return err
	}

	// deleting a channel cascades into its messages
	_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS messages (
				id BIGINT PRIMARY KEY,
				channel_id BIGINT NOT NULL,
				author_id BIGINT NOT NULL,
				author_name VARCHAR(64) NOT NULL,
				text TEXT NOT NULL,
				timestamp TIMESTAMP NOT NULL,
				edited BOOLEAN NOT NULL,
				edited_at TIMESTAMP NULL,
				FOREIGN KEY (channel_id) REFERENCES channels(id) ON DELETE CASCADE,
				FOREIGN KEY (author_id) REFERENCES users(id) ON DELETE CASCADE
			);
		`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
			CREATE INDEX IF NOT EXISTS idx_messages_channel_timestamp
			ON messages (channel_id, timestamp);
		`)
	if err != nil {
		return err
	}

	return nil
}
