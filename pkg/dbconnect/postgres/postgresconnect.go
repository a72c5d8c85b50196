package postgres

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gomarketplace_hub/config"
)

const maxRetries = 10
const dbMaxOpenConns = 20
const retryDelay = 5 * time.Second

type PostgresDatabase struct {
	config.DatabaseConfig
	db  *sql.DB
	log *zap.Logger
	mu  sync.Mutex // Для защиты доступа к db

	retryDelay time.Duration
}

func NewPgConnector(dbConfig config.DatabaseConfig, log *zap.Logger) *PostgresDatabase {
	return &PostgresDatabase{DatabaseConfig: dbConfig, log: log.Named("postgres"), retryDelay: retryDelay}
}

func (pg *PostgresDatabase) Connect() (*sql.DB, error) {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	if pg.db != nil {
		return pg.db, nil
	}

	var err error
	conStr := pg.GetConnectionString()

	for i := 0; i < maxRetries; i++ {
		var db *sql.DB
		db, err = sql.Open("postgres", conStr)
		if err != nil {
			pg.log.Warn("Failed to open Postgres", zap.Int("attempt", i+1), zap.Int("max", maxRetries), zap.Error(err))
			time.Sleep(pg.retryDelay)
			continue
		}

		db.SetMaxOpenConns(dbMaxOpenConns)

		if err = db.Ping(); err != nil {
			pg.log.Warn("Failed to ping Postgres", zap.Int("attempt", i+1), zap.Int("max", maxRetries), zap.Error(err))
			db.Close()
			time.Sleep(pg.retryDelay)
			continue
		}

		pg.log.Info("Successfully connected to Postgres")
		pg.db = db
		return pg.db, nil
	}
	return nil, err
}

func (pg *PostgresDatabase) Ping() error {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	if pg.db == nil {
		return fmt.Errorf("database connection is not established")
	}

	if err := pg.db.Ping(); err != nil {
		pg.db.Close()
		pg.db = nil
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

func (pg *PostgresDatabase) Close() error {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	if pg.db == nil {
		return nil
	}
	err := pg.db.Close()
	pg.db = nil
	return err
}
