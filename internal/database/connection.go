package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hypernova-labs/aquatrack-service/internal/config"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// queryTimeout limita cada petición individual a la base de datos
const queryTimeout = 30 * time.Second

// DB representa la conexión a la base de datos
type DB struct {
	*sql.DB
}

// Connect establece la conexión a PostgreSQL
func Connect(cfg *config.Config) (*DB, error) {
	dsn := cfg.GetDSN()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(10 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	// Verificar conexión
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	return &DB{db}, nil
}

// NewDB envuelve una conexión existente (tests con sqlmock)
func NewDB(db *sql.DB) *DB {
	return &DB{db}
}

// Close cierra la conexión a la base de datos
func (db *DB) Close() error {
	return db.DB.Close()
}

// HealthCheck verifica la salud de la base de datos
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database query test failed: %w", err)
	}

	return nil
}

// GetStats retorna estadísticas del pool
func (db *DB) GetStats() map[string]interface{} {
	stats := db.Stats()
	return map[string]interface{}{
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration":        stats.WaitDuration,
	}
}

// WithTimeout deriva un contexto con el timeout de consulta.
// Las filas deben leerse antes de llamar a cancel.
func (db *DB) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, queryTimeout)
}

// ExecWithTimeout ejecuta una sentencia con timeout
func (db *DB) ExecWithTimeout(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()

	return db.ExecContext(ctx, query, args...)
}

// WithTransaction ejecuta una función dentro de una transacción
func (db *DB) WithTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("error rolling back transaction: %w, original error: %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	return nil
}

// LogStats registra las estadísticas de la base de datos
func (db *DB) LogStats(logger *logrus.Logger) {
	logger.WithFields(logrus.Fields(db.GetStats())).Info("Database pool statistics")
}
