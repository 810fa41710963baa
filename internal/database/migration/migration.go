package migration

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"go.uber.org/zap"

	_ "github.com/golang-migrate/migrate/v4/database/postgres" // register postgres DB and SQL
	_ "github.com/golang-migrate/migrate/v4/source/file"       // register postgres File
)

// Migrate applies every pending migration found in migrationsDir.
func Migrate(dbURL string, migrationsDir string, verbose bool, log *zap.Logger) error {
	log.Info("Running database migration", zap.String("dir", migrationsDir))

	sourceURL, err := SourceURL(migrationsDir)
	if err != nil {
		return err
	}

	dbMigrate, err := migrate.New(sourceURL, dbURL)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer dbMigrate.Close()
	dbMigrate.Log = NewLogger(log, verbose)

	err = dbMigrate.Up()
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("Database migration: no change needed")
			return nil
		}
		log.Error("Database migration failed", zap.Error(err))
		return err
	}

	version, dirty, err := dbMigrate.Version()
	if err == nil {
		log.Info("Database migrated", zap.Uint("version", version), zap.Bool("dirty", dirty))
	}

	return nil
}

// SourceURL turns a directory into the file:// source golang-migrate expects.
func SourceURL(migrationsDir string) (string, error) {
	absPath, err := filepath.Abs(migrationsDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	return "file://" + filepath.ToSlash(absPath), nil
}

type Logger struct {
	logger  *zap.Logger
	verbose bool
}

func (l *Logger) Printf(format string, v ...any) {
	l.logger.Sugar().Infof("DB Migration: "+format, v...)
}

func (l *Logger) Verbose() bool {
	return l.verbose
}

func NewLogger(logger *zap.Logger, verbose bool) *Logger {
	return &Logger{
		logger:  logger,
		verbose: verbose,
	}
}
