package database

import (
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"strconv"

	slogGorm "github.com/orandin/slog-gorm"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"autonomity/src/datamodels"
	"autonomity/src/utils/errors"
)

type AutonomityDatabase interface {
	AuditDatabase
	MetricsDatabase
	// GetAuditFeed is nil for backends without LISTEN/NOTIFY.
	GetAuditFeed() AuditFeed
	Close() error
}

type databaseImplementation struct {
	gormDb              *gorm.DB
	notificationManager *NotificationManager
}

// NewDatabaseFromConfig opens the configured backend. It returns nil and no
// error when persistence is disabled.
func NewDatabaseFromConfig(config *datamodels.AutonomityConfig) (AutonomityDatabase, error) {
	switch config.DatabaseConfig.Driver {
	case datamodels.DatabaseDriverPostgres:
		return NewDBConnection(config.PostgresConfig)
	case datamodels.DatabaseDriverSqlite:
		return NewSQLiteConnection(config.DatabaseConfig.SqlitePath)
	case "", datamodels.DatabaseDriverNone:
		slog.Info("Database persistence disabled")
		return nil, nil
	}
	return nil, errors.Newf("unknown database driver %q", config.DatabaseConfig.Driver)
}

func NewDBConnection(dbConfig datamodels.PostgresConfig) (AutonomityDatabase, error) {
	var err error

	dbConnString := MakeConnectionString(&dbConfig)

	gormConfig := &gorm.Config{
		Logger: slogGorm.New(),
	}

	gorm, err := gorm.Open(postgres.Open(dbConnString), gormConfig)
	if err != nil {
		return nil, errors.WrapE(err, errors.New("cannot create gorm engine"))
	}

	slog.Info("Connected to database", "host", dbConfig.Host, "database", dbConfig.Database, "user", dbConfig.User)

	notifyManager, err := NewNotificationManager(gorm)
	if err != nil {
		return nil, errors.WrapE(err, errors.New("cannot create notify manager"))
	}

	return &databaseImplementation{
		gormDb:              gorm,
		notificationManager: notifyManager,
	}, nil
}

// NewSQLiteConnection opens a file (or ":memory:") database and creates the
// tables in place. Postgres schemas are managed by atlas instead.
func NewSQLiteConnection(path string) (AutonomityDatabase, error) {
	gormDb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: slogGorm.New(),
	})
	if err != nil {
		return nil, errors.WrapE(err, errors.New("cannot open sqlite database"))
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		sqlDb, err := gormDb.DB()
		if err != nil {
			return nil, errors.WrapE(err, errors.New("cannot access sqlite pool"))
		}
		sqlDb.SetMaxOpenConns(1)
	}
	if err := gormDb.AutoMigrate(DbTables...); err != nil {
		return nil, errors.WrapE(err, errors.New("cannot migrate sqlite schema"))
	}
	slog.Info("Opened sqlite database", "path", path)
	return &databaseImplementation{gormDb: gormDb}, nil
}

func (a *databaseImplementation) GetAuditFeed() AuditFeed {
	if a.notificationManager == nil {
		return nil
	}
	return a.notificationManager
}

func (a *databaseImplementation) Close() error {
	if a.notificationManager != nil {
		if err := a.notificationManager.Close(); err != nil {
			slog.Error("Failed to close notification manager", "error", err)
		}
	}
	sqlDb, err := a.gormDb.DB()
	if err != nil {
		return err
	}
	return sqlDb.Close()
}

func MakeConnectionString(dbConfig *datamodels.PostgresConfig) string {
	if dbConfig.URI != "" { // If url is provided, use it
		return dbConfig.URI
	}

	ssl := "sslmode=" + dbConfig.SSL.Mode

	if dbConfig.SSL.Mode != "disable" {
		sslFiles := map[string]string{
			"sslcert":     dbConfig.SSL.Cert,
			"sslkey":      dbConfig.SSL.Key,
			"sslrootcert": dbConfig.SSL.CA,
		}

		for param, content := range sslFiles {
			if content != "" {
				file, err := writeCertificate(content, param+".pem")
				if err != nil {
					slog.Error("Error writing " + param + " to file: " + err.Error())
				}

				ssl += "&" + param + "=" + file
			}
		}
	}

	hostPort := net.JoinHostPort(dbConfig.Host, strconv.Itoa(dbConfig.Port))

	if dbConfig.Password == "" {
		slog.Warn("No password provided for database connection, using empty password")
		return fmt.Sprintf("postgres://%s@%s/%s?search_path=public&%s",
			dbConfig.User,
			hostPort,
			dbConfig.Database,
			ssl,
		)
	}

	return fmt.Sprintf("postgres://%s:%s@%s/%s?search_path=public&%s",
		dbConfig.User,
		dbConfig.Password,
		hostPort,
		dbConfig.Database,
		ssl,
	)
}

func writeCertificate(content string, outFile string) (string, error) {
	tempFile, err := os.CreateTemp("", outFile)
	if err != nil {
		return "", err
	}

	_, err = tempFile.WriteString(content)
	if err != nil {
		tempFile.Close()

		return "", err
	}

	err = tempFile.Close()
	if err != nil {
		log.Printf("Error closing %s: %v\n", outFile, err)
	}

	return tempFile.Name(), nil
}
