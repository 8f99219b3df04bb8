package db

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/diewo77/go-facturas/internal/logger"
	"github.com/diewo77/go-facturas/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ChangeChannel is the LISTEN/NOTIFY channel fed by the change trigger.
const ChangeChannel = "table_changes"

// ConnectPostgres opens the database, giving Postgres a few seconds to come up.
// Only the initial connection is retried; queries are not.
func ConnectPostgres(dsn string, log *logger.Logger) (*gorm.DB, error) {
	var db *gorm.DB
	var err error
	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}

	for i := 0; i < 5; i++ {
		db, err = gorm.Open(postgres.Open(NormalizeDSN(dsn)), cfg)
		if err == nil {
			break
		}
		log.Warnf("database connection attempt %d/5 failed: %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}
	return db, nil
}

// ConnectSQLite opens (or creates) a SQLite database file. Used for local
// development without a Postgres server.
func ConnectSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	return db, nil
}

// Migrate creates or updates the four application tables. On Postgres it also
// installs the trigger that publishes row changes on ChangeChannel.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Product{},
		&models.Customer{},
		&models.Invoice{},
		&models.InvoiceItem{},
	); err != nil {
		return errors.Wrap(err, "auto migrate")
	}
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	for _, stmt := range changeTriggerSQL() {
		if err := db.Exec(stmt).Error; err != nil {
			return errors.Wrap(err, "install change trigger")
		}
	}
	return nil
}

var changeTables = []string{"products", "customers", "invoices", "invoice_items"}

func changeTriggerSQL() []string {
	stmts := []string{`
CREATE OR REPLACE FUNCTION notify_table_change() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify('` + ChangeChannel + `', json_build_object('table', TG_TABLE_NAME, 'event', TG_OP)::text);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql`}
	for _, table := range changeTables {
		stmts = append(stmts,
			`DROP TRIGGER IF EXISTS `+table+`_notify_change ON `+table,
			`CREATE TRIGGER `+table+`_notify_change AFTER INSERT OR UPDATE OR DELETE ON `+table+
				` FOR EACH ROW EXECUTE FUNCTION notify_table_change()`,
		)
	}
	return stmts
}
