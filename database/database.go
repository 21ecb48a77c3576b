package database

import (
	"context"
	"fmt"

	"github.com/rpupo63/client-project-portal/errs"
	"github.com/rpupo63/client-project-portal/models"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"
)

// Database is the PostgreSQL Store. Each repository shares one GORM handle.
type Database struct {
	db *gorm.DB

	*ProjectRepo
	*CollaboratorRepo
	*ServiceRepo
	*BriefingRepo
}

var _ Store = (*Database)(nil)

// New initializes a new Database struct with each repository using a shared GORM database instance
func New(db *gorm.DB) *Database {
	return &Database{
		db:               db,
		ProjectRepo:      NewProjectRepo(db),
		CollaboratorRepo: NewCollaboratorRepo(db),
		ServiceRepo:      NewServiceRepo(db),
		BriefingRepo:     NewBriefingRepo(db),
	}
}

// UseReplicas routes plain reads to the given replicas. Writes, transactions
// and reads that precede a versioned write stay on the primary.
func UseReplicas(db *gorm.DB, replicas ...gorm.Dialector) error {
	if len(replicas) == 0 {
		return nil
	}
	err := db.Use(dbresolver.Register(dbresolver.Config{
		Replicas: replicas,
		Policy:   dbresolver.RandomPolicy{},
	}))
	if err != nil {
		return fmt.Errorf("register read replicas: %w", err)
	}
	return nil
}

// GetDB returns the underlying database connection for debugging purposes
func (d *Database) GetDB() *gorm.DB {
	return d.db
}

func (d *Database) Migrate() error {
	if err := models.Migrate(d.db); err != nil {
		return errs.NewDatabaseError("migrate", "schema", err)
	}
	return nil
}

func (d *Database) Close(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
