package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"examscore/internal/db"
	"examscore/internal/exam"
)

// OpenExamStore selects the exam persistence backend from cfg.ExamStore.
// The returned close func releases backend resources other than sqlDB.
func OpenExamStore(ctx context.Context, cfg Config, sqlDB *sql.DB) (exam.Store, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	switch cfg.ExamStore {
	case ExamStoreSQL, "":
		if sqlDB == nil {
			return nil, nil, fmt.Errorf("sql exam store requires a database")
		}
		return exam.NewSQLStore(sqlDB), noop, nil
	case ExamStoreMemory:
		return exam.NewMemoryStore(), noop, nil
	case ExamStoreMongo:
		mdb, err := db.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		store := exam.NewMongoStore(mdb)
		idxCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := store.EnsureIndexes(idxCtx); err != nil {
			_ = mdb.Client().Disconnect(ctx)
			return nil, nil, err
		}
		return store, mdb.Client().Disconnect, nil
	default:
		return nil, nil, fmt.Errorf("unsupported exam store: %s", cfg.ExamStore)
	}
}

// DBConfig maps the environment settings onto the SQL connection config.
func DBConfig(cfg Config) db.Config {
	out := db.DefaultConfig(db.Driver(cfg.DBDriver))
	out.DSN = cfg.DBDSN
	if cfg.DBMaxOpenConns > 0 {
		out.MaxOpenConns = cfg.DBMaxOpenConns
	}
	if cfg.DBMaxIdleConns > 0 {
		out.MaxIdleConns = cfg.DBMaxIdleConns
	}
	if cfg.DBConnMaxLifeMins > 0 {
		out.ConnMaxLifetime = time.Duration(cfg.DBConnMaxLifeMins) * time.Minute
	}
	return out
}
