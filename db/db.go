package db

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// The queries object for interacting with database and cache
type Queries struct {
	DB    *gorm.DB
	Cache *redis.Client
}

// Constructor for Queries
func NewQueries() *Queries {
	return &Queries{}
}

// Connect to Postgres. TranslateError maps unique violations to gorm.ErrDuplicatedKey
func (queries *Queries) ConnectDB(connStr string) error {
	conn, err := gorm.Open(postgres.Open(connStr), &gorm.Config{TranslateError: true})
	if err != nil {
		return err
	}

	queries.DB = conn
	return nil
}

// Run postgres database auto migration
func (queries *Queries) AutoMigration() error {
	return queries.DB.AutoMigrate(AllModels()...)
}

// Connect to Redis
func (queries *Queries) ConnectRedis(ctx context.Context, opt *redis.Options) error {
	queries.Cache = redis.NewClient(opt)
	_, err := queries.Cache.Ping(ctx).Result()
	if err != nil {
		return err
	}
	return nil
}

// Run fn inside a database transaction. The Store handed to fn shares the cache client
func (queries *Queries) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return queries.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Queries{DB: tx, Cache: queries.Cache})
	})
}

// Scoped query builder. forUpdate adds SELECT ... FOR UPDATE
func (queries *Queries) query(ctx context.Context, forUpdate bool) *gorm.DB {
	q := queries.DB.WithContext(ctx)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

// Map gorm errors into the store errors
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Join(ErrConflict, err)
	default:
		return err
	}
}
