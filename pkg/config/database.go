package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/anonto42/hexagon/backend/pkg/log"
)

// DB bundles the account store (PostgreSQL) and the document store (MongoDB).
type DB struct {
	Postgres *gorm.DB
	Mongo    *mongo.Client
	logger   log.Logger
}

// InitDB connects both stores, bounded by DatabaseConfig.ConnectTimeout.
func InitDB(cfg *Config, logger log.Logger) (*DB, error) {
	switch {
	case cfg.PostgresURL == "":
		return nil, errors.New("POSTGRES_URL environment variable not set")
	case cfg.MongoURI == "":
		return nil, errors.New("MONGO_URI environment variable not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer cancel()

	pg, err := openPostgres(ctx, cfg.PostgresURL, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	logger.Infof("Connected to PostgreSQL (max open conns %d)", cfg.Database.PostgresMaxOpenConns)

	mg, err := openMongo(ctx, cfg.MongoURI, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	logger.Infof("Connected to MongoDB database %q", cfg.MongoDatabase)

	return &DB{Postgres: pg, Mongo: mg, logger: logger}, nil
}

func openPostgres(ctx context.Context, dsn string, dbc DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(dbc.PostgresMaxOpenConns)
	sqlDB.SetMaxIdleConns(dbc.PostgresMaxIdleConns)
	sqlDB.SetConnMaxLifetime(dbc.PostgresConnMaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func openMongo(ctx context.Context, uri string, dbc DatabaseConfig) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(dbc.MongoMaxPoolSize).
		SetServerSelectionTimeout(dbc.ConnectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// CloseDB releases both stores. Errors are logged, not returned.
func (db *DB) CloseDB() {
	if db.Postgres != nil {
		if sqlDB, err := db.Postgres.DB(); err != nil {
			db.logger.Errorf("postgres handle: %v", err)
		} else if err := sqlDB.Close(); err != nil {
			db.logger.Errorf("close postgres: %v", err)
		}
	}

	if db.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Mongo.Disconnect(ctx); err != nil {
			db.logger.Errorf("close mongo: %v", err)
		}
	}
	db.logger.Infof("Database connections closed")
}
