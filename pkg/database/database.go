package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second
)

// PoolConfig sizes the destination connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ConnectMongo opens a client and checks the primary is reachable.
func ConnectMongo(ctx context.Context, connString string, log *zap.Logger) (*mongo.Client, error) {
	connCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connCtx, options.Client().ApplyURI(connString))
	if err != nil {
		return nil, fmt.Errorf("error creating MongoDB client: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, pingTimeout)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		DisconnectMongo(client, log)
		return nil, fmt.Errorf("error connecting to MongoDB (ping failed): %w", err)
	}

	log.Info("Successfully connected to MongoDB.")
	return client, nil
}

// DisconnectMongo closes the client, logging rather than returning failures.
func DisconnectMongo(client *mongo.Client, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.Warn("MongoDB disconnect failed", zap.Error(err))
	}
}

// Dialector returns the gorm dialector for a destination driver name.
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "postgres":
		return postgres.Open(dsn), nil
	case "sqlserver":
		return sqlserver.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported destination driver %q", driver)
	}
}

// OpenDestination opens the relational store and checks it is reachable.
// Writes carry their own transactions, so gorm's implicit one is disabled.
func OpenDestination(ctx context.Context, driver, dsn string, pool PoolConfig, gormLog gormlogger.Interface, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := Dialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("error opening %s database: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("error getting %s connection pool: %w", driver, err)
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("error connecting to %s database (ping failed): %w", driver, err)
	}

	log.Info("Successfully connected to destination database.", zap.String("driver", driver))
	return db, nil
}

// CloseDestination closes the pool behind db.
func CloseDestination(db *gorm.DB, log *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("destination close failed", zap.Error(err))
	}
}
