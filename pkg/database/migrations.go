package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Migration struct {
	Version     int
	Description string
	Up          func(*mongo.Database) error
}

type Migrator struct {
	db         *mongo.Database
	migrations []Migration
}

func NewMigrator(db *mongo.Database) *Migrator {
	return &Migrator{
		db:         db,
		migrations: getMigrations(),
	}
}

func (m *Migrator) Up() error {
	// Create migrations collection if it doesn't exist
	err := m.createMigrationsCollection()
	if err != nil {
		return err
	}

	// Get current version
	currentVersion, err := m.getCurrentVersion()
	if err != nil {
		return err
	}

	// Run migrations
	for _, migration := range m.migrations {
		if migration.Version > currentVersion {
			logrus.Infof("Running migration %d: %s", migration.Version, migration.Description)

			err := migration.Up(m.db)
			if err != nil {
				return fmt.Errorf("migration %d failed: %w", migration.Version, err)
			}

			err = m.updateVersion(migration.Version)
			if err != nil {
				return fmt.Errorf("failed to update migration version: %w", err)
			}

			logrus.Infof("Migration %d completed successfully", migration.Version)
		}
	}

	return nil
}

func (m *Migrator) createMigrationsCollection() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collections, err := m.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return err
	}

	for _, name := range collections {
		if name == "migrations" {
			return nil
		}
	}

	return m.db.CreateCollection(ctx, "migrations")
}

func (m *Migrator) getCurrentVersion() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var result struct {
		Version int `bson:"version"`
	}

	err := m.db.Collection("migrations").FindOne(ctx, bson.D{}).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, err
	}

	return result.Version, nil
}

func (m *Migrator) updateVersion(version int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := m.db.Collection("migrations").ReplaceOne(
		ctx,
		bson.D{},
		bson.D{{Key: "version", Value: version}, {Key: "updated_at", Value: time.Now()}},
		options.Replace().SetUpsert(true),
	)

	return err
}

func getMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create analytics_events indexes",
			Up: func(db *mongo.Database) error {
				return createEventIndexes(db)
			},
		},
		{
			Version:     2,
			Description: "Create daily_analytics collection with unique rollup key",
			Up: func(db *mongo.Database) error {
				return createRollupIndexes(db)
			},
		},
		{
			Version:     3,
			Description: "Create catalog slug and ranking indexes",
			Up: func(db *mongo.Database) error {
				return createCatalogIndexes(db)
			},
		},
	}
}

func createEventIndexes(db *mongo.Database) error {
	ctx := context.Background()
	collection := db.Collection("analytics_events")

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "eventType", Value: 1}}},
		{Keys: bson.D{{Key: "entityType", Value: 1}, {Key: "entityId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "sessionId", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "ip", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "metadata.utmSource", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "metadata.utmCampaign", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "metadata.pagePath", Value: 1}}, Options: options.Index().SetSparse(true)},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func createRollupIndexes(db *mongo.Database) error {
	ctx := context.Background()
	collection := db.Collection("daily_analytics")

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "date", Value: 1}, {Key: "entityType", Value: 1}, {Key: "entityId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "entityType", Value: 1}, {Key: "date", Value: -1}}},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func createCatalogIndexes(db *mongo.Database) error {
	ctx := context.Background()

	products := []mongo.IndexModel{
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "score", Value: -1}}},
		{Keys: bson.D{{Key: "totalViews", Value: -1}}},
	}
	if _, err := db.Collection("products").Indexes().CreateMany(ctx, products); err != nil {
		return err
	}

	categories := []mongo.IndexModel{
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "parentId", Value: 1}}},
		{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "productCount", Value: -1}}},
	}
	if _, err := db.Collection("categories").Indexes().CreateMany(ctx, categories); err != nil {
		return err
	}

	tags := []mongo.IndexModel{
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	_, err := db.Collection("tags").Indexes().CreateMany(ctx, tags)
	return err
}
