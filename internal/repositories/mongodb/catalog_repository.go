package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
	"storefront/internal/repositories/interfaces"
)

const (
	ProductsCollection   = "products"
	CategoriesCollection = "categories"
	BannersCollection    = "banners"
	TagsCollection       = "tags"
)

type catalogRepository struct {
	products   *mongo.Collection
	categories *mongo.Collection
	banners    *mongo.Collection
	tags       *mongo.Collection
}

func NewCatalogRepository(db *mongo.Database) interfaces.CatalogRepository {
	return &catalogRepository{
		products:   db.Collection(ProductsCollection),
		categories: db.Collection(CategoriesCollection),
		banners:    db.Collection(BannersCollection),
		tags:       db.Collection(TagsCollection),
	}
}

func findOne[T any](ctx context.Context, collection *mongo.Collection, filter bson.M, what string) (*T, error) {
	var doc T
	err := collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", what, err)
	}
	return &doc, nil
}

func (r *catalogRepository) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	return findOne[models.Product](ctx, r.products, bson.M{"slug": slug}, "product")
}

func (r *catalogRepository) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return findOne[models.Category](ctx, r.categories, bson.M{"slug": slug}, "category")
}

func (r *catalogRepository) GetCategoryByID(ctx context.Context, id string) (*models.Category, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, interfaces.ErrNotFound
	}
	return findOne[models.Category](ctx, r.categories, bson.M{"_id": oid}, "category")
}

func (r *catalogRepository) GetBannerByID(ctx context.Context, id string) (*models.Banner, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, interfaces.ErrNotFound
	}
	return findOne[models.Banner](ctx, r.banners, bson.M{"_id": oid}, "banner")
}

func (r *catalogRepository) GetTagBySlug(ctx context.Context, slug string) (*models.Tag, error) {
	return findOne[models.Tag](ctx, r.tags, bson.M{"slug": slug}, "tag")
}

func (r *catalogRepository) collectionFor(entityType models.EntityType) *mongo.Collection {
	switch entityType {
	case models.EntityProduct:
		return r.products
	case models.EntityCategory:
		return r.categories
	case models.EntityBanner:
		return r.banners
	case models.EntityTag:
		return r.tags
	}
	return nil
}

func (r *catalogRepository) IncrementCounter(ctx context.Context, entityType models.EntityType, entityID string, field interfaces.CounterField) error {
	collection := r.collectionFor(entityType)
	if collection == nil || entityID == "" {
		return nil
	}

	var update interface{} = bson.M{
		"$inc": bson.M{string(field): 1},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	if entityType == models.EntityProduct {
		update = productCounterPipeline(field)
	}

	result, err := collection.UpdateOne(ctx, entityKeyFilter(entityID), update)
	if err != nil {
		return fmt.Errorf("failed to increment %s.%s: %w", entityType, field, err)
	}
	if result.MatchedCount == 0 {
		return interfaces.ErrNotFound
	}

	return nil
}

// productCounterPipeline increments one counter and recomputes score in the
// same single-document update, so concurrent writers never lose increments.
func productCounterPipeline(field interfaces.CounterField) mongo.Pipeline {
	counter := func(name string) bson.M {
		return bson.M{"$ifNull": bson.A{"$" + name, 0}}
	}

	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			string(field): bson.M{"$add": bson.A{counter(string(field)), 1}},
			"updatedAt":   "$$NOW",
		}}},
		{{Key: "$set", Value: bson.M{
			"score": bson.M{"$add": bson.A{
				counter("totalViews"),
				bson.M{"$multiply": bson.A{models.ScoreClickWeight, counter("clicks")}},
				bson.M{"$multiply": bson.A{models.ScoreInquiryWeight, counter("inquiries")}},
			}},
		}}},
	}
}

func (r *catalogRepository) ListCategoriesByProductCount(ctx context.Context, limit int) ([]*models.Category, error) {
	filter := bson.M{
		"isActive":     true,
		"productCount": bson.M{"$gt": 0},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "productCount", Value: -1}, {Key: "name", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.categories.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer cursor.Close(ctx)

	var categories []*models.Category
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}

	return categories, nil
}

func (r *catalogRepository) ListBanners(ctx context.Context, ids []string) ([]*models.Banner, error) {
	filter := bson.M{}
	if len(ids) > 0 {
		oids := make([]primitive.ObjectID, 0, len(ids))
		for _, id := range ids {
			if oid, err := primitive.ObjectIDFromHex(id); err == nil {
				oids = append(oids, oid)
			}
		}
		filter["_id"] = bson.M{"$in": oids}
	} else {
		filter["isActive"] = true
	}

	cursor, err := r.banners.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list banners: %w", err)
	}
	defer cursor.Close(ctx)

	var banners []*models.Banner
	if err := cursor.All(ctx, &banners); err != nil {
		return nil, fmt.Errorf("failed to decode banners: %w", err)
	}

	return banners, nil
}
