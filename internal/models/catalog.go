package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Product struct {
	ID         primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Name       string              `json:"name" bson:"name"`
	Slug       string              `json:"slug" bson:"slug"`
	CategoryID *primitive.ObjectID `json:"categoryId,omitempty" bson:"categoryId,omitempty"`
	IsActive   bool                `json:"isActive" bson:"isActive"`
	TotalViews int64               `json:"totalViews" bson:"totalViews"`
	Clicks     int64               `json:"clicks" bson:"clicks"`
	Inquiries  int64               `json:"inquiries" bson:"inquiries"`
	Score      float64             `json:"score" bson:"score"`
	CreatedAt  time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt" bson:"updatedAt"`
}

type Category struct {
	ID           primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Name         string              `json:"name" bson:"name"`
	Slug         string              `json:"slug" bson:"slug"`
	ParentID     *primitive.ObjectID `json:"parentId,omitempty" bson:"parentId,omitempty"`
	IsActive     bool                `json:"isActive" bson:"isActive"`
	ProductCount int64               `json:"productCount" bson:"productCount"`
	TotalViews   int64               `json:"totalViews" bson:"totalViews"`
	Clicks       int64               `json:"clicks" bson:"clicks"`
	CreatedAt    time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt" bson:"updatedAt"`
}

type Banner struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title       string             `json:"title" bson:"title"`
	IsActive    bool               `json:"isActive" bson:"isActive"`
	Impressions int64              `json:"impressions" bson:"impressions"`
	Clicks      int64              `json:"clicks" bson:"clicks"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type Tag struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Slug        string             `json:"slug" bson:"slug"`
	Impressions int64              `json:"impressions" bson:"impressions"`
	Clicks      int64              `json:"clicks" bson:"clicks"`
}

// Breadcrumb is one step of a category ancestry path, root first.
type Breadcrumb struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// EntityRef is the denormalized reference copied onto events.
type EntityRef struct {
	Type EntityType
	ID   string
	Slug string
	Name string
}

// Product score weights. Score is recomputed on every counter increment.
const (
	ScoreClickWeight   = 3
	ScoreInquiryWeight = 5
)

func ProductScore(views, clicks, inquiries int64) float64 {
	return float64(views + ScoreClickWeight*clicks + ScoreInquiryWeight*inquiries)
}
