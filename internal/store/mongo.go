package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ayush/nature-spots/backend/internal/models"
)

// inspirationDoc is a single quote or image URL in the inspiration collection.
type inspirationDoc struct {
	Kind string `bson:"kind"` // "quote" or "image"
	Text string `bson:"text"`
}

// MongoStore serves the inspiration page content from MongoDB.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("inspiration")}
}

// defaultInspiration seeds the collection on first start.
var defaultInspiration = []inspirationDoc{
	{Kind: "quote", Text: "Walk as if you are kissing the Earth with your feet. — Thích Nhất Hạnh"},
	{Kind: "quote", Text: "In every walk with nature one receives far more than he seeks. — John Muir"},
	{Kind: "quote", Text: "Adopt the pace of nature: her secret is patience. — Ralph Waldo Emerson"},
	{Kind: "quote", Text: "The clearest way into the Universe is through a forest wilderness. — John Muir"},
	{Kind: "quote", Text: "Between every two pines is a doorway to a new world. — John Muir"},
	{Kind: "quote", Text: "Nature does not hurry, yet everything is accomplished. — Lao Tzu"},
	{Kind: "quote", Text: "Let yourself be silently drawn by the strange pull of what you really love. — Rumi"},
	{Kind: "quote", Text: "The earth has music for those who listen. — (often attributed to Shakespeare)"},
	{Kind: "image", Text: "https://images.unsplash.com/photo-1501785888041-af3ef285b470?q=80&w=1400&auto=format&fit=crop"},
	{Kind: "image", Text: "https://images.unsplash.com/photo-1441974231531-c6227db76b6e?q=80&w=1400&auto=format&fit=crop"},
	{Kind: "image", Text: "https://images.unsplash.com/photo-1500530855697-b586d89ba3ee?q=80&w=1400&auto=format&fit=crop"},
	{Kind: "image", Text: "https://images.unsplash.com/photo-1500534314209-a25ddb2bd429?q=80&w=1400&auto=format&fit=crop"},
	{Kind: "image", Text: "https://images.unsplash.com/photo-1469474968028-56623f02e42e?q=80&w=1400&auto=format&fit=crop"},
	{Kind: "image", Text: "https://images.unsplash.com/photo-1506744038136-46273834b3fb?q=80&w=1400&auto=format&fit=crop"},
}

// Seed inserts the default content if the collection is empty.
// Safe to run on every start.
func (s *MongoStore) Seed(ctx context.Context) error {
	n, err := s.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("inspiration count: %w", err)
	}
	if n > 0 {
		return nil
	}
	docs := make([]interface{}, len(defaultInspiration))
	for i, d := range defaultInspiration {
		docs[i] = d
	}
	if _, err := s.col.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("inspiration seed: %w", err)
	}
	return nil
}

// Inspiration returns all quotes and image URLs.
func (s *MongoStore) Inspiration(ctx context.Context) (*models.InspirationContent, error) {
	cur, err := s.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []inspirationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	content := &models.InspirationContent{Quotes: []string{}, Images: []string{}}
	for _, d := range docs {
		switch d.Kind {
		case "quote":
			content.Quotes = append(content.Quotes, d.Text)
		case "image":
			content.Images = append(content.Images, d.Text)
		}
	}
	return content, nil
}
