// Package mongo stores research artifacts as MongoDB documents.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sweetpotato0/ai-research/config"
	"github.com/sweetpotato0/ai-research/report"
)

// Config holds MongoDB connection configuration
type Config struct {
	URI        string
	Database   string
	Collection string
}

// DefaultConfig returns default MongoDB configuration
func DefaultConfig() *Config {
	return &Config{
		URI:        "mongodb://localhost:27017",
		Database:   "research",
		Collection: "reports",
	}
}

// Sink upserts one document per run, keyed by run id.
type Sink struct {
	client     *mongo.Client
	collection *mongo.Collection
}

type evidenceDoc struct {
	Source         string  `bson:"source"`
	Title          string  `bson:"title"`
	ExtractedText  string  `bson:"extracted_text"`
	RelevanceScore float64 `bson:"relevance_score"`
}

type reportDoc struct {
	ID             string        `bson:"_id"`
	Query          string        `bson:"query"`
	Report         string        `bson:"report"`
	IsLLMGenerated bool          `bson:"is_llm_generated"`
	Angles         []string      `bson:"research_angles"`
	SearchQueries  []string      `bson:"search_queries"`
	Evidence       []evidenceDoc `bson:"evidence"`
	Sources        []string      `bson:"sources"`
	CreatedAt      time.Time     `bson:"created_at"`
}

// New connects, pings and ensures the created_at index.
func New(ctx context.Context, cfg *Config) (*Sink, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := config.ValidateMongoDBConfig(cfg.URI, cfg.Database, cfg.Collection); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	s := &Sink{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}
	if err := s.createIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return s, nil
}

func (s *Sink) createIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})
	return err
}

// Emit implements report.Sink.
func (s *Sink) Emit(ctx context.Context, a report.Artifact) error {
	if a.RunID == "" {
		return fmt.Errorf("artifact has no run id")
	}
	doc := toDoc(a)
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to store report in MongoDB: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Sink) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func toDoc(a report.Artifact) reportDoc {
	evidence := make([]evidenceDoc, len(a.Evidence))
	for i, e := range a.Evidence {
		evidence[i] = evidenceDoc{
			Source:         e.Source,
			Title:          e.Title,
			ExtractedText:  e.ExtractedText,
			RelevanceScore: e.RelevanceScore,
		}
	}
	return reportDoc{
		ID:             a.RunID,
		Query:          a.Query,
		Report:         a.Report,
		IsLLMGenerated: a.IsLLMGenerated,
		Angles:         a.Plan.Angles,
		SearchQueries:  a.Plan.SearchQueries,
		Evidence:       evidence,
		Sources:        a.Sources,
		CreatedAt:      a.CreatedAt,
	}
}
