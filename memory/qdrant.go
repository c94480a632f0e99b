package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig configures a QdrantMemory adapter.
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

func (c *QdrantConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.Collection == "" {
		c.Collection = "swarmkit"
	}
}

func (c *QdrantConfig) Validate() error {
	if c.Host == "" {
		return newMemoryError("QdrantMemory", "Validate", "host cannot be empty", nil)
	}
	if c.Port <= 0 {
		return newMemoryError("QdrantMemory", "Validate", "port must be positive", nil)
	}
	return nil
}

// QdrantMemory is a LongTermMemory backed by a Qdrant vector collection,
// grounded on the teacher's vector database provider.
type QdrantMemory struct {
	client *qdrant.Client
	config *QdrantConfig
	embed  Embedder
}

// Embedder turns text into a vector an external embedding model produced.
// Plugged in separately so QdrantMemory stays agnostic of which embedding
// provider an agent configured.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// NewQdrantMemory creates a vector-backed long-term memory store.
func NewQdrantMemory(cfg *QdrantConfig, embed Embedder) (*QdrantMemory, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, newMemoryError("QdrantMemory", "NewQdrantMemory", "failed to create qdrant client", err)
	}

	return &QdrantMemory{client: client, config: cfg, embed: embed}, nil
}

// Upsert embeds content and stores it under id, creating the configured
// collection on first use.
func (m *QdrantMemory) Upsert(ctx context.Context, id, content string, metadata map[string]interface{}) error {
	vector, err := m.embed.Embed(ctx, content)
	if err != nil {
		return newMemoryError("QdrantMemory", "Upsert", "failed to embed content", err)
	}

	exists, err := m.client.CollectionExists(ctx, m.config.Collection)
	if err != nil {
		return newMemoryError("QdrantMemory", "Upsert", "failed to check collection existence", err)
	}
	if !exists {
		if err := m.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: m.config.Collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(len(vector)),
				Distance: qdrant.Distance_Cosine,
			}),
		}); err != nil && !strings.Contains(err.Error(), "already exists") {
			return newMemoryError("QdrantMemory", "Upsert", "failed to create collection", err)
		}
	}

	payload := make(map[string]*qdrant.Value)
	payload["content"] = qdrant.NewValueString(content)
	for key, value := range metadata {
		val, err := qdrant.NewValue(value)
		if err != nil {
			return newMemoryError("QdrantMemory", "Upsert", "failed to convert metadata value for key "+key, err)
		}
		payload[key] = val
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(id),
		Vectors: qdrant.NewVectors(vector...),
		Payload: payload,
	}

	if _, err := m.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: m.config.Collection,
		Points:         []*qdrant.PointStruct{point},
	}); err != nil {
		return newMemoryError("QdrantMemory", "Upsert", "failed to upsert point", err)
	}
	return nil
}

// qdrantDescriptor is what QdrantMemory.Save writes: enough to re-bind a
// fresh client to the same remote collection. The vectors and
// payloads themselves already live durably in the Qdrant server, so there
// is nothing else local to persist.
type qdrantDescriptor struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	UseTLS     bool   `json:"use_tls"`
	Collection string `json:"collection"`
}

// Save writes this store's connection descriptor to path. The documents
// themselves are not re-exported here: they already persist durably in the
// remote Qdrant collection, so Save's job is only to record which
// collection a reconstructed QdrantMemory should re-bind to.
func (m *QdrantMemory) Save(path string) error {
	desc := qdrantDescriptor{
		Host:       m.config.Host,
		Port:       m.config.Port,
		UseTLS:     m.config.UseTLS,
		Collection: m.config.Collection,
	}
	if err := SaveSnapshot(path, desc); err != nil {
		return newMemoryError("QdrantMemory", "Save", "failed to save collection descriptor", err)
	}
	return nil
}

// Query embeds text and returns the topK nearest documents.
func (m *QdrantMemory) Query(ctx context.Context, text string, topK int) ([]Document, error) {
	vector, err := m.embed.Embed(ctx, text)
	if err != nil {
		return nil, newMemoryError("QdrantMemory", "Query", "failed to embed query", err)
	}

	points, err := m.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: m.config.Collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, newMemoryError("QdrantMemory", "Query", "failed to query points", err)
	}

	docs := make([]Document, 0, len(points))
	for _, point := range points {
		doc := Document{Score: point.Score, Metadata: map[string]interface{}{}}
		if point.Id != nil && point.Id.PointIdOptions != nil {
			switch id := point.Id.PointIdOptions.(type) {
			case *qdrant.PointId_Uuid:
				doc.ID = id.Uuid
			case *qdrant.PointId_Num:
				doc.ID = fmt.Sprintf("%d", id.Num)
			}
		}
		for key, value := range point.Payload {
			switch v := value.Kind.(type) {
			case *qdrant.Value_StringValue:
				if key == "content" {
					doc.Content = v.StringValue
				} else {
					doc.Metadata[key] = v.StringValue
				}
			case *qdrant.Value_IntegerValue:
				doc.Metadata[key] = v.IntegerValue
			case *qdrant.Value_DoubleValue:
				doc.Metadata[key] = v.DoubleValue
			case *qdrant.Value_BoolValue:
				doc.Metadata[key] = v.BoolValue
			}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
