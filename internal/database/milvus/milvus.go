package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"sentio/internal/config"
	"sentio/internal/rag/schema"
)

// Client wraps the Milvus SDK client together with the collection layout
// used for review chunks.
type Client struct {
	Client client.Client
	Config config.MilvusConfig
}

// NewClient connects to Milvus. Connection failures surface here, at
// construction, never at query time.
func NewClient(ctx context.Context, cfg config.MilvusConfig) (*Client, error) {
	c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Milvus: %w", err)
	}
	return &Client{Client: c, Config: cfg}, nil
}

// Close closes the connection to Milvus.
func (c *Client) Close() {
	if c.Client != nil {
		c.Client.Close()
	}
}

// HealthCheck verifies the Milvus connection is usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.Client == nil {
		return fmt.Errorf("milvus client is nil")
	}
	if _, err := c.Client.ListCollections(ctx); err != nil {
		return fmt.Errorf("milvus health check failed: %w", err)
	}
	return nil
}

// EnsureCollection creates the review-chunk collection and its vector index
// if they do not exist, then loads the collection into memory. The schema is
// fixed: one row per chunk, review metadata stored as scalar fields so that
// queries can filter on them before ranking.
func (c *Client) EnsureCollection(ctx context.Context) error {
	collName := c.Config.Collection

	exists, err := c.Client.HasCollection(ctx, collName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		coll := entity.NewSchema().
			WithName(collName).
			WithDescription("Product review chunks with embeddings and review metadata")

		for _, field := range c.collectionFields() {
			coll = coll.WithField(field)
		}

		if err := c.Client.CreateCollection(ctx, coll, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("failed to create collection %q: %w", collName, err)
		}

		// Cosine metric so that distance = 1 - similarity lands in [0, 2].
		idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 96)
		if err != nil {
			return fmt.Errorf("failed to build index definition: %w", err)
		}
		if err := c.Client.CreateIndex(ctx, collName, schema.FieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("failed to create index on %q: %w", schema.FieldEmbedding, err)
		}
	}

	if err := c.Client.LoadCollection(ctx, collName, false); err != nil {
		return fmt.Errorf("failed to load collection %q: %w", collName, err)
	}
	return nil
}

// DropCollection irreversibly removes the collection and all its contents.
func (c *Client) DropCollection(ctx context.Context) error {
	if err := c.Client.DropCollection(ctx, c.Config.Collection); err != nil {
		return fmt.Errorf("failed to drop collection %q: %w", c.Config.Collection, err)
	}
	return nil
}

func (c *Client) collectionFields() []*entity.Field {
	return []*entity.Field{
		entity.NewField().WithName(schema.FieldID).
			WithDataType(entity.FieldTypeVarChar).WithMaxLength(256).WithIsPrimaryKey(true),
		entity.NewField().WithName(schema.FieldText).
			WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535),
		entity.NewField().WithName(schema.FieldEmbedding).
			WithDataType(entity.FieldTypeFloatVector).WithDim(int64(c.Config.Dim)),
		entity.NewField().WithName(schema.FieldReviewID).
			WithDataType(entity.FieldTypeInt64),
		entity.NewField().WithName(schema.FieldAppName).
			WithDataType(entity.FieldTypeVarChar).WithMaxLength(512),
		entity.NewField().WithName(schema.FieldCategory).
			WithDataType(entity.FieldTypeVarChar).WithMaxLength(256),
		entity.NewField().WithName(schema.FieldRating).
			WithDataType(entity.FieldTypeInt64),
		entity.NewField().WithName(schema.FieldDate).
			WithDataType(entity.FieldTypeVarChar).WithMaxLength(64),
		entity.NewField().WithName(schema.FieldHelpfulCount).
			WithDataType(entity.FieldTypeInt64),
		entity.NewField().WithName(schema.FieldChunkIndex).
			WithDataType(entity.FieldTypeInt64),
		entity.NewField().WithName(schema.FieldTotalChunks).
			WithDataType(entity.FieldTypeInt64),
	}
}
