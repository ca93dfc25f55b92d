// Package milvus indexes 366-entry seasonal profiles so products with a
// similar shape across the year can be found by cosine similarity.
package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// Profiles per run are few, so the index keeps a handful of lists
const ivfLists = 16

// Config holds Milvus connection configuration
type Config struct {
	Address  string `yaml:"address" split_words:"true"` // e.g. "localhost:19530"
	Username string `yaml:"username" split_words:"true"`
	Password string `yaml:"password" split_words:"true"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{Address: "localhost:19530"}
}

// Client wraps a Milvus connection
type Client struct {
	conn client.Client
}

// NewClient connects to cfg.Address. Credentials are sent only when
// both are set.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	conf := client.Config{Address: cfg.Address}
	if cfg.Username != "" && cfg.Password != "" {
		conf.Username = cfg.Username
		conf.Password = cfg.Password
	}

	conn, err := client.NewClient(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus at %s: %w", cfg.Address, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) HasCollection(ctx context.Context, name string) (bool, error) {
	return c.conn.HasCollection(ctx, name)
}

// CreateIndex builds a COSINE IVF_FLAT index on the profile field
func (c *Client) CreateIndex(ctx context.Context, collectionName, fieldName string) error {
	idx, err := entity.NewIndexIvfFlat(entity.COSINE, ivfLists)
	if err != nil {
		return fmt.Errorf("failed to build index params: %w", err)
	}
	if err := c.conn.CreateIndex(ctx, collectionName, fieldName, idx, false); err != nil {
		return fmt.Errorf("failed to create index on %s.%s: %w", collectionName, fieldName, err)
	}
	return nil
}

// LoadCollection loads a collection into memory for search
func (c *Client) LoadCollection(ctx context.Context, collectionName string) error {
	return c.conn.LoadCollection(ctx, collectionName, false)
}

// DeleteRun removes every profile of a run, so indexing the same run
// again replaces its profiles instead of duplicating them
func (c *Client) DeleteRun(ctx context.Context, collectionName, runID string) error {
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := c.conn.Delete(ctx, collectionName, "", Filter(runID, "")); err != nil {
		return fmt.Errorf("failed to delete profiles of run %s: %w", runID, err)
	}
	return nil
}
