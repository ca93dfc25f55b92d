package milvus

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/tunogya/salesfactor/pkg/model"
)

const (
	// DefaultCollectionName is the default collection of seasonal profiles
	DefaultCollectionName = "seasonal_profiles"

	// VectorField holds the profile itself
	VectorField = "profile"
)

// Profile kinds
const (
	KindProduct   = "product"
	KindDayOfYear = "dayofyear"
)

// CollectionConfig holds configuration for creating a collection
type CollectionConfig struct {
	Name      string `yaml:"name" split_words:"true"`
	Dimension int    `yaml:"dimension" split_words:"true"`
	Shards    int    `yaml:"shards" split_words:"true"`
}

// DefaultCollectionConfig returns default collection configuration
func DefaultCollectionConfig() CollectionConfig {
	return CollectionConfig{
		Name:      DefaultCollectionName,
		Dimension: model.CurveLen,
		Shards:    2,
	}
}

// CreateCollection creates the seasonal profile collection if missing
func (c *Client) CreateCollection(ctx context.Context, cfg CollectionConfig) error {
	exists, err := c.HasCollection(ctx, cfg.Name)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	schema := &entity.Schema{
		CollectionName: cfg.Name,
		Description:    "Day-of-year seasonal profiles for similarity search",
		Fields: []*entity.Field{
			{
				Name:       "profile_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "160",
				},
			},
			{
				Name:     VectorField,
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", cfg.Dimension),
				},
			},
			{
				Name:     "run_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "product",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "kind",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "16",
				},
			},
		},
	}

	if err := c.conn.CreateCollection(ctx, schema, int32(cfg.Shards)); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// ProfileData is one indexed seasonal profile
type ProfileData struct {
	ProfileID string
	Vector    []float32
	RunID     string
	Product   string // empty for the day-of-year curve
	Kind      string
}

// ProfileID identifies a profile within a run
func ProfileID(runID, kind, product string) string {
	if product == "" {
		return runID + ":" + kind
	}
	return runID + ":" + kind + ":" + product
}

// NewProfileData builds the indexed form of a curve
func NewProfileData(runID, kind, product string, curve model.SeasonalCurve) *ProfileData {
	return &ProfileData{
		ProfileID: ProfileID(runID, kind, product),
		Vector:    curve.Float32(),
		RunID:     runID,
		Product:   product,
		Kind:      kind,
	}
}

// Insert inserts a single profile
func (c *Client) Insert(ctx context.Context, collectionName string, data *ProfileData) error {
	return c.InsertBatch(ctx, collectionName, []*ProfileData{data})
}

// InsertBatch inserts multiple profiles
func (c *Client) InsertBatch(ctx context.Context, collectionName string, dataList []*ProfileData) error {
	if len(dataList) == 0 {
		return nil
	}

	columns, err := profileColumns(dataList)
	if err != nil {
		return err
	}

	if _, err := c.conn.Insert(ctx, collectionName, "", columns...); err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	return nil
}

// profileColumns lays profiles out column-wise; all vectors must share a
// dimension
func profileColumns(dataList []*ProfileData) ([]entity.Column, error) {
	dim := len(dataList[0].Vector)
	ids := make([]string, len(dataList))
	vectors := make([][]float32, len(dataList))
	runIDs := make([]string, len(dataList))
	products := make([]string, len(dataList))
	kinds := make([]string, len(dataList))

	for i, d := range dataList {
		if len(d.Vector) != dim {
			return nil, fmt.Errorf("profile %s has dimension %d, want %d", d.ProfileID, len(d.Vector), dim)
		}
		ids[i] = d.ProfileID
		vectors[i] = d.Vector
		runIDs[i] = d.RunID
		products[i] = d.Product
		kinds[i] = d.Kind
	}

	return []entity.Column{
		entity.NewColumnVarChar("profile_id", ids),
		entity.NewColumnFloatVector(VectorField, dim, vectors),
		entity.NewColumnVarChar("run_id", runIDs),
		entity.NewColumnVarChar("product", products),
		entity.NewColumnVarChar("kind", kinds),
	}, nil
}

// SearchResult represents a single search hit
type SearchResult struct {
	ProfileID string
	Score     float32
	RunID     string
	Product   string
	Kind      string
}

var outputFields = []string{"profile_id", "run_id", "product", "kind"}

// Search performs a TopK cosine similarity search
func (c *Client) Search(ctx context.Context, collectionName string, vector []float32, filter string, topK int) ([]SearchResult, error) {
	vectors := []entity.Vector{entity.FloatVector(vector)}

	sp, err := entity.NewIndexIvfFlatSearchParam(8) // nprobe
	if err != nil {
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	results, err := c.conn.Search(
		ctx,
		collectionName,
		nil,
		filter,
		outputFields,
		vectors,
		VectorField,
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	if len(results) == 0 {
		return nil, nil
	}

	return decodeHits([]entity.Column(results[0].Fields), results[0].Scores, results[0].ResultCount), nil
}

// decodeHits turns result columns into one SearchResult per hit
func decodeHits(columns []entity.Column, scores []float32, count int) []SearchResult {
	hits := make([]SearchResult, count)
	for i := range hits {
		if i < len(scores) {
			hits[i].Score = scores[i]
		}
	}

	for _, field := range columns {
		col, ok := field.(*entity.ColumnVarChar)
		if !ok {
			continue
		}
		for i := range hits {
			val, err := col.ValueByIdx(i)
			if err != nil {
				continue
			}
			switch field.Name() {
			case "profile_id":
				hits[i].ProfileID = val
			case "run_id":
				hits[i].RunID = val
			case "product":
				hits[i].Product = val
			case "kind":
				hits[i].Kind = val
			}
		}
	}

	return hits
}

// Filter builds a boolean expression restricting a search to one run
// and kind. Empty arguments are left out.
func Filter(runID, kind string) string {
	var parts []string
	if runID != "" {
		parts = append(parts, fmt.Sprintf("run_id == %q", runID))
	}
	if kind != "" {
		parts = append(parts, fmt.Sprintf("kind == %q", kind))
	}
	return strings.Join(parts, " && ")
}

// Flush flushes the collection to ensure data persistence
func (c *Client) Flush(ctx context.Context, collectionName string) error {
	return c.conn.Flush(ctx, collectionName, false)
}
