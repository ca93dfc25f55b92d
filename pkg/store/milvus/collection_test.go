package milvus

import (
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunogya/salesfactor/pkg/model"
)

func curveOf(v float64) model.SeasonalCurve {
	days := make([]float64, model.CurveLen-1)
	for i := range days {
		days[i] = v
	}
	c, _ := model.NewSeasonalCurve(days)
	return c
}

func TestProfileID(t *testing.T) {
	assert.Equal(t, "r1:dayofyear", ProfileID("r1", KindDayOfYear, ""))
	assert.Equal(t, "r1:product:Kaggle", ProfileID("r1", KindProduct, "Kaggle"))
}

func TestNewProfileData(t *testing.T) {
	d := NewProfileData("r1", KindProduct, "Kaggle", curveOf(0.25))
	assert.Equal(t, "r1:product:Kaggle", d.ProfileID)
	assert.Len(t, d.Vector, model.CurveLen)
	assert.Equal(t, float32(0.25), d.Vector[0])
	assert.Equal(t, DefaultCollectionConfig().Dimension, len(d.Vector))
}

func TestProfileColumns(t *testing.T) {
	cols, err := profileColumns([]*ProfileData{
		NewProfileData("r1", KindProduct, "a", curveOf(1)),
		NewProfileData("r1", KindProduct, "b", curveOf(2)),
	})
	require.NoError(t, err)
	require.Len(t, cols, 5)
	assert.Equal(t, VectorField, cols[1].Name())
	assert.Equal(t, 2, cols[0].Len())

	short := &ProfileData{ProfileID: "x", Vector: []float32{1}}
	_, err = profileColumns([]*ProfileData{NewProfileData("r1", KindProduct, "a", curveOf(1)), short})
	assert.Error(t, err)
}

func TestDecodeHits(t *testing.T) {
	cols := []entity.Column{
		entity.NewColumnVarChar("profile_id", []string{"r1:product:a", "r1:product:b"}),
		entity.NewColumnVarChar("run_id", []string{"r1", "r1"}),
		entity.NewColumnVarChar("product", []string{"a", "b"}),
		entity.NewColumnVarChar("kind", []string{KindProduct, KindProduct}),
	}
	hits := decodeHits(cols, []float32{0.99, 0.5}, 2)
	require.Len(t, hits, 2)
	assert.Equal(t, SearchResult{ProfileID: "r1:product:a", Score: 0.99, RunID: "r1", Product: "a", Kind: KindProduct}, hits[0])
	assert.Equal(t, "b", hits[1].Product)
}

func TestFilter(t *testing.T) {
	assert.Equal(t, `run_id == "r1" && kind == "product"`, Filter("r1", KindProduct))
	assert.Equal(t, `kind == "product"`, Filter("", KindProduct))
	assert.Empty(t, Filter("", ""))
}
