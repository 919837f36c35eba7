package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/driveaway/driveaway/internal/models"
)

// Integration tests (require running MongoDB)

func productTestCollection(t *testing.T) *MongoProductCollection {
	t.Helper()
	client, err := ConnectMongo()
	if err != nil {
		t.Skipf("failed to create client: %v, skipping integration test", err)
	}
	t.Cleanup(func() { client.Disconnect(context.Background()) })

	collection := client.Database("test_driveaway").Collection(ProductsCollection)
	collection.Drop(context.Background())
	return &MongoProductCollection{Collection: collection}
}

func TestMongoProductCollection_DecrementStock(t *testing.T) {
	products := productTestCollection(t)
	ctx := context.Background()

	created, err := products.InsertProduct(ctx, models.Product{
		Name:     "Helmet",
		Price:    899,
		Category: "safety",
		Stock:    5,
	})
	require.NoError(t, err)

	require.NoError(t, products.DecrementStock(ctx, created.ID, 3))

	found, err := products.FindProductByID(ctx, created.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 2, found.Stock)

	// Taking more than what is left must not drive stock negative.
	assert.ErrorIs(t, products.DecrementStock(ctx, created.ID, 3), ErrUnavailable)

	found, err = products.FindProductByID(ctx, created.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 2, found.Stock)

	// Draining to exactly zero is allowed.
	assert.NoError(t, products.DecrementStock(ctx, created.ID, 2))

	assert.ErrorIs(t, products.DecrementStock(ctx, primitive.NewObjectID(), 1), ErrUnavailable)
}
