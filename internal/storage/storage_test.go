package storage

import (
	"context"
	"testing"

	"github.com/anis2566/monorepo-new-sub002/internal/config"
	"github.com/anis2566/monorepo-new-sub002/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewObjectStoreDisabled(t *testing.T) {
	store, err := NewObjectStore(context.Background(), config.StorageConfig{Enabled: false}, utils.NewDiscardLogger())
	require.NoError(t, err)
	assert.Nil(t, store)
}

func TestMinioStoreURL(t *testing.T) {
	plain := NewMinioStore(nil, "merit-lists", "localhost:9000", false)
	assert.Equal(t, "http://localhost:9000/merit-lists/exam-1.xlsx", plain.URL("exam-1.xlsx"))

	secure := NewMinioStore(nil, "merit-lists", "s3.example.com", true)
	assert.Equal(t, "https://s3.example.com/merit-lists/a/b.xlsx", secure.URL("a/b.xlsx"))
}
