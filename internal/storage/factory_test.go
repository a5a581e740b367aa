package storage

import (
	"context"
	"testing"

	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStorageManager_Memory(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Storage.Backend = BackendMemory

	mgr, err := NewStorageManager(context.Background(), common.NewSilentLogger(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, mgr.UserStore())
	assert.NotNil(t, mgr.SessionStore())
}

func TestNewStorageManager_Unknown(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Storage.Backend = "badger"

	_, err := NewStorageManager(context.Background(), common.NewSilentLogger(), cfg)
	assert.Error(t, err)
}
