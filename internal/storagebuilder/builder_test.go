package storagebuilder_test

import (
	"testing"

	memorystorage "github.com/lomoval/sharedcal/internal/storage/memory"
	"github.com/lomoval/sharedcal/internal/storagebuilder"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	s, err := storagebuilder.New(storagebuilder.Config{StorageType: storagebuilder.TypeMemory})
	require.NoError(t, err)
	require.IsType(t, &memorystorage.Storage{}, s)

	_, err = storagebuilder.New(storagebuilder.Config{StorageType: "files"})
	require.Error(t, err)
}
