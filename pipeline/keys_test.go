package pipeline

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKeys(t *testing.T) {
	id, err := uuid.Parse("3b241101-e2bb-4255-8caf-4136c566a962")
	require.NoError(t, err)

	assert.Equal(t, "projects/7/uploads/u1/photos.zip", UploadKey(7, "u1", "photos.zip"))
	assert.Equal(t, "jobs/3b241101-e2bb-4255-8caf-4136c566a962/", JobPrefix(id))
	assert.Equal(t, "jobs/3b241101-e2bb-4255-8caf-4136c566a962/sfm/sparse.zip", JobStageKey(id, "sfm", "sparse.zip"))
}
