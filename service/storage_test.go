package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/HansenHomeAI/v0-spaceport-website-sub000/core"
)

func TestMultipartPlan(t *testing.T) {
	minPart := core.S3_MULTIPART_MIN_PART_SIZE

	tests := []struct {
		name string
		size uint64
	}{
		{"single part", minPart - 1},
		{"exact multiple", minPart * 10},
		{"uneven tail", minPart*10 + 1},
		{"at part cap", minPart * core.S3_MULTIPART_MAX_PARTS},
		{"one over part cap", minPart*core.S3_MULTIPART_MAX_PARTS + 1},
		{"far over part cap", minPart*core.S3_MULTIPART_MAX_PARTS*3 + 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			partSize, totalParts := multipartPlan(tt.size)

			assert.LessOrEqual(t, totalParts, core.S3_MULTIPART_MAX_PARTS)
			// every byte of the object lands in some part
			assert.GreaterOrEqual(t, partSize*uint64(totalParts), tt.size)
			// the last part is not empty
			assert.Less(t, partSize*uint64(totalParts-1), tt.size)
		})
	}
}
