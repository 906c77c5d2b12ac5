package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKeyFromURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "bare key", raw: "projects/1/uploads/abc/photos.zip", want: "projects/1/uploads/abc/photos.zip"},
		{name: "s3 url", raw: "s3://spaceport/projects/1/uploads/abc/photos.zip", want: "projects/1/uploads/abc/photos.zip"},
		{name: "wrong bucket", raw: "s3://other/projects/1/photos.zip", wantErr: true},
		{name: "no key", raw: "s3://spaceport", wantErr: true},
		{name: "bucket only with slash", raw: "s3://spaceport/", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := objectKeyFromURL("spaceport", tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, key)
		})
	}
}
