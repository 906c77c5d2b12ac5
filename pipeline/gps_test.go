package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGPSCSV(t *testing.T) {
	csv := `image,lat,lon,alt
DJI_0001.JPG,45.523062,-122.676482,87.2
DJI_0002.JPG,45.523100,-122.676500,88.0
DJI_0003.JPG,45.523151,-122.676533,88.9
`

	records, err := ParseGPSCSV(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "DJI_0001.JPG", records[0].Image)
	assert.InDelta(t, 45.523062, records[0].Lat, 1e-9)
	assert.InDelta(t, -122.676482, records[0].Lon, 1e-9)
	assert.InDelta(t, 87.2, records[0].Altitude, 1e-9)
}

func TestParseGPSCSVNoHeader(t *testing.T) {
	csv := "DJI_0001.JPG,45.5,-122.6,10\nDJI_0002.JPG,45.6,-122.7,11\n"

	records, err := ParseGPSCSV(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestParseGPSCSVAlternateHeader(t *testing.T) {
	csv := "filename,latitude,longitude,altitude\nDJI_0001.JPG,45.5,-122.6,10\n"

	records, err := ParseGPSCSV(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestParseGPSCSVNoAltitude(t *testing.T) {
	records, err := ParseGPSCSV(strings.NewReader("DJI_0001.JPG,45.5,-122.6\n"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Zero(t, records[0].Altitude)
}

func TestParseGPSCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"empty", ""},
		{"header only", "image,lat,lon,alt\n"},
		{"too few columns", "DJI_0001.JPG,45.5\n"},
		{"bad latitude", "DJI_0001.JPG,north,-122.6,10\nDJI_0002.JPG,45.5,-122.6,10\n"},
		{"bad longitude first row", "DJI_0001.JPG,45.5,west,10\nDJI_0002.JPG,45.5,-122.6,10\n"},
		{"bad latitude later row", "DJI_0001.JPG,45.5,-122.6,10\nDJI_0002.JPG,north,-122.6,10\n"},
		{"latitude out of range", "DJI_0001.JPG,95.0,-122.6,10\n"},
		{"longitude out of range", "DJI_0001.JPG,45.5,-190.0,10\n"},
		{"bad altitude", "DJI_0001.JPG,45.5,-122.6,high\n"},
		{"duplicate image", "DJI_0001.JPG,45.5,-122.6,10\nDJI_0001.JPG,45.6,-122.7,11\n"},
		{"empty image name", " ,45.5,-122.6,10\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGPSCSV(strings.NewReader(tt.csv))
			assert.Error(t, err)
		})
	}
}

func TestFormatPositionPriors(t *testing.T) {
	records := []GPSRecord{
		{Image: "a.jpg", Lat: 45.5, Lon: -122.6, Altitude: 10},
		{Image: "b.jpg", Lat: 45.6, Lon: -122.7, Altitude: 11.5},
	}

	out := FormatPositionPriors(records)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "a.jpg 45.50000000 -122.60000000 10.000", lines[0])
	assert.Equal(t, "b.jpg 45.60000000 -122.70000000 11.500", lines[1])
}
