package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// GPSRecord is one row of a flight-log CSV: the image it belongs to and
// the capture position in WGS84.
type GPSRecord struct {
	Image    string
	Lat      float64
	Lon      float64
	Altitude float64
}

var ErrNoGPSRecords = errors.New("gps csv contains no records")

// ParseGPSCSV reads a drone flight-log CSV of the form
// image,lat,lon[,alt]. A first row is skipped as a header only when it
// names its columns (first field "image", or both coordinate fields
// non-numeric). Rows with malformed coordinates fail the whole parse; a
// half-ingested flight log would silently skew the reconstruction priors.
func ParseGPSCSV(r io.Reader) ([]GPSRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records []GPSRecord
	seen := make(map[string]bool)
	line := 0

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++

		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}

		if len(row) < 3 {
			return nil, fmt.Errorf("gps csv line %d: expected at least 3 columns, got %d", line, len(row))
		}

		if line == 1 && isHeaderRow(row) {
			continue
		}

		rec, err := parseGPSRow(row)
		if err != nil {
			return nil, fmt.Errorf("gps csv line %d: %w", line, err)
		}

		if seen[rec.Image] {
			return nil, fmt.Errorf("gps csv line %d: duplicate image %q", line, rec.Image)
		}
		seen[rec.Image] = true

		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, ErrNoGPSRecords
	}

	return records, nil
}

// isHeaderRow reports whether the first row names its columns instead of
// carrying data. A single corrupt latitude in a real first row must not
// pass as a header, so one non-numeric coordinate is not enough.
func isHeaderRow(row []string) bool {
	if strings.EqualFold(strings.TrimSpace(row[0]), "image") {
		return true
	}

	_, latErr := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
	_, lonErr := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)

	return latErr != nil && lonErr != nil
}

func parseGPSRow(row []string) (GPSRecord, error) {
	image := strings.TrimSpace(row[0])
	if image == "" {
		return GPSRecord{}, errors.New("empty image name")
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
	if err != nil {
		return GPSRecord{}, fmt.Errorf("invalid latitude %q", row[1])
	}
	if lat < -90 || lat > 90 {
		return GPSRecord{}, fmt.Errorf("latitude %v out of range", lat)
	}

	lon, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
	if err != nil {
		return GPSRecord{}, fmt.Errorf("invalid longitude %q", row[2])
	}
	if lon < -180 || lon > 180 {
		return GPSRecord{}, fmt.Errorf("longitude %v out of range", lon)
	}

	var alt float64
	if len(row) > 3 && strings.TrimSpace(row[3]) != "" {
		alt, err = strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
		if err != nil {
			return GPSRecord{}, fmt.Errorf("invalid altitude %q", row[3])
		}
	}

	return GPSRecord{
		Image:    image,
		Lat:      lat,
		Lon:      lon,
		Altitude: alt,
	}, nil
}

// FormatPositionPriors renders records in the text format COLMAP accepts
// for per-image position priors: one "name lat lon alt" row per image.
func FormatPositionPriors(records []GPSRecord) string {
	var b strings.Builder

	for _, rec := range records {
		fmt.Fprintf(&b, "%s %.8f %.8f %.3f\n", rec.Image, rec.Lat, rec.Lon, rec.Altitude)
	}

	return b.String()
}
