package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsLockError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"deadlock", errors.New("Error 1213: Deadlock found when trying to get lock"), true},
		{"lock wait timeout", errors.New("Error 1205: Lock wait timeout exceeded"), true},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"too many connections", errors.New("Error 1040: Too many connections"), true},
		{"not found", errors.New("record not found"), false},
		{"syntax", errors.New("Error 1064: syntax error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isLockError(tt.err))
		})
	}
}
