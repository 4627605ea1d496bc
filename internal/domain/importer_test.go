package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImporter_Due(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name string
		imp  Importer
		want bool
	}{
		{"enabled never paused", Importer{Enabled: true}, true},
		{"enabled pause elapsed", Importer{Enabled: true, PausedTill: &past}, true},
		{"enabled still paused", Importer{Enabled: true, PausedTill: &future}, false},
		{"pause ends now", Importer{Enabled: true, PausedTill: &now}, false},
		{"disabled", Importer{Enabled: false}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.imp.Due(now))
		})
	}
}

func TestImporter_RecordFailure_Pauses(t *testing.T) {
	now := time.Now()
	imp := Importer{Enabled: true, Errors: 3}

	imp.RecordFailure(errors.New("boom"), now, 13, 120*time.Minute)

	assert.Equal(t, 4, imp.Errors)
	assert.True(t, imp.Enabled)
	require.NotNil(t, imp.LastError)
	assert.Equal(t, "boom", *imp.LastError)
	require.NotNil(t, imp.PausedTill)
	assert.Equal(t, now.Add(120*time.Minute), *imp.PausedTill)
}

func TestImporter_RecordFailure_DisablesAtMax(t *testing.T) {
	now := time.Now()
	imp := Importer{Enabled: true, Errors: 12}

	imp.RecordFailure(errors.New("boom"), now, 13, time.Hour)

	assert.Equal(t, 13, imp.Errors)
	assert.False(t, imp.Enabled)
	assert.Nil(t, imp.PausedTill)
}

func TestImporter_RecordSuccess(t *testing.T) {
	msg := "old"
	imp := Importer{Enabled: true, Errors: 5, LastError: &msg}

	imp.RecordSuccess()

	assert.Zero(t, imp.Errors)
	assert.Equal(t, "old", *imp.LastError)
}
