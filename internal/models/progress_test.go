package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentProgress_Percentage(t *testing.T) {
	tests := []struct {
		name     string
		progress ContentProgress
		want     float64
		known    bool
	}{
		{
			name:     "half received",
			progress: ContentProgress{Status: StatusReceiving, ReceivedCount: 2, ExpectedCount: 4},
			want:     50,
			known:    true,
		},
		{
			name:     "expected unknown",
			progress: ContentProgress{Status: StatusReceiving, ReceivedCount: 3, ExpectedCount: ExpectedCountUnknown},
			known:    false,
		},
		{
			name:     "done is always 100",
			progress: ContentProgress{Status: StatusDone, ReceivedCount: 4, ExpectedCount: 4},
			want:     100,
			known:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, known := tt.progress.Percentage()
			assert.Equal(t, tt.known, known)
			if known {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestContentProgress_Terminal(t *testing.T) {
	assert.False(t, ContentProgress{Status: StatusReceiving}.Terminal())
	assert.False(t, ContentProgress{Status: StatusReady}.Terminal())
	assert.False(t, ContentProgress{Status: StatusAssembling}.Terminal())
	assert.True(t, ContentProgress{Status: StatusDone}.Terminal())
	assert.True(t, ContentProgress{Status: StatusError}.Terminal())
}
