package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMapTactics(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			name:     "single keyword",
			text:     "victims received a phishing email with a malicious link",
			expected: []string{"Initial Access"},
		},
		{
			name:     "multiple tactics in table order",
			text:     "ransomware was deployed after the initial phishing wave and a c2 beacon was observed",
			expected: []string{"Initial Access", "Execution", "Command and Control"},
		},
		{
			name:     "case insensitive",
			text:     "PHISHING campaign targeting finance",
			expected: []string{"Initial Access"},
		},
		{
			name:     "tactic reported once despite multiple keywords",
			text:     "credential theft via password spraying and token replay",
			expected: []string{"Credential Access"},
		},
		{
			name:     "no keywords",
			text:     "quarterly summary of vendor advisories",
			expected: nil,
		},
		{
			name:     "empty text",
			text:     "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapTactics(tt.text))
		})
	}
}

func TestMapTactics_TableOrderIsIndependentOfTextOrder(t *testing.T) {
	// Impact keyword first in the text, Initial Access keyword last.
	tactics := MapTactics("ddos attacks followed the phishing lures")
	assert.Equal(t, []string{"Initial Access", "Impact"}, tactics)
}

func TestTemporalKey(t *testing.T) {
	// 1970-01-02T03:46:40Z, unix 100000. With a 24h window the bucket floor
	// is 86400.
	ts := time.Unix(100000, 0).UTC()
	assert.Equal(t, "window_86400", TemporalKey(ts, 24))

	// Same window, same key.
	later := ts.Add(3 * time.Hour)
	assert.Equal(t, TemporalKey(ts, 24), TemporalKey(later, 24))

	// Next day falls into the next bucket.
	nextDay := ts.Add(24 * time.Hour)
	assert.Equal(t, "window_172800", TemporalKey(nextDay, 24))

	// Narrower windows split what a 24h window joins.
	assert.NotEqual(t, TemporalKey(ts, 1), TemporalKey(later, 1))
}
