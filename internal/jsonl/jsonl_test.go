package jsonl

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctiforge/internal/domain/models"
)

func TestReadEvents(t *testing.T) {
	input := `{"event_id":"evt-a","source":"feed-1","fetched_at":"2024-01-10T09:00:00Z","clean_text":"phishing report"}

{"event_id":"evt-b","fetched_at":"2024-01-11T09:00:00Z","clean_text":"follow-up"}
`

	events, err := ReadEvents(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "evt-a", events[0].EventID)
	assert.Equal(t, "feed-1", events[0].Source)
	assert.Equal(t, time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC), events[0].FetchedAt)
	assert.Equal(t, "phishing report", events[0].CleanText)
	assert.Equal(t, "evt-b", events[1].EventID)
}

func TestReadEvents_MalformedLineReportsLineNumber(t *testing.T) {
	input := `{"event_id":"evt-a","fetched_at":"2024-01-10T09:00:00Z"}
{not json}
`

	_, err := ReadEvents(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadEvents_MissingEventID(t *testing.T) {
	_, err := ReadEvents(strings.NewReader(`{"clean_text":"no id"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event_id")
}

func TestReadIOCs_NormalizedValueFallsBackToValue(t *testing.T) {
	input := `{"ioc_type":"domain","value":"Evil.Example.COM","normalized_value":"evil.example.com","source_event_id":"evt-a"}
{"ioc_type":"ipv4","value":"203.0.113.7","source_event_id":"evt-b"}
`

	iocs, err := ReadIOCs(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, iocs, 2)

	assert.Equal(t, "evil.example.com", iocs[0].NormalizedValue)
	assert.Equal(t, "203.0.113.7", iocs[1].NormalizedValue)
}

func TestReadIOCs_MissingSourceEventID(t *testing.T) {
	_, err := ReadIOCs(strings.NewReader(`{"ioc_type":"domain","value":"x.example.com"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source_event_id")
}

func TestReadAnalyses(t *testing.T) {
	input := `{"event_id":"evt-a","incident_type":"ransomware","incident_confidence":0.9,"sector":"finance","sector_confidence":0.5,"cluster_id":7}
{"event_id":"evt-b","incident_type":"phishing","incident_confidence":0.4,"cluster_id":null}
`

	analyses, err := ReadAnalyses(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, analyses, 2)

	require.NotNil(t, analyses[0].ClusterID)
	assert.Equal(t, 7, *analyses[0].ClusterID)
	assert.Nil(t, analyses[1].ClusterID)
}

func TestReadFile_MissingFileYieldsEmptySet(t *testing.T) {
	events, err := ReadEventsFile(filepath.Join(t.TempDir(), "absent.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, events)

	iocs, err := ReadIOCsFile(filepath.Join(t.TempDir(), "absent.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, iocs)
}

func TestWriteFile_RoundTripCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "nested", "events.jsonl")
	events := []models.Event{
		{EventID: "evt-a", FetchedAt: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC), CleanText: "first"},
		{EventID: "evt-b", FetchedAt: time.Date(2024, 1, 11, 9, 0, 0, 0, time.UTC), CleanText: "second"},
	}

	count, err := WriteFile(path, events)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := ReadEventsFile(path)
	require.NoError(t, err)
	assert.Equal(t, events, got)
}

func TestCountIOCsByEvent(t *testing.T) {
	iocs := []models.IOC{
		{SourceEventID: "evt-a"},
		{SourceEventID: "evt-a"},
		{SourceEventID: "evt-b"},
		{SourceEventID: ""},
	}

	counts := CountIOCsByEvent(iocs)
	assert.Equal(t, map[string]int{"evt-a": 2, "evt-b": 1}, counts)
}
