package telemetrygenerator

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/tj/assert"
)

func TestGenerate(t *testing.T) {
	g := NewWithSeed(1)
	event := g.Generate()

	assert.NotEmpty(t, event.EventID)
	assert.NotEmpty(t, event.SessionID)
	assert.NotEmpty(t, event.DeviceID)
	assert.Contains(t, eventTypes, event.EventType)
	assert.Contains(t, deviceTypes, event.DeviceType)
	assert.Contains(t, qualityLevels, event.Quality)
	assert.Contains(t, titleTypes, event.TitleType)
	assert.Contains(t, usStates, event.State)
	assert.Equal(t, "US", event.Country)
	assert.Regexp(t, `^cust_\d{6}$`, event.CustomerID)
	assert.Regexp(t, `^title_\d{5}$`, event.TitleID)

	_, err := time.Parse(time.RFC3339, event.EventTimestamp)
	assert.NoError(t, err)

	assert.True(t, event.BandwidthMbps >= 5.0 && event.BandwidthMbps <= 100.0)
	assert.True(t, event.CompletionPercentage >= 0 && event.CompletionPercentage <= 100.0)
	assert.True(t, event.BufferingEvents >= 0 && event.BufferingEvents <= 5)
}

func TestGenerateBatch(t *testing.T) {
	g := NewWithSeed(42)
	events := g.GenerateBatch(250)
	assert.Len(t, events, 250)

	// event ids are unique
	seen := map[string]bool{}
	for _, event := range events {
		assert.False(t, seen[event.EventID])
		seen[event.EventID] = true
	}
}

func TestEventIsValidJSON(t *testing.T) {
	g := NewWithSeed(7)
	data, err := json.Marshal(g.Generate())
	assert.NoError(t, err)
	assert.True(t, json.Valid(data))

	// snake_case wire fields
	var fields map[string]interface{}
	err = json.Unmarshal(data, &fields)
	assert.NoError(t, err)
	assert.Contains(t, fields, "event_id")
	assert.Contains(t, fields, "event_type")
	assert.Contains(t, fields, "customer_id")
	assert.Contains(t, fields, "bandwidth_mbps")
}

func TestWeightedDistribution(t *testing.T) {
	g := NewWithSeed(99)
	counts := map[string]int{}
	for i := 0; i < 10000; i++ {
		counts[g.weighted(eventTypes, eventWeights)]++
	}
	// every type shows up, and "start" (0.30) dominates "pause" (0.15)
	for _, et := range eventTypes {
		assert.True(t, counts[et] > 0)
	}
	assert.True(t, counts["start"] > counts["pause"])
}
