// Package telemetrygenerator produces synthetic playback telemetry for the
// demo platform: weighted-random viewing sessions across device types,
// quality levels, and US geographies.
package telemetrygenerator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

var (
	eventTypes   = []string{"start", "pause", "resume", "stop", "complete"}
	eventWeights = []float64{0.30, 0.15, 0.15, 0.25, 0.15}

	deviceTypes   = []string{"mobile", "web", "tv", "tablet"}
	deviceWeights = []float64{0.35, 0.30, 0.25, 0.10}

	qualityLevels  = []string{"SD", "HD", "4K"}
	qualityWeights = []float64{0.20, 0.50, 0.30}

	titleTypes   = []string{"movie", "series", "documentary"}
	titleWeights = []float64{0.60, 0.30, 0.10}

	deviceOSes      = []string{"iOS", "Android", "Windows", "macOS", "Linux", "tvOS", "Roku"}
	connectionTypes = []string{"wifi", "mobile", "fiber", "cable", "dsl", "satellite"}
	isps            = []string{"Comcast", "AT&T", "Verizon", "Spectrum", "Cox", "CenturyLink"}

	usStates = []string{"CA", "TX", "FL", "NY", "IL", "PA", "OH", "GA", "NC", "MI"}
	cities   = map[string][]string{
		"CA": {"Los Angeles", "San Francisco", "San Diego"},
		"TX": {"Houston", "Dallas", "Austin"},
		"FL": {"Miami", "Orlando", "Tampa"},
		"NY": {"New York", "Buffalo", "Albany"},
	}
)

// Event is one synthetic playback telemetry record. The fan-out path treats
// these as opaque JSON; the schema exists for the generator and for the
// downstream analytics tables.
type Event struct {
	EventID                  string  `json:"event_id"`
	EventType                string  `json:"event_type"`
	EventTimestamp           string  `json:"event_timestamp"`
	CustomerID               string  `json:"customer_id"`
	TitleID                  string  `json:"title_id"`
	SessionID                string  `json:"session_id"`
	DeviceID                 string  `json:"device_id"`
	TitleType                string  `json:"title_type"`
	DeviceType               string  `json:"device_type"`
	DeviceOS                 string  `json:"device_os"`
	AppVersion               string  `json:"app_version"`
	Quality                  string  `json:"quality"`
	BandwidthMbps            float64 `json:"bandwidth_mbps"`
	BufferingEvents          int     `json:"buffering_events"`
	BufferingDurationSeconds float64 `json:"buffering_duration_seconds"`
	ErrorCount               int     `json:"error_count"`
	WatchDurationSeconds     int     `json:"watch_duration_seconds"`
	PositionSeconds          int     `json:"position_seconds"`
	CompletionPercentage     float64 `json:"completion_percentage"`
	ISP                      string  `json:"isp"`
	ConnectionType           string  `json:"connection_type"`
	Country                  string  `json:"country"`
	State                    string  `json:"state"`
	City                     string  `json:"city"`
}

// Generator produces synthetic telemetry events.
type Generator struct {
	rand *rand.Rand
	now  func() time.Time
}

// New creates a Generator seeded from the current time.
func New() *Generator {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed creates a deterministic Generator, mostly for tests.
func NewWithSeed(seed int64) *Generator {
	return &Generator{
		rand: rand.New(rand.NewSource(seed)),
		now:  time.Now,
	}
}

// Generate produces a single telemetry event.
func (g *Generator) Generate() Event {
	state := usStates[g.rand.Intn(len(usStates))]
	cc := cities[state]
	city := "Unknown"
	if len(cc) > 0 {
		city = cc[g.rand.Intn(len(cc))]
	}

	return Event{
		EventID:                  uuid.NewString(),
		EventType:                g.weighted(eventTypes, eventWeights),
		EventTimestamp:           g.now().UTC().Format(time.RFC3339),
		CustomerID:               fmt.Sprintf("cust_%06d", 1+g.rand.Intn(100000)),
		TitleID:                  fmt.Sprintf("title_%05d", 1+g.rand.Intn(10000)),
		SessionID:                uuid.NewString(),
		DeviceID:                 uuid.NewString(),
		TitleType:                g.weighted(titleTypes, titleWeights),
		DeviceType:               g.weighted(deviceTypes, deviceWeights),
		DeviceOS:                 deviceOSes[g.rand.Intn(len(deviceOSes))],
		AppVersion:               fmt.Sprintf("%d.%d.%d", 1+g.rand.Intn(5), g.rand.Intn(10), g.rand.Intn(100)),
		Quality:                  g.weighted(qualityLevels, qualityWeights),
		BandwidthMbps:            round2(5.0 + g.rand.Float64()*95.0),
		BufferingEvents:          g.rand.Intn(6),
		BufferingDurationSeconds: round2(g.rand.Float64() * 30.0),
		ErrorCount:               g.rand.Intn(3),
		WatchDurationSeconds:     g.rand.Intn(7201),
		PositionSeconds:          g.rand.Intn(7201),
		CompletionPercentage:     round2(g.rand.Float64() * 100.0),
		ISP:                      isps[g.rand.Intn(len(isps))],
		ConnectionType:           connectionTypes[g.rand.Intn(len(connectionTypes))],
		Country:                  "US",
		State:                    state,
		City:                     city,
	}
}

// GenerateBatch produces n telemetry events.
func (g *Generator) GenerateBatch(n int) []Event {
	events := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, g.Generate())
	}
	return events
}

func (g *Generator) weighted(choices []string, weights []float64) string {
	var total float64
	for _, w := range weights {
		total += w
	}
	target := g.rand.Float64() * total
	for i, w := range weights {
		target -= w
		if target < 0 {
			return choices[i]
		}
	}
	return choices[len(choices)-1]
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
