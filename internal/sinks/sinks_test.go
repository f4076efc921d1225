package sinks

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/chrissnell/pvforecast/internal/forecast"
	"github.com/chrissnell/pvforecast/internal/weather"
	"github.com/chrissnell/pvforecast/pkg/solar"
)

var runTime = time.Date(2026, time.May, 4, 10, 15, 30, 0, time.UTC)

// testForecast returns an hourly forecast of n instants starting at midnight
// of runTime, with theoretical irradiance equal to 100 times the hour.
func testForecast(n int) *forecast.Forecast {
	start := solar.MidnightOf(runTime)
	fc := &forecast.Forecast{
		GeneratedAt: runTime,
		Start:       start,
		Step:        time.Hour,
		Grid:        solar.TimeGrid{Start: start, Step: time.Hour, Instants: make([]solar.Instant, n)},
		Irradiance:  make([]solar.Irradiance, n),
		Clouds:      make([]weather.Sample, n),
	}
	for i := 0; i < n; i++ {
		fc.Grid.Instants[i] = solar.Instant{Time: start.Add(time.Duration(i) * time.Hour)}
		v := float64(i) * 100
		fc.Irradiance[i] = solar.Irradiance{Theoretical: v, Attenuated: v / 2, Smoothed: v / 4}
		fc.Clouds[i] = weather.Sample{CloudTotal: 50, CloudLow: 10, CloudMid: 20, CloudHigh: 30, Temperature: 12.5}
	}
	return fc
}

type fakeToken struct {
	err      error
	complete bool
}

func (t *fakeToken) Wait() bool                     { return t.complete }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.complete }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type fakePublisher struct {
	payloads [][]byte
	topics   []string
	qos      []byte
	token    *fakeToken
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.topics = append(p.topics, topic)
	p.qos = append(p.qos, qos)
	p.payloads = append(p.payloads, payload.([]byte))
	return p.token
}

func TestTelemetryForPublishesOnlyFutureRecords(t *testing.T) {
	fc := testForecast(24)

	msgs := TelemetryFor(fc, runTime)
	// 10:15:30 leaves 11:00 through 23:00.
	if len(msgs) != 13 {
		t.Fatalf("got %d messages, expected 13", len(msgs))
	}
	first := msgs[0]
	if want := fc.Start.Add(11 * time.Hour).UnixMilli(); first.TS != want {
		t.Errorf("first ts = %d, expected %d", first.TS, want)
	}
	if first.Values.PVTheoretical != 1100 || first.Values.PVAttenuated != 550 || first.Values.PVForecast != 275 {
		t.Errorf("values = %+v", first.Values)
	}
	if first.Values.CloudHigh != 30 || first.Values.Temperature != 12.5 {
		t.Errorf("cloud values = %+v", first.Values)
	}
}

func TestTelemetryJSONKeys(t *testing.T) {
	data, err := json.Marshal(TelemetryFor(testForecast(24), runTime)[0])
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if _, ok := decoded["ts"]; !ok {
		t.Error("missing ts key")
	}
	values, ok := decoded["values"].(map[string]interface{})
	if !ok {
		t.Fatalf("values = %v", decoded["values"])
	}
	for _, key := range []string{"pv_forecast", "pv_theoretical", "pv_attenuated", "cloud_total",
		"cloud_low", "cloud_mid", "cloud_high", "temperature"} {
		if _, ok := values[key]; !ok {
			t.Errorf("missing values.%s", key)
		}
	}
}

func TestMQTTSinkPublish(t *testing.T) {
	pub := &fakePublisher{token: &fakeToken{complete: true}}
	s := newMQTTSink(pub, "v1/devices/me/telemetry", 1, zap.NewNop().Sugar())
	s.now = func() time.Time { return runTime }

	if err := s.Publish(context.Background(), testForecast(24)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(pub.payloads) != 13 {
		t.Fatalf("published %d messages, expected 13", len(pub.payloads))
	}
	if pub.topics[0] != "v1/devices/me/telemetry" || pub.qos[0] != 1 {
		t.Errorf("topic %q qos %d", pub.topics[0], pub.qos[0])
	}
	var msg Telemetry
	if err := json.Unmarshal(pub.payloads[12], &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Values.PVTheoretical != 2300 {
		t.Errorf("last message theoretical = %v", msg.Values.PVTheoretical)
	}
}

func TestMQTTSinkPublishErrors(t *testing.T) {
	tests := []struct {
		name  string
		token *fakeToken
	}{
		{"timeout", &fakeToken{complete: false}},
		{"broker error", &fakeToken{complete: true, err: errors.New("not authorized")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{token: tt.token}
			s := newMQTTSink(pub, "t", 0, zap.NewNop().Sugar())
			s.now = func() time.Time { return runTime }
			if err := s.Publish(context.Background(), testForecast(24)); err == nil {
				t.Error("expected an error")
			}
			if len(pub.payloads) != 1 {
				t.Errorf("published %d messages after a failure, expected 1", len(pub.payloads))
			}
		})
	}
}

func TestCSVSinkWritesLog(t *testing.T) {
	dir := t.TempDir()
	s, err := NewCSVSink(dir, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("NewCSVSink: %v", err)
	}
	defer s.Close()

	fc := testForecast(3)
	if err := s.Publish(context.Background(), fc); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	path := s.FileName(fc)
	if !strings.HasSuffix(path, "log-2026-05-04-10-15-30.csv") {
		t.Errorf("file name = %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, expected header plus 3", len(rows))
	}
	if strings.Join(rows[0], ";") != "Timestamp;Theory_Irradiation;Attenuated_Irradiation;Forecast_Irradiation;Cloud_Low;Cloud_Mid;Cloud_High;Cloud_Tot;Temperature" {
		t.Errorf("header = %v", rows[0])
	}
	want := []string{"2026-05-04 02:00:00", "200.0000", "100.0000", "50.0000", "10.0000", "20.0000", "30.0000", "50.0000", "12.5000"}
	for i, v := range want {
		if rows[3][i] != v {
			t.Errorf("row 3 column %d = %q, expected %q", i, rows[3][i], v)
		}
	}
}

func TestMemorySink(t *testing.T) {
	m := NewMemorySink()
	if _, ok := m.Latest(); ok {
		t.Error("empty sink reported a forecast")
	}

	fc := testForecast(2)
	if err := m.Publish(context.Background(), fc); err != nil {
		t.Fatal(err)
	}
	got, ok := m.Latest()
	if !ok || got != fc {
		t.Errorf("Latest() = %p, %v", got, ok)
	}
}
