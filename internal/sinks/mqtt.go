package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/chrissnell/pvforecast/internal/forecast"
	"github.com/chrissnell/pvforecast/pkg/config"
)

const (
	mqttPublishTimeout = 5 * time.Second
	mqttConnectPoll    = 200 * time.Millisecond
)

// Telemetry is one ThingsBoard timeseries message.
type Telemetry struct {
	TS     int64           `json:"ts"`
	Values TelemetryValues `json:"values"`
}

// TelemetryValues are the keys published for each forecast instant.
type TelemetryValues struct {
	PVForecast    float64 `json:"pv_forecast"`
	PVTheoretical float64 `json:"pv_theoretical"`
	PVAttenuated  float64 `json:"pv_attenuated"`
	CloudTotal    float64 `json:"cloud_total"`
	CloudLow      float64 `json:"cloud_low"`
	CloudMid      float64 `json:"cloud_mid"`
	CloudHigh     float64 `json:"cloud_high"`
	Temperature   float64 `json:"temperature"`
}

// publisher is the subset of mqtt.Client the sink publishes through.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTSink publishes the future part of each forecast to a ThingsBoard
// device over MQTT.
type MQTTSink struct {
	client  mqtt.Client
	pub     publisher
	topic   string
	qos     byte
	timeout time.Duration
	now     func() time.Time
	logger  *zap.SugaredLogger
}

// NewMQTTSink connects to the broker in mc and returns a ready sink. The
// device access token is sent as the MQTT username.
func NewMQTTSink(ctx context.Context, mc config.MQTTData, logger *zap.SugaredLogger) (*MQTTSink, error) {
	broker := fmt.Sprintf("tcp://%s:%d", mc.Host, mc.Port)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(mc.ClientID)
	opts.SetUsername(mc.AccessToken)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		logger.Infow("mqtt connected", "broker", broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warnw("mqtt connection lost", "broker", broker, "error", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	for !token.WaitTimeout(mqttConnectPoll) {
		select {
		case <-ctx.Done():
			client.Disconnect(250)
			return nil, ctx.Err()
		default:
		}
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}

	s := newMQTTSink(client, mc.Topic, byte(mc.QoS), logger)
	s.client = client
	return s, nil
}

func newMQTTSink(pub publisher, topic string, qos byte, logger *zap.SugaredLogger) *MQTTSink {
	return &MQTTSink{
		pub:     pub,
		topic:   topic,
		qos:     qos,
		timeout: mqttPublishTimeout,
		now:     time.Now,
		logger:  logger,
	}
}

func (m *MQTTSink) Name() string { return "mqtt" }

// TelemetryFor builds one message per record strictly after now.
func TelemetryFor(fc *forecast.Forecast, now time.Time) []Telemetry {
	records := fc.RecordsAfter(now)
	out := make([]Telemetry, len(records))
	for i, r := range records {
		out[i] = Telemetry{
			TS: r.Timestamp.UnixMilli(),
			Values: TelemetryValues{
				PVForecast:    r.Smoothed,
				PVTheoretical: r.Theoretical,
				PVAttenuated:  r.Attenuated,
				CloudTotal:    r.CloudTotal,
				CloudLow:      r.CloudLow,
				CloudMid:      r.CloudMid,
				CloudHigh:     r.CloudHigh,
				Temperature:   r.Temperature,
			},
		}
	}
	return out
}

// Publish sends the future records of fc, waiting on each delivery token.
func (m *MQTTSink) Publish(ctx context.Context, fc *forecast.Forecast) error {
	messages := TelemetryFor(fc, m.now())
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal telemetry: %w", err)
		}

		token := m.pub.Publish(m.topic, m.qos, false, data)
		if !token.WaitTimeout(m.timeout) {
			return fmt.Errorf("publish timeout for topic %s", m.topic)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish telemetry: %w", err)
		}
	}

	m.logger.Debugw("published forecast telemetry", "topic", m.topic, "messages", len(messages))
	return nil
}

// Close disconnects from the broker.
func (m *MQTTSink) Close() error {
	if m.client != nil {
		m.client.Disconnect(250)
	}
	return nil
}
