// Package mqttpub optionally publishes alert events and periodic status
// over MQTT, grounded on the teacher's MQTTPublisher connection/reconnect
// handling in mqtt_publisher.go.
package mqttpub

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/cwsl/hackrf-sweepd/internal/alert"
)

// Publisher publishes alert and status events to an MQTT broker.
type Publisher struct {
	client      mqtt.Client
	topicAlert  string
	topicStatus string
}

// AlertPayload is the JSON message published for each alert event.
type AlertPayload struct {
	Timestamp   int64   `json:"timestamp"`
	FreqMHz     float64 `json:"freq_mhz"`
	PowerDB     float64 `json:"power_db"`
	BaselineDB  float64 `json:"baseline_db"`
	ThresholdDB float64 `json:"threshold_db"`
	IsNew       bool    `json:"is_new"`
}

// StatusPayload is the JSON message published periodically.
type StatusPayload struct {
	Timestamp    int64   `json:"timestamp"`
	SweepCount   int64   `json:"sweep_count"`
	SweepRateHz  float64 `json:"sweep_rate_hz"`
	ActiveAlerts int     `json:"active_alerts"`
}

func generateClientID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return "hackrf_sweepd_" + hex.EncodeToString(b)
}

// New connects to broker and returns a ready Publisher.
func New(broker, topicAlert, topicStatus string) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(generateClientID())
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Println("MQTT: connected to broker")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("Warning: MQTT connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT broker: %w", token.Error())
	}

	return &Publisher{client: client, topicAlert: topicAlert, topicStatus: topicStatus}, nil
}

// PublishAlert publishes one alert event, keyed by frequency for natural
// MQTT retained-message semantics.
func (p *Publisher) PublishAlert(a alert.Alert, isNew bool) {
	payload := AlertPayload{
		Timestamp:   time.Now().Unix(),
		FreqMHz:     a.FreqMHz,
		PowerDB:     a.MaxPowerDB,
		BaselineDB:  a.BaselineDB,
		ThresholdDB: a.ThresholdBufferDB,
		IsNew:       isNew,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Warning: MQTT alert marshal failed: %v", err)
		return
	}
	p.client.Publish(p.topicAlert, 0, false, data)
}

// PublishStatus publishes a periodic status snapshot.
func (p *Publisher) PublishStatus(sweepCount int64, sweepRateHz float64, activeAlerts int) {
	payload := StatusPayload{
		Timestamp:    time.Now().Unix(),
		SweepCount:   sweepCount,
		SweepRateHz:  sweepRateHz,
		ActiveAlerts: activeAlerts,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Warning: MQTT status marshal failed: %v", err)
		return
	}
	p.client.Publish(p.topicStatus, 0, false, data)
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
