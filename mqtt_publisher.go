package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/cwsl/sstv-martinm1/audio_extensions/sstv"
)

// DecodeEvent is the JSON payload published to MQTT each time a decode
// session reaches Finished.
type DecodeEvent struct {
	Timestamp int64  `json:"timestamp"`
	Mode      string `json:"mode"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// MQTTPublisher publishes decode-completion events to a single topic.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
}

func generateClientID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return "sstv_" + hex.EncodeToString(b)
}

// NewMQTTPublisher connects to the configured broker and returns a ready
// publisher. The caller is responsible for closing it on shutdown.
func NewMQTTPublisher(cfg MQTTConfig) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = generateClientID()
	}
	opts.SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to mqtt broker: %w", token.Error())
	}

	topic := cfg.Topic
	if topic == "" {
		topic = "sstv/decodes"
	}
	log.Printf("mqtt: connected to %s, publishing to %s", cfg.Broker, topic)
	return &MQTTPublisher{client: client, topic: topic}, nil
}

// PublishFinished publishes a DecodeEvent for a completed image.
func (p *MQTTPublisher) PublishFinished(mode string) {
	payload, err := json.Marshal(DecodeEvent{
		Timestamp: time.Now().Unix(),
		Mode:      mode,
		Width:     sstv.ImageWidth,
		Height:    sstv.ImageHeight,
	})
	if err != nil {
		log.Printf("mqtt: marshaling decode event: %v", err)
		return
	}
	token := p.client.Publish(p.topic, 0, false, payload)
	if token.Wait() && token.Error() != nil {
		log.Printf("mqtt: publish failed: %v", token.Error())
	}
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
