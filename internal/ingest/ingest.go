// Package ingest subscribes to gateway readings published over MQTT and
// feeds them through the same path as the HTTP gateway endpoint.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/luki/co2dash/internal/config"
	"github.com/luki/co2dash/internal/sensor"
	"github.com/luki/co2dash/internal/service"
	"github.com/luki/co2dash/internal/storage"
)

// Recorder stores one gateway reading.
type Recorder interface {
	RecordGatewayReading(ctx context.Context, p sensor.GatewayPayload) (storage.Reading, error)
}

type Subscriber struct {
	client mqtt.Client
	cfg    config.MQTTConfig
	rec    Recorder
	logger *zap.Logger
}

// Connect opens a connection to the configured broker.
func Connect(cfg config.MQTTConfig) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return client, nil
}

func New(client mqtt.Client, cfg config.MQTTConfig, rec Recorder, logger *zap.Logger) *Subscriber {
	return &Subscriber{client: client, cfg: cfg, rec: rec, logger: logger}
}

// Start subscribes and returns. The subscription ends and the client
// disconnects when ctx is done.
func (s *Subscriber) Start(ctx context.Context) error {
	token := s.client.Subscribe(s.cfg.Topic, s.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		if err := s.HandleMessage(ctx, msg.Topic(), msg.Payload()); err != nil {
			s.logger.Warn("mqtt reading rejected", zap.String("topic", msg.Topic()), zap.Error(err))
		}
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", s.cfg.Topic, token.Error())
	}
	s.logger.Info("mqtt ingest started", zap.String("broker", s.cfg.Broker), zap.String("topic", s.cfg.Topic))

	go func() {
		<-ctx.Done()
		if t := s.client.Unsubscribe(s.cfg.Topic); t.Wait() && t.Error() != nil {
			s.logger.Warn("mqtt unsubscribe failed", zap.Error(t.Error()))
		}
		s.client.Disconnect(250)
		s.logger.Info("mqtt ingest stopped")
	}()
	return nil
}

// HandleMessage decodes a gateway payload, taking the device from the topic
// when the payload has none, and records it.
func (s *Subscriber) HandleMessage(ctx context.Context, topic string, payload []byte) error {
	var p sensor.GatewayPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if strings.TrimSpace(p.DeviceID) == "" {
		p.DeviceID = sensor.DeviceFromTopic(topic)
	}

	r, err := s.rec.RecordGatewayReading(ctx, p)
	if errors.Is(err, service.ErrDeviceNotFound) {
		return fmt.Errorf("unknown device %q: %w", p.DeviceID, err)
	}
	if err != nil {
		return err
	}
	s.logger.Debug("mqtt reading stored",
		zap.String("device_id", r.DeviceID.String()),
		zap.Float64("co2_ppm", r.CO2Level))
	return nil
}
