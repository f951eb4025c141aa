package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/oshokin/gpufan/internal/config"
	"github.com/oshokin/gpufan/internal/domain/fan"
	"github.com/oshokin/gpufan/internal/logger"
)

const (
	// stateTopic carries the retained control state.
	stateTopic = "state"
	// offline is the last will payload sent by the broker if the controller vanishes.
	offline = "offline"
	// qosAtMostOnce is used for change events, a lost one is superseded by the next.
	qosAtMostOnce byte = 0
	// qosAtLeastOnce is used for the retained state.
	qosAtLeastOnce byte = 1
	// disconnectQuiesce is how long Disconnect waits for in-flight work, in milliseconds.
	disconnectQuiesce uint = 250
)

// errTimeout is returned when the broker does not acknowledge in time.
var errTimeout = errors.New("mqtt broker did not respond in time")

// tokenPublisher is the part of paho.Client the publisher needs.
type tokenPublisher interface {
	Publish(topic string, qos byte, retained bool, payload any) paho.Token
}

// Publisher sends control state and fan changes to a broker.
type Publisher struct {
	// ctx carries the logger for callbacks that have no context of their own.
	ctx context.Context //nolint:containedctx // Used for logging only.
	// client owns the connection, nil when the publisher wraps a bare sink.
	client paho.Client
	// sink publishes messages.
	sink tokenPublisher
	// prefix is prepended to every topic.
	prefix string
	// timeout bounds every publish.
	timeout time.Duration
}

// fanEvent is the payload of a fan change message.
type fanEvent struct {
	GPU         int       `json:"gpu"`
	Name        string    `json:"name"`
	Temperature int       `json:"temperature"`
	FanSpeed    int       `json:"fan_speed"`
	TargetSpeed int       `json:"target_speed"`
	Timestamp   time.Time `json:"timestamp"`
}

// Connect dials the broker named in cfg and returns a ready publisher.
func Connect(ctx context.Context, cfg *config.MQTT) (*Publisher, error) {
	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(cfg.Timeout)
	opts.SetWill(cfg.TopicPrefix+"/"+stateTopic, offline, qosAtLeastOnce, true)
	opts.SetOnConnectHandler(func(paho.Client) {
		logger.InfoKV(ctx, "Connected to MQTT broker", "broker", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.WarnKV(ctx, "MQTT connection lost", "broker", cfg.Broker, "error", err)
	})

	client := paho.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, errTimeout)
	}

	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}

	publisher := newPublisher(ctx, client, cfg.TopicPrefix, cfg.Timeout)
	publisher.client = client

	return publisher, nil
}

func newPublisher(ctx context.Context, sink tokenPublisher, prefix string, timeout time.Duration) *Publisher {
	return &Publisher{
		ctx:     ctx,
		sink:    sink,
		prefix:  prefix,
		timeout: timeout,
	}
}

// SetControlState publishes the retained control state.
func (p *Publisher) SetControlState(state fan.ControlState) {
	topic := p.prefix + "/" + stateTopic

	if err := p.publish(topic, qosAtLeastOnce, true, []byte(state.String())); err != nil {
		logger.WarnKV(p.ctx, "Failed to publish control state", "topic", topic, "error", err)
	}
}

// FanChanged publishes one fan speed change.
func (p *Publisher) FanChanged(ctx context.Context, reading *fan.Reading, target int) {
	topic := p.prefix + "/gpu/" + strconv.Itoa(reading.Index)

	payload, err := json.Marshal(fanEvent{
		GPU:         reading.Index,
		Name:        reading.Name,
		Temperature: reading.Temperature,
		FanSpeed:    reading.FanSpeed,
		TargetSpeed: target,
		Timestamp:   time.Now().UTC(),
	})
	if err == nil {
		err = p.publish(topic, qosAtMostOnce, false, payload)
	}

	if err != nil {
		logger.WarnKV(ctx, "Failed to publish fan change", "topic", topic, "error", err)
	}
}

// Close disconnects from the broker. The retained state is left as last published.
func (p *Publisher) Close() {
	if p.client != nil {
		p.client.Disconnect(disconnectQuiesce)
	}
}

func (p *Publisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	token := p.sink.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(p.timeout) {
		return errTimeout
	}

	return token.Error()
}
