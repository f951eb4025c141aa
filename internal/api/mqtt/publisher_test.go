package mqtt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/gpufan/internal/domain/fan"
	"github.com/oshokin/gpufan/internal/logger"
)

type message struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

type fakeToken struct {
	err     error
	pending bool
}

func (t *fakeToken) Wait() bool                     { return !t.pending }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.pending }
func (t *fakeToken) Error() error                   { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	done := make(chan struct{})
	if !t.pending {
		close(done)
	}

	return done
}

type fakeSink struct {
	mu       sync.Mutex
	messages []message
	token    *fakeToken
}

func (s *fakeSink) Publish(topic string, qos byte, retained bool, payload any) paho.Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, _ := payload.([]byte)
	s.messages = append(s.messages, message{Topic: topic, QoS: qos, Retained: retained, Payload: body})

	if s.token != nil {
		return s.token
	}

	return new(fakeToken)
}

func (s *fakeSink) Messages() []message {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]message(nil), s.messages...)
}

func TestPublisherControlState(t *testing.T) {
	t.Parallel()

	sink := new(fakeSink)
	publisher := newPublisher(context.Background(), sink, "rig/gpufan", time.Second)

	publisher.SetControlState(fan.Controlled)
	publisher.SetControlState(fan.Uncontrolled)

	require.Equal(t, []message{
		{Topic: "rig/gpufan/state", QoS: qosAtLeastOnce, Retained: true, Payload: []byte("controlled")},
		{Topic: "rig/gpufan/state", QoS: qosAtLeastOnce, Retained: true, Payload: []byte("uncontrolled")},
	}, sink.Messages())

	publisher.Close()
}

func TestPublisherFanChanged(t *testing.T) {
	t.Parallel()

	sink := new(fakeSink)
	publisher := newPublisher(context.Background(), sink, "gpufan", time.Second)

	publisher.FanChanged(context.Background(), &fan.Reading{
		Index:       1,
		Name:        "GeForce RTX 3090",
		Temperature: 60,
		FanSpeed:    40,
	}, 50)

	messages := sink.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, "gpufan/gpu/1", messages[0].Topic)
	require.False(t, messages[0].Retained)

	var event fanEvent
	require.NoError(t, json.Unmarshal(messages[0].Payload, &event))
	require.Equal(t, 1, event.GPU)
	require.Equal(t, "GeForce RTX 3090", event.Name)
	require.Equal(t, 60, event.Temperature)
	require.Equal(t, 40, event.FanSpeed)
	require.Equal(t, 50, event.TargetSpeed)
	require.False(t, event.Timestamp.IsZero())
}

func TestPublisherSurvivesBrokerFailures(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t,
		newPublisher(context.Background(), &fakeSink{token: &fakeToken{pending: true}}, "gpufan", time.Millisecond).
			publish("gpufan/state", qosAtLeastOnce, true, []byte("controlled")),
		errTimeout)

	brokerErr := errors.New("not authorized")
	sink := &fakeSink{token: &fakeToken{err: brokerErr}}
	publisher := newPublisher(context.Background(), sink, "gpufan", time.Second)

	require.ErrorIs(t, publisher.publish("gpufan/state", qosAtLeastOnce, true, []byte("controlled")), brokerErr)

	publisher.SetControlState(fan.Controlled)
	publisher.FanChanged(context.Background(), &fan.Reading{Index: 0}, 30)
	require.Len(t, sink.Messages(), 3)
}

func TestPublisherLogsStateFailuresThroughConnectLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	ctx := logger.ToContext(context.Background(), logger.New(zap.NewAtomicLevelAt(zapcore.DebugLevel), &buf))
	ctx = logger.WithName(ctx, "gpufan")

	sink := &fakeSink{token: &fakeToken{err: errors.New("not authorized")}}
	newPublisher(ctx, sink, "gpufan", time.Second).SetControlState(fan.Controlled)

	require.Contains(t, buf.String(), "gpufan")
	require.Contains(t, buf.String(), "Failed to publish control state")
	require.Contains(t, buf.String(), "not authorized")
}
