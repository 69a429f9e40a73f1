// Package mqtt publishes status events to a broker and receives operator commands from it.
package mqtt

import (
	"encoding/json"

	mqttlib "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/womat/debug"
	"pintest/pkg/status"
)

// quiesce is the specified number of milliseconds to wait for existing work to be completed.
const (
	quiesce = 250
	// queue is the number of messages buffered for the publisher
	queue = 64
)

// Handler contains the handler of the mqtt broker.
type Handler struct {
	handler mqttlib.Client
	// C is the channel to service the mqtt message
	// sending a message to channel C will send the message.
	C chan Message
}

// Message contains the properties of the mqtt message.
type Message struct {
	Topic    string
	Payload  []byte
	Qos      byte
	Retained bool
}

// New generate a new mqtt broker client.
func New() *Handler {
	return &Handler{
		C: make(chan Message, queue),
	}
}

// Connect connects to the mqtt broker.
// If no broker is defined, no mqtt message are send.
func (m *Handler) Connect(broker string) error {
	if broker == "" {
		return nil
	}

	opts := mqttlib.NewClientOptions().
		AddBroker(broker).
		SetClientID("pintest-" + uuid.NewString()[:8])
	m.handler = mqttlib.NewClient(opts)
	return m.ReConnect()
}

// Connected reports whether a broker is configured.
func (m *Handler) Connected() bool {
	return m.handler != nil
}

// ReConnect reconnects to the defined mqtt broker.
func (m *Handler) ReConnect() error {
	t := m.handler.Connect()
	<-t.Done()
	return t.Error()
}

// Disconnect will end the connection to the broker.
func (m *Handler) Disconnect() error {
	if m.handler == nil {
		return nil
	}

	m.handler.Disconnect(quiesce)
	return nil
}

// Subscribe calls f with the payload of every message received on topic.
// If no broker or topic is defined, nothing is subscribed.
func (m *Handler) Subscribe(topic string, f func(payload []byte)) error {
	if m.handler == nil || topic == "" {
		return nil
	}

	t := m.handler.Subscribe(topic, 0, func(_ mqttlib.Client, msg mqttlib.Message) {
		debug.DebugLog.Printf("received %v bytes on topic %v", len(msg.Payload()), msg.Topic())
		f(msg.Payload())
	})
	<-t.Done()
	return t.Error()
}

// Service listen to a message on the channel C and send the message to mqtt.
// If no handler or topic is defined, the message will be ignored.
func (m *Handler) Service() {
	for d := range m.C {
		if m.handler == nil || d.Topic == "" {
			continue
		}

		go func(msg Message) {
			if !m.handler.IsConnected() {
				debug.DebugLog.Printf("mqtt broker isn't connected, reconnect it")

				if err := m.ReConnect(); err != nil {
					debug.ErrorLog.Printf("can't reconnect to mqtt broker %v", err)
					return
				}
			}

			debug.DebugLog.Printf("publishing %v bytes to topic %v", len(msg.Payload), msg.Topic)
			t := m.handler.Publish(msg.Topic, msg.Qos, msg.Retained, msg.Payload)

			// the asynchronous nature of this library makes it easy to forget to check for errors.
			go func() {
				<-t.Done()
				if err := t.Error(); err != nil {
					debug.ErrorLog.Printf("publishing topic %v: %v", msg.Topic, err)
				}
			}()
		}(d)
	}
}

// Reporter publishes status events as json to a topic.
type Reporter struct {
	h     *Handler
	topic string
}

// NewReporter creates a status reporter publishing on topic.
func NewReporter(h *Handler, topic string) *Reporter {
	return &Reporter{h: h, topic: topic}
}

// Report queues the event. Events are dropped if the publisher falls behind,
// the test loop must never wait for the broker.
func (r *Reporter) Report(e status.Event) {
	payload, err := json.Marshal(struct {
		status.Event
		Text string `json:"text"`
	}{e, e.String()})
	if err != nil {
		debug.ErrorLog.Printf("can't marshal status event: %v", err)
		return
	}

	select {
	case r.h.C <- Message{Topic: r.topic, Payload: payload}:
	default:
		debug.DebugLog.Printf("mqtt queue full, dropping %q", e.String())
	}
}
