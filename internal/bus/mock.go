package bus

import "sync"

// MockClient is an in-memory Client for tests, grounded on the teacher's
// MockBackend: it tracks every call so tests can assert on publish/
// subscribe behavior without a real broker.
type MockClient struct {
	mu sync.Mutex

	connected bool
	published []PublishedMessage
	handlers  map[string]MessageHandler

	// FailPublish, when true, makes every Publish call return an error
	// without recording the message — used to exercise the Publisher's
	// "batch dropped on publish failure" path (SPEC_FULL.md §4.5).
	FailPublish bool
}

// PublishedMessage records one call to Publish.
type PublishedMessage struct {
	Topic    string
	Payload  []byte
	QoS      QoS
	Retained bool
}

// NewMockClient creates a disconnected MockClient.
func NewMockClient() *MockClient {
	return &MockClient{handlers: make(map[string]MessageHandler)}
}

func (m *MockClient) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	return nil
}

func (m *MockClient) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
}

func (m *MockClient) Publish(topic string, payload []byte, qos QoS, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPublish {
		return errPublishFailed
	}
	cp := append([]byte(nil), payload...)
	m.published = append(m.published, PublishedMessage{Topic: topic, Payload: cp, QoS: qos, Retained: retained})
	return nil
}

func (m *MockClient) Subscribe(topic string, qos QoS, handler MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

// Deliver simulates an inbound message arriving on topic, invoking the
// registered handler synchronously as the real bus client's callback would.
func (m *MockClient) Deliver(topic string, payload []byte) {
	m.mu.Lock()
	h := m.handlers[topic]
	m.mu.Unlock()
	if h != nil {
		h(topic, payload)
	}
}

// Published returns a copy of every message published so far.
func (m *MockClient) Published() []PublishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishedMessage(nil), m.published...)
}

// IsConnected reports whether Connect has been called more recently than
// Disconnect.
func (m *MockClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

type mockError string

func (e mockError) Error() string { return string(e) }

const errPublishFailed = mockError("bus: simulated publish failure")

var _ Client = (*MockClient)(nil)
