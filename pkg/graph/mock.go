package graph

import (
	"context"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/maraichr/neogm/pkg/cypher"
)

// MockCall records one query run through a MockSession.
type MockCall struct {
	Cypher string
	Params map[string]any
	InTx   bool
}

type mockResponse struct {
	records []*neo4j.Record
	err     error
}

// MockSession is a Session that records every query and replays canned
// responses. Queued responses are consumed first, then the handler, if any;
// otherwise queries return no rows.
type MockSession struct {
	mu sync.Mutex

	calls        []MockCall
	queue        []mockResponse
	handler      func(cypher string, params map[string]any) ([]*neo4j.Record, error)
	transactions int
	rollbacks    int
	retries      int
	inTx         bool
}

// NewMockSession creates an empty mock.
func NewMockSession() *MockSession {
	return &MockSession{}
}

// Respond queues the rows returned by the next unanswered query.
func (m *MockSession) Respond(records ...*neo4j.Record) *MockSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockResponse{records: records})
	return m
}

// Fail queues an error for the next unanswered query.
func (m *MockSession) Fail(err error) *MockSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockResponse{err: err})
	return m
}

// Handle answers queries once the queue is drained.
func (m *MockSession) Handle(fn func(cypher string, params map[string]any) ([]*neo4j.Record, error)) *MockSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = fn
	return m
}

// Run records the query and returns the next response.
func (m *MockSession) Run(_ context.Context, q *cypher.Query) ([]*neo4j.Record, error) {
	stmt, params, err := q.Cypher()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Cypher: stmt, Params: params, InTx: m.inTx})
	if len(m.queue) > 0 {
		resp := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		return resp.records, resp.err
	}
	handler := m.handler
	m.mu.Unlock()

	if handler != nil {
		return handler(stmt, params)
	}
	return nil, nil
}

// RetryTransient makes WriteTransaction run fn again, up to n more times,
// after it fails with a transient error, the way managed transactions do.
func (m *MockSession) RetryTransient(n int) *MockSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries = n
	return m
}

// WriteTransaction runs fn against the mock itself and counts each attempt
// as a transaction, and a rollback when fn fails.
func (m *MockSession) WriteTransaction(_ context.Context, fn func(tx Runner) error) error {
	for attempt := 0; ; attempt++ {
		m.mu.Lock()
		m.transactions++
		m.inTx = true
		m.mu.Unlock()

		err := fn(m)

		m.mu.Lock()
		m.inTx = false
		if err != nil {
			m.rollbacks++
		}
		retries := m.retries
		m.mu.Unlock()

		if err == nil || attempt >= retries || !IsTransientError(err) {
			return err
		}
	}
}

// Calls returns the recorded queries in order.
func (m *MockSession) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of queries run.
func (m *MockSession) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastCall returns the most recent query, or a zero MockCall.
func (m *MockSession) LastCall() MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return MockCall{}
	}
	return m.calls[len(m.calls)-1]
}

func (m *MockSession) Transactions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transactions
}

func (m *MockSession) Rollbacks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rollbacks
}

// Reset forgets recorded calls and pending responses.
func (m *MockSession) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.queue = nil
	m.handler = nil
	m.transactions = 0
	m.rollbacks = 0
}

var (
	_ Session = (*MockSession)(nil)
	_ Session = (*Client)(nil)
)
