package testutil

import (
	"context"

	"github.com/tvandenberg/thirteenf/internal/figi"
)

// MockFigiClient is a mock implementation of figi.Client for testing. It
// resolves CUSIPs from a registered table; like the live service, every
// requested CUSIP yields exactly one Mapping, with Found false for misses.
type MockFigiClient struct {
	// Mappings holds the resolvable CUSIPs.
	Mappings map[string]figi.Mapping
	// MockError is returned from MapCUSIPs when set.
	MockError error
	// MapCalls counts invocations; LastRequested captures the most recent
	// CUSIP batch for asserting what the caller asked for.
	MapCalls      int
	LastRequested []string
}

// NewMockFigiClient creates an empty mock lookup client. With no registered
// mappings every CUSIP comes back unresolved.
func NewMockFigiClient() *MockFigiClient {
	return &MockFigiClient{
		Mappings: map[string]figi.Mapping{},
	}
}

// MapCUSIPs mocks a mapping pass over the registered table.
func (m *MockFigiClient) MapCUSIPs(_ context.Context, cusips []string) ([]figi.Mapping, error) {
	m.MapCalls++
	m.LastRequested = append([]string(nil), cusips...)
	if m.MockError != nil {
		return nil, m.MockError
	}

	mappings := make([]figi.Mapping, len(cusips))
	for i, cusip := range cusips {
		if mapping, ok := m.Mappings[cusip]; ok {
			mappings[i] = mapping
			continue
		}
		mappings[i] = figi.Mapping{CUSIP: cusip, Found: false}
	}
	return mappings, nil
}

// WithMapping registers a resolvable CUSIP.
func (m *MockFigiClient) WithMapping(cusip, ticker, name string) *MockFigiClient {
	m.Mappings[cusip] = figi.Mapping{
		CUSIP:  cusip,
		Ticker: ticker,
		Name:   name,
		FIGI:   "BBG" + randomAlphanumeric(9),
		Found:  true,
	}
	return m
}

// WithError configures the mock to return the specified error.
func (m *MockFigiClient) WithError(err error) *MockFigiClient {
	m.MockError = err
	return m
}
