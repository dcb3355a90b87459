package sink

import "context"

// MockSink is a mock implementation of DownloadSink for testing
type MockSink struct {
	SaveFunc     func(ctx context.Context, req SaveRequest) (SaveResult, error)
	GetFunc      func(ctx context.Context, location SaveResult) (*Artifact, error)
	StrategyName Strategy
}

func (m *MockSink) Save(ctx context.Context, req SaveRequest) (SaveResult, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, req)
	}
	return "", nil
}

func (m *MockSink) Get(ctx context.Context, location SaveResult) (*Artifact, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, location)
	}
	return &Artifact{}, nil
}

func (m *MockSink) Strategy() Strategy {
	if m.StrategyName == "" {
		return "mock"
	}
	return m.StrategyName
}
