package testutil

import (
	"context"
	"testing"

	"github.com/campusdesk/cd-backend/internal/events"
	"github.com/stretchr/testify/mock"
)

// MockEmailSender is a mock implementation of queue.EmailSender
type MockEmailSender struct {
	mock.Mock
}

func NewMockEmailSender(t *testing.T) *MockEmailSender {
	m := &MockEmailSender{}
	m.Test(t)
	return m
}

func (m *MockEmailSender) SendEmail(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

func (m *MockEmailSender) ExpectSendEmail(to string) *mock.Call {
	return m.On("SendEmail", mock.Anything, to, mock.Anything, mock.Anything).Return(nil)
}

// MockPublisher records published domain events for assertions
type MockPublisher struct {
	mock.Mock
}

func NewMockPublisher(t *testing.T) *MockPublisher {
	m := &MockPublisher{}
	m.Test(t)
	return m
}

func (m *MockPublisher) Publish(ctx context.Context, event events.Event) {
	m.Called(ctx, event)
}

func (m *MockPublisher) ExpectPublish(eventType string) *mock.Call {
	return m.On("Publish", mock.Anything, mock.MatchedBy(func(e events.Event) bool {
		return e.EventType() == eventType
	})).Return()
}
