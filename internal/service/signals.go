package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-grades-api/internal/models"
)

// GradesUpdatedEvent is broadcast after a course grade has been computed.
type GradesUpdatedEvent struct {
	User      *models.User         `json:"user"`
	Summary   *models.GradeSummary `json:"grade_summary"`
	CourseKey models.CourseKey     `json:"course_key"`
	Deadline  *time.Time           `json:"deadline,omitempty"`
}

// GradesUpdatedReceiver handles a GradesUpdatedEvent.
type GradesUpdatedReceiver func(ctx context.Context, event GradesUpdatedEvent) (interface{}, error)

// SignalResponse is what one receiver produced.
type SignalResponse struct {
	Receiver string
	Response interface{}
	Err      error
}

type namedReceiver struct {
	name    string
	handler GradesUpdatedReceiver
}

// GradesUpdatedSignal fans an event out to every connected receiver.
type GradesUpdatedSignal struct {
	mu        sync.RWMutex
	receivers []namedReceiver
	logger    *zap.Logger
}

// NewGradesUpdatedSignal creates a signal without receivers.
func NewGradesUpdatedSignal(logger *zap.Logger) *GradesUpdatedSignal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradesUpdatedSignal{logger: logger}
}

// Connect registers a receiver under name, replacing any previous one with that name.
func (s *GradesUpdatedSignal) Connect(name string, receiver GradesUpdatedReceiver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.receivers {
		if s.receivers[i].name == name {
			s.receivers[i].handler = receiver
			return
		}
	}
	s.receivers = append(s.receivers, namedReceiver{name: name, handler: receiver})
}

// Disconnect removes the receiver registered under name.
func (s *GradesUpdatedSignal) Disconnect(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.receivers {
		if s.receivers[i].name == name {
			s.receivers = append(s.receivers[:i], s.receivers[i+1:]...)
			return true
		}
	}
	return false
}

// SendRobust calls every receiver in registration order. A receiver that
// errors or panics is reported in its response and does not stop the others.
func (s *GradesUpdatedSignal) SendRobust(ctx context.Context, event GradesUpdatedEvent) []SignalResponse {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	receivers := append([]namedReceiver(nil), s.receivers...)
	s.mu.RUnlock()

	responses := make([]SignalResponse, 0, len(receivers))
	for _, receiver := range receivers {
		responses = append(responses, s.call(ctx, receiver, event))
	}
	return responses
}

func (s *GradesUpdatedSignal) call(ctx context.Context, receiver namedReceiver, event GradesUpdatedEvent) (resp SignalResponse) {
	resp.Receiver = receiver.name
	defer func() {
		if r := recover(); r != nil {
			resp.Response = nil
			resp.Err = fmt.Errorf("receiver %s panicked: %v", receiver.name, r)
		}
	}()
	resp.Response, resp.Err = receiver.handler(ctx, event)
	return resp
}
