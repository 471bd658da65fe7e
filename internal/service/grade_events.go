package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// natsPublisher is the subset of *nats.Conn used for fan-out.
type natsPublisher interface {
	Publish(subject string, data []byte) error
}

// GradesUpdatedMessage is the wire form of a GradesUpdatedEvent.
type GradesUpdatedMessage struct {
	ID          string     `json:"id"`
	Source      string     `json:"source"`
	UserID      int64      `json:"user_id"`
	Username    string     `json:"username"`
	CourseKey   string     `json:"course_key"`
	Percent     float64    `json:"percent"`
	Grade       *string    `json:"grade"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	PublishedAt time.Time  `json:"published_at"`
}

// GradeEventPublisher forwards grades updated events to NATS and Redis pub/sub.
type GradeEventPublisher struct {
	nats         natsPublisher
	redis        *redis.Client
	natsSubject  string
	redisChannel string
	nodeID       string
	metrics      *MetricsService
	tracer       trace.Tracer
	logger       *zap.Logger
}

// NewGradeEventPublisher builds a publisher for channelBase (e.g. "lms"); the
// NATS subject is "<base>.grades.updated" and the Redis channel
// "<base>:grades:updated". Either transport may be nil.
func NewGradeEventPublisher(natsConn natsPublisher, redisClient *redis.Client, channelBase string, metrics *MetricsService, logger *zap.Logger) *GradeEventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if channelBase == "" {
		channelBase = "lms"
	}
	return &GradeEventPublisher{
		nats:         natsConn,
		redis:        redisClient,
		natsSubject:  strings.ReplaceAll(channelBase, ":", ".") + ".grades.updated",
		redisChannel: channelBase + ":grades:updated",
		nodeID:       uuid.NewString(),
		metrics:      metrics,
		tracer:       otel.Tracer("github.com/noah-isme/lms-grades-api/internal/service/grade_events"),
		logger:       logger.With(zap.String("component", "grade_event_publisher")),
	}
}

// Subject returns the NATS subject events are published on.
func (p *GradeEventPublisher) Subject() string {
	return p.natsSubject
}

// Receive implements GradesUpdatedReceiver.
func (p *GradeEventPublisher) Receive(ctx context.Context, event GradesUpdatedEvent) (interface{}, error) {
	ctx, span := p.tracer.Start(ctx, "grades.events.publish", trace.WithAttributes(
		attribute.String("grades.course_id", event.CourseKey.String()),
	))
	defer span.End()

	msg := p.message(event)
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}

	if p.redis != nil {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			p.failed(span, err)
			return nil, err
		}
	}
	if p.nats != nil {
		if err := p.nats.Publish(p.natsSubject, payload); err != nil {
			p.failed(span, err)
			return nil, err
		}
	}

	p.metrics.RecordGradeEvent("success")
	return msg.ID, nil
}

func (p *GradeEventPublisher) message(event GradesUpdatedEvent) GradesUpdatedMessage {
	msg := GradesUpdatedMessage{
		ID:          uuid.NewString(),
		Source:      p.nodeID,
		CourseKey:   event.CourseKey.String(),
		Deadline:    event.Deadline,
		PublishedAt: time.Now().UTC(),
	}
	if event.User != nil {
		msg.UserID = event.User.ID
		msg.Username = event.User.Username
	}
	if event.Summary != nil {
		msg.Percent = event.Summary.Percent
		msg.Grade = event.Summary.Grade
	}
	return msg
}

func (p *GradeEventPublisher) failed(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, "publish_failed")
	p.metrics.RecordGradeEvent("error")
	p.logger.Warn("failed to publish grades updated event", zap.Error(err))
}

// RegisterGradeReceivers connects the built-in receivers to signal.
func RegisterGradeReceivers(signal *GradesUpdatedSignal, publisher *GradeEventPublisher) {
	if publisher != nil {
		signal.Connect("grade_event_publisher", publisher.Receive)
	}
}

