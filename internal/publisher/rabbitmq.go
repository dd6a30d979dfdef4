package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"podnews/internal/domain"
)

const (
	routingKeyArticleCreated = "articles.created"
	routingKeyAudioCompleted = "audio.completed"
	routingKeyAudioFailed    = "audio.failed"
)

type RabbitMQ struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *slog.Logger
}

type Config struct {
	URL      string
	Exchange string
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	logger.Info("connected to rabbitmq", "exchange", cfg.Exchange)

	return &RabbitMQ{
		conn:     conn,
		channel:  ch,
		exchange: cfg.Exchange,
		logger:   logger,
	}, nil
}

type ArticleMessage struct {
	Article   domain.NewsArticle `json:"article"`
	Timestamp time.Time          `json:"timestamp"`
}

type AudioMessage struct {
	AudioFileID  int64              `json:"audio_file_id"`
	ArticleID    int64              `json:"article_id"`
	UserID       int64              `json:"user_id"`
	Status       domain.AudioStatus `json:"status"`
	OutputURI    string             `json:"output_uri,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty"`
	Timestamp    time.Time          `json:"timestamp"`
}

// PublishArticleCreated announces a newly ingested article.
func (r *RabbitMQ) PublishArticleCreated(ctx context.Context, article *domain.NewsArticle) error {
	msg := ArticleMessage{
		Article:   *article,
		Timestamp: time.Now().UTC(),
	}
	return r.publish(ctx, routingKeyArticleCreated, msg)
}

// PublishAudioEvent announces a synthesis job reaching a terminal state.
func (r *RabbitMQ) PublishAudioEvent(ctx context.Context, audio *domain.AudioFile) error {
	msg := AudioMessage{
		AudioFileID: audio.ID,
		ArticleID:   audio.ArticleID,
		UserID:      audio.UserID,
		Status:      audio.Status,
		Timestamp:   time.Now().UTC(),
	}
	if audio.OutputURI != nil {
		msg.OutputURI = *audio.OutputURI
	}
	if audio.ErrorMessage != nil {
		msg.ErrorMessage = *audio.ErrorMessage
	}

	key := routingKeyAudioCompleted
	if audio.Status == domain.AudioStatusFailed {
		key = routingKeyAudioFailed
	}
	return r.publish(ctx, key, msg)
}

func (r *RabbitMQ) publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    uuid.NewString(),
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	r.logger.Debug("published event", "routing_key", routingKey)
	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
