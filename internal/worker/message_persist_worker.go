package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"portfolio-rag/internal/model"
	"portfolio-rag/internal/platform/rabbitmq"
)

type MessageWriter interface {
	Create(ctx context.Context, message *model.Message) error
}

type ConversationToucher interface {
	Touch(ctx context.Context, id string, at time.Time) error
}

var errMalformedMessage = errors.New("malformed message")

// MessagePersistWorker drains the chat message queue into the database.
// Decode failures are dropped; write failures are requeued once.
type MessagePersistWorker struct {
	conn          *amqp.Connection
	messages      MessageWriter
	conversations ConversationToucher
	queueName     string
	logger        *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMessagePersistWorker(conn *amqp.Connection, messages MessageWriter, conversations ConversationToucher, queueName string, logger *slog.Logger) *MessagePersistWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &MessagePersistWorker{
		conn:          conn,
		messages:      messages,
		conversations: conversations,
		queueName:     queueName,
		logger:        logger.With("component", "message_persist_worker"),
	}
}

func (w *MessagePersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	ch, err := w.conn.Channel()
	if err != nil {
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		return err
	}
	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(w.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.logger.Warn("delivery channel closed")
					return
				}
				w.handle(workerCtx, d)
			}
		}
	}()

	return nil
}

func (w *MessagePersistWorker) handle(ctx context.Context, d amqp.Delivery) {
	err := w.persist(ctx, d.Body)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, errMalformedMessage):
		w.logger.Error("dropping message", "error", err)
		_ = d.Nack(false, false)
	default:
		w.logger.Error("persist message failed", "error", err, "redelivered", d.Redelivered)
		_ = d.Nack(false, !d.Redelivered)
	}
}

func (w *MessagePersistWorker) persist(ctx context.Context, body []byte) error {
	var msg model.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: %w", errMalformedMessage, err)
	}
	if msg.ConversationID == "" || msg.Role == "" {
		return fmt.Errorf("%w: conversation id and role are required", errMalformedMessage)
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	if err := w.messages.Create(ctx, &msg); err != nil {
		return err
	}
	if w.conversations != nil {
		if err := w.conversations.Touch(ctx, msg.ConversationID, msg.CreatedAt); err != nil {
			w.logger.Warn("touch conversation failed", "conversation_id", msg.ConversationID, "error", err)
		}
	}
	return nil
}

func (w *MessagePersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
