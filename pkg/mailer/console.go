package mailer

import (
	"context"
	"sync"

	"learnhub_backend/pkg/logger"

	"go.uber.org/zap"
)

// ConsoleMailer 开发环境使用，只写日志并保留已发送的消息
type ConsoleMailer struct {
	mu   sync.Mutex
	sent []Message
}

func NewConsoleMailer() *ConsoleMailer {
	return &ConsoleMailer{}
}

func (m *ConsoleMailer) Send(_ context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	to := make([]string, 0, len(msg.To))
	for _, addr := range msg.To {
		to = append(to, addr.String())
	}
	logger.Log.Info("email",
		zap.String("from", msg.From.String()),
		zap.Strings("to", to),
		zap.String("subject", msg.Subject),
		zap.Int("html_bytes", len(msg.HTML)),
	)

	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	return nil
}

func (m *ConsoleMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}
