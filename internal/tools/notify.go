package tools

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/hession/taskmate/internal/logger"
)

type notifier struct {
	mu  sync.Mutex
	out io.Writer
}

// NewNotifierTool returns the notifier descriptor. Messages are written to
// out (stdout when nil) and to the log.
func NewNotifierTool(out io.Writer) Descriptor {
	if out == nil {
		out = os.Stdout
	}
	n := &notifier{out: out}

	return Descriptor{
		Name:           "notifier",
		Category:       CategoryCommunication,
		Description:    "Deliver a notification message to the console",
		Keywords:       []string{"notify", "alert", "send message"},
		RequiredParams: []string{"message"},
		Handler:        n.send,
	}
}

func (n *notifier) send(_ context.Context, params map[string]any) (any, error) {
	message, err := stringParam(params, "message")
	if err != nil {
		return nil, err
	}
	level := "info"
	if l, ok := params["level"].(string); ok && l != "" {
		level = l
	}

	sentAt := time.Now()
	n.mu.Lock()
	_, err = fmt.Fprintf(n.out, "[%s] [NOTIFY:%s] %s\n", sentAt.Format("2006-01-02 15:04:05"), level, message)
	n.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to deliver notification: %w", err)
	}

	logger.Info("notification delivered (level=%s): %s", level, message)

	return map[string]any{
		"delivered": true,
		"level":     level,
		"sent_at":   sentAt,
	}, nil
}
