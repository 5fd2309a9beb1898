// internal/generator/messages.go
package generator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/YaganovValera/kafka-sandbox/internal/produce"
	"github.com/YaganovValera/kafka-sandbox/pkg/logger"
)

// ChatMessage is a free-form line typed by an operator.
type ChatMessage struct {
	SenderID string `json:"senderId"`
	Text     string `json:"text"`
}

// NewChatSupplier reads lines from r (normally stdin) and wraps each
// one in a ChatMessage from the given sender. EOF ends the run: the
// supplier reports context.Canceled so the loop shuts down cleanly.
//
// Reads are done on a separate goroutine because bufio.Scanner cannot
// be interrupted; on cancellation the pending line is abandoned.
func NewChatSupplier(r io.Reader, senderID string) produce.Supplier[ChatMessage] {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	return func(ctx context.Context) (ChatMessage, error) {
		for {
			select {
			case <-ctx.Done():
				return ChatMessage{}, ctx.Err()
			case line, ok := <-lines:
				if !ok {
					return ChatMessage{}, context.Canceled
				}
				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				return ChatMessage{SenderID: senderID, Text: line}, nil
			}
		}
	}
}

// ChatSender names this process as the message author.
func ChatSender() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

// ChatKey keys records by sender so one author's messages stay ordered.
func ChatKey(m ChatMessage) string { return m.SenderID }

// PrintChatMessage logs a consumed chat line.
func PrintChatMessage(log *logger.Logger) func(ChatMessage) {
	return func(m ChatMessage) {
		log.Info("message",
			zap.String("sender", m.SenderID),
			zap.String("text", m.Text),
		)
	}
}
