package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"dogs-api-go/logcolors"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Notifier delivers an alert to one channel
type Notifier interface {
	Send(subject, message string) error
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

// EmailNotifier sends alerts over SMTP with plain auth
type EmailNotifier struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	ToEmail      string
}

func (e *EmailNotifier) Send(subject, message string) error {
	auth := smtp.PlainAuth("", e.SMTPUsername, e.SMTPPassword, e.SMTPHost)

	msg := []byte(fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", e.FromEmail, e.ToEmail, subject, message))

	addr := e.SMTPHost + ":" + e.SMTPPort
	if err := smtp.SendMail(addr, auth, e.FromEmail, []string{e.ToEmail}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Infof("%s Email notification sent to %s", logcolors.LogNotifier, e.ToEmail)
	return nil
}

// TelegramNotifier posts alerts to a chat through the Bot API
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	APIBase  string // Default: https://api.telegram.org
}

func (t *TelegramNotifier) Send(subject, message string) error {
	base := t.APIBase
	if base == "" {
		base = "https://api.telegram.org"
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimSuffix(base, "/"), t.BotToken)

	payload := map[string]interface{}{
		"chat_id":    t.ChatID,
		"text":       fmt.Sprintf("*%s*\n\n%s", subject, message),
		"parse_mode": "Markdown",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	resp, err := httpClient.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	log.Infof("%s Telegram notification sent to chat %s", logcolors.LogNotifier, t.ChatID)
	return nil
}

// NtfyNotifier publishes alerts to an ntfy.sh topic
type NtfyNotifier struct {
	Topic  string
	Server string // Default: https://ntfy.sh
}

func (n *NtfyNotifier) Send(subject, message string) error {
	server := n.Server
	if server == "" {
		server = "https://ntfy.sh"
	}

	url := fmt.Sprintf("%s/%s", strings.TrimSuffix(server, "/"), n.Topic)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBufferString(message))
	if err != nil {
		return fmt.Errorf("failed to create ntfy request: %w", err)
	}

	req.Header.Set("Title", subject)
	req.Header.Set("Priority", "high")
	req.Header.Set("Tags", "dog,warning")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ntfy returned status %d", resp.StatusCode)
	}

	log.Infof("%s Ntfy notification sent to topic %s", logcolors.LogNotifier, n.Topic)
	return nil
}
