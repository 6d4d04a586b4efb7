package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"pressure-alerts/internal/pressure"
)

// Notification 封装告警上下文。
type Notification struct {
	FixtureID     int64
	Home          string
	Away          string
	Minute        int
	Metrics       pressure.Metrics
	Thresholds    pressure.ThresholdSet
	Verdict       pressure.Verdict
	RecentCorners int
	HomeGoals     int
	AwayGoals     int
	Channels      []string
	AdditionalMsg string
}

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}

	n.logger.Info().Int64("fixture_id", note.FixtureID).
		Int("minute", note.Minute).
		Str("channels", strings.Join(note.Channels, ",")).
		Msg("告警已发送 (Telegram)")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[Goal Pressure Alert]\n")
	builder.WriteString(fmt.Sprintf("%s vs %s (%d')\n", note.Home, note.Away, note.Minute))
	builder.WriteString(fmt.Sprintf("Score: %d-%d\n", note.HomeGoals, note.AwayGoals))
	builder.WriteString(fmt.Sprintf("Pressure: %s total / %s diff (thresholds %s / %s)\n",
		note.Metrics.PressTotal.StringFixed(1),
		note.Metrics.PressDiff.StringFixed(1),
		note.Thresholds.PressTotal.StringFixed(1),
		note.Thresholds.PressDiff.StringFixed(1)))
	builder.WriteString(fmt.Sprintf("Shots on goal: %d-%d\n", note.Metrics.ShotsHome, note.Metrics.ShotsAway))
	builder.WriteString(fmt.Sprintf("Corners (recent): %d (bar %d)\n", note.RecentCorners, note.Thresholds.Corners10Min))
	builder.WriteString(fmt.Sprintf("Triggered: %s\n", strings.Join(triggeredConditions(note.Verdict), ", ")))
	if len(note.Channels) > 0 {
		builder.WriteString(fmt.Sprintf("Channels: %s\n", strings.Join(note.Channels, ",")))
	}
	if note.AdditionalMsg != "" {
		builder.WriteString(note.AdditionalMsg)
	}
	return builder.String()
}

func triggeredConditions(v pressure.Verdict) []string {
	conditions := make([]string, 0, 3)
	if v.TotalPressure {
		conditions = append(conditions, "total pressure")
	}
	if v.Dominance {
		conditions = append(conditions, "dominance")
	}
	if v.CornerSurge {
		conditions = append(conditions, "corner surge")
	}
	if len(conditions) == 0 {
		conditions = append(conditions, "none")
	}
	return conditions
}

var _ Notifier = (*TelegramNotifier)(nil)
