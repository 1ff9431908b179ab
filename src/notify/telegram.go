package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"harmonic-go/src/models"
)

// TelegramNotifier posts run summaries to a Telegram chat. It is disabled
// (all sends become no-ops) when either credential is missing.
type TelegramNotifier struct {
	botToken string
	chatID   string
	client   *http.Client
	enabled  bool
}

// NewTelegramNotifier 创建新的 Telegram 通知器
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	enabled := botToken != "" && chatID != ""
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		enabled: enabled,
	}
}

// NewTelegramNotifierFromEnv reads TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID
func NewTelegramNotifierFromEnv() *TelegramNotifier {
	return NewTelegramNotifier(os.Getenv("TELEGRAM_BOT_TOKEN"), os.Getenv("TELEGRAM_CHAT_ID"))
}

// Enabled reports whether sends will actually reach Telegram
func (tn *TelegramNotifier) Enabled() bool {
	return tn.enabled
}

// SendMessage 发送文本消息
func (tn *TelegramNotifier) SendMessage(text string) error {
	if !tn.enabled {
		return nil
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", tn.botToken)

	payload := map[string]interface{}{
		"chat_id":    tn.chatID,
		"text":       text,
		"parse_mode": "HTML",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := tn.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// SendBacktestSummary 发送回测结果通知
func (tn *TelegramNotifier) SendBacktestSummary(symbol string, m models.Metrics) error {
	emoji := "📈"
	if m.TotalPnL < 0 {
		emoji = "📉"
	}

	message := fmt.Sprintf(
		"%s <b>Backtest finished</b>\n\n"+
			"Symbol: <code>%s</code>\n"+
			"Trades: <code>%d</code>\n"+
			"PnL: <code>%.2f</code>\n"+
			"Profit factor: <code>%.2f</code>\n"+
			"Win rate: <code>%.1f%%</code>\n"+
			"Max drawdown: <code>%.1f%%</code>",
		emoji, symbol, m.TradeCount, m.TotalPnL, m.ProfitFactor,
		m.WinRate*100, m.MaxDrawdown*100,
	)

	return tn.SendMessage(message)
}

// SendSweepSummary 发送参数扫描结果通知
func (tn *TelegramNotifier) SendSweepSummary(symbol string, ranked, failed int, bestRisk, bestRR, bestPF float64) error {
	message := fmt.Sprintf(
		"🔍 <b>Parameter sweep finished</b>\n\n"+
			"Symbol: <code>%s</code>\n"+
			"Runs: <code>%d ok / %d failed</code>\n"+
			"Best: risk=<code>%.2f</code> rr=<code>%.1f</code> pf=<code>%.2f</code>",
		symbol, ranked, failed, bestRisk, bestRR, bestPF,
	)

	return tn.SendMessage(message)
}

// SendErrorNotification 发送错误通知
func (tn *TelegramNotifier) SendErrorNotification(title, message string) error {
	text := fmt.Sprintf("⚠️ <b>%s</b>\n\n%s", title, message)
	return tn.SendMessage(text)
}
