// Package notify posts alert messages to Discord webhooks.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/luki/co2dash/internal/alert"
)

type Discord struct {
	http   *resty.Client
	logger *zap.Logger
}

type discordMessage struct {
	Content string `json:"content"`
}

func NewDiscord(logger *zap.Logger) *Discord {
	client := resty.New().
		SetTimeout(10*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Content-Type", "application/json")

	return &Discord{http: client, logger: logger}
}

// Format renders the message posted for a new alert.
func Format(a alert.Alert, deviceName string) string {
	icon := "⚠️"
	if a.Severity == alert.Critical {
		icon = "🚨"
	}
	return fmt.Sprintf("%s **%s** CO2 alert for %s: %.0f ppm at %s\n%s",
		icon, a.Level, deviceName, a.CO2Level, a.Timestamp.UTC().Format("2006-01-02 15:04 MST"), a.Message)
}

// Send posts the alert to webhookURL.
func (d *Discord) Send(ctx context.Context, webhookURL, deviceName string, a alert.Alert) error {
	resp, err := d.http.R().
		SetContext(ctx).
		SetBody(discordMessage{Content: Format(a, deviceName)}).
		Post(webhookURL)
	if err != nil {
		return fmt.Errorf("post discord webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("discord webhook returned %d", resp.StatusCode())
	}

	d.logger.Info("Discord alert sent",
		zap.String("device", deviceName),
		zap.String("severity", string(a.Severity)),
		zap.Float64("co2_ppm", a.CO2Level),
	)
	return nil
}
