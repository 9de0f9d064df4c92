package notify

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// maxBackoff は再送間隔の上限。
const maxBackoff = 30 * time.Second

// CalculateBackoff は再送回数に基づいて指数バックオフ遅延を計算する。
// base から2倍ずつ増加し、最大30秒。
func CalculateBackoff(base time.Duration, attempt int) time.Duration {
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return min(delay, maxBackoff)
}

// deliveryResult はWebhookのHTTPステータスの分類。
type deliveryResult int

const (
	resultDelivered deliveryResult = iota
	resultRetry
	resultDrop
)

// classifyStatus はWebhookのレスポンスステータスを分類する。
// 429と5xxは再送、それ以外の4xxは破棄する。
func classifyStatus(statusCode int) deliveryResult {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return resultDelivered
	case statusCode == http.StatusTooManyRequests, statusCode >= 500:
		return resultRetry
	default:
		return resultDrop
	}
}

// parseRetryAfter はRetry-Afterヘッダー（秒数。小数も可）を解釈する。
// 解釈できない場合は0を返す。
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(value, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return min(time.Duration(secs*float64(time.Second)), maxBackoff)
}
