package auth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type AuditEventType string

const (
	AuditSignup              AuditEventType = "signup"
	AuditLoginSuccess        AuditEventType = "login_success"
	AuditLoginFailure        AuditEventType = "login_failure"
	AuditLogout              AuditEventType = "logout"
	AuditTokenRefresh        AuditEventType = "token_refresh"
	AuditTokenRefreshFailure AuditEventType = "token_refresh_failure"
	AuditEmailConfirmed      AuditEventType = "email_confirmed"
	AuditConfirmationResent  AuditEventType = "confirmation_resent"
)

type AuditEvent struct {
	EventType AuditEventType `json:"eventType"`
	UserID    string         `json:"userId,omitempty"`
	IP        string         `json:"ip,omitempty"`
	UserAgent string         `json:"userAgent,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Meta      map[string]any `json:"meta,omitempty"`
}

type Auditor interface {
	Log(ctx context.Context, e AuditEvent) error
}

// AuditLogger appends events to Redis lists: "audit" for anonymous events and
// "audit:<userID>" otherwise, each capped at MaxLen entries.
type AuditLogger struct {
	Redis  *redis.Client
	MaxLen int64
}

func (a *AuditLogger) Log(ctx context.Context, e AuditEvent) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if info := clientInfoFrom(ctx); e.IP == "" && e.UserAgent == "" {
		e.IP, e.UserAgent = info.IP, info.UserAgent
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	key := "audit"
	if e.UserID != "" {
		key = "audit:" + e.UserID
	}

	pipe := a.Redis.Pipeline()
	pipe.RPush(ctx, key, data)
	if a.MaxLen > 0 {
		pipe.LTrim(ctx, key, -a.MaxLen, -1)
	}

	_, err = pipe.Exec(ctx)
	return err
}

type clientInfoKey struct{}

type ClientInfo struct {
	IP        string
	UserAgent string
}

// WithClientInfo attaches the caller's address and user agent for audit
// records.
func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, info)
}

func clientInfoFrom(ctx context.Context) ClientInfo {
	info, _ := ctx.Value(clientInfoKey{}).(ClientInfo)
	return info
}
