package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

const (
	SummaryTTL = 7 * 24 * time.Hour
	ResultTTL  = 24 * time.Hour
)

func Fingerprint(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func CVSummaryKey(fingerprint string) string { return "cv_summary:" + fingerprint }

func DescriptionKey(description string) string {
	return "desc_summary:" + Fingerprint([]byte(description))
}

func ResultKey(sessionID string) string { return "result:" + sessionID }
