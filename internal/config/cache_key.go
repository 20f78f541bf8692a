package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionStartKey returns the cache key for a test session's start time (Unix seconds)
func (r *CacheKeyStruct) SessionStartKey(sessionID string) string {
	return fmt.Sprintf("session:%s:start", sessionID)
}

// SessionAnswersKey returns the cache key for a session's answer mirror (hash index -> letter)
func (r *CacheKeyStruct) SessionAnswersKey(sessionID string) string {
	return fmt.Sprintf("session:%s:answers", sessionID)
}

// SessionFlagsKey returns the cache key for a session's flagged question indices (set)
func (r *CacheKeyStruct) SessionFlagsKey(sessionID string) string {
	return fmt.Sprintf("session:%s:flags", sessionID)
}

// SessionLayoutKey returns the cache key for a session's drawn question layout (JSON)
func (r *CacheKeyStruct) SessionLayoutKey(sessionID string) string {
	return fmt.Sprintf("session:%s:layout", sessionID)
}

// MonitorChannel returns the Redis PubSub channel name for the admin monitor stream
func (r *CacheKeyStruct) MonitorChannel() string {
	return "portal:monitor"
}

var CacheKey = NewCacheKeyStruct()
