// Package contextstore looks up the free-text context prepended to a user's
// generation prompts.
package contextstore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"mediagen/internal/domain"
	"mediagen/internal/infra"
	"mediagen/internal/sqlinline"
)

// MaxContextLength bounds how much stored context is injected into a prompt.
const MaxContextLength = 1000

// ErrMissingUserKey rejects writes without a key.
var ErrMissingUserKey = fmt.Errorf("contextstore: user key is required: %w", domain.ErrInvalidRequest)

// Store reads and writes user context rows through the SQL runner.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// Lookup returns the stored context for userKey, or "" when none exists.
func (s *Store) Lookup(ctx context.Context, userKey string) (string, error) {
	userKey = strings.TrimSpace(userKey)
	if userKey == "" {
		return "", nil
	}
	row := s.sql.QueryRow(ctx, sqlinline.QSelectUserContext, userKey)
	var content string
	if err := row.Scan(&content); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("contextstore: lookup: %w", err)
	}
	return truncate(content), nil
}

// Put replaces the stored context for userKey.
func (s *Store) Put(ctx context.Context, userKey, content string) error {
	userKey = strings.TrimSpace(userKey)
	if userKey == "" {
		return ErrMissingUserKey
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QUpsertUserContext, userKey, strings.TrimSpace(content)); err != nil {
		return fmt.Errorf("contextstore: put: %w", err)
	}
	return nil
}

// Memory is an in-process store used when no database is configured.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemory(seed map[string]string) *Memory {
	m := &Memory{entries: make(map[string]string, len(seed))}
	for k, v := range seed {
		m.entries[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return m
}

func (m *Memory) Lookup(ctx context.Context, userKey string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return truncate(m.entries[strings.TrimSpace(userKey)]), nil
}

func (m *Memory) Put(ctx context.Context, userKey, content string) error {
	userKey = strings.TrimSpace(userKey)
	if userKey == "" {
		return ErrMissingUserKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[userKey] = strings.TrimSpace(content)
	return nil
}

func truncate(content string) string {
	content = strings.TrimSpace(content)
	runes := []rune(content)
	if len(runes) <= MaxContextLength {
		return content
	}
	return string(runes[:MaxContextLength])
}
