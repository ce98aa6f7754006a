package service

import (
	"context"
	"errors"
	"testing"

	"github.com/pixjoin/internal/config"
	"github.com/pixjoin/internal/queue"
)

func TestQueueAccessGranterFallsBackWhenQueueDisabled(t *testing.T) {
	client, err := queue.NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new queue client failed: %v", err)
	}
	fallback := &fakeGranter{}
	granter := NewQueueAccessGranter(client, fallback)
	if err := granter.Grant(context.Background(), AccessGrant{ReferenceCode: "EVT5-1", RequesterID: "42"}); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if fallback.count() != 1 {
		t.Fatalf("expected fallback grant, got %d", fallback.count())
	}

	if err := NewQueueAccessGranter(client, nil).Grant(context.Background(), AccessGrant{RequesterID: "42"}); !errors.Is(err, ErrGranterUnavailable) {
		t.Fatalf("expected ErrGranterUnavailable, got %v", err)
	}
}
