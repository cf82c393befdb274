package usersink_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-scopes/pkg/activity"
	"github.com/goliatone/go-scopes/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	tenantID := uuid.New()

	event := activity.Event{
		Verb:       activity.VerbScopeUpdated,
		ActorID:    actorID.String(),
		UserID:     "not-a-uuid",
		TenantID:   tenantID.String(),
		ObjectType: activity.ObjectTypeScope,
		ObjectID:   "user.profile",
		Channel:    "scopes",
		StoreID:    "store-1",
		BatchID:    "batch-9",
		Revision:   3,
		Metadata:   map[string]any{"path": "user.profile"},
		OccurredAt: now,
	}

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID || record.TenantID != tenantID {
		t.Fatalf("unexpected identity fields: %+v", record)
	}
	if record.UserID != uuid.Nil {
		t.Fatalf("expected invalid user id to map to uuid.Nil, got %s", record.UserID)
	}
	if record.Verb != activity.VerbScopeUpdated || record.ObjectType != "scope" || record.ObjectID != "user.profile" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != "scopes" || !record.OccurredAt.Equal(now) {
		t.Fatalf("unexpected channel/timestamp: %+v", record)
	}
	if record.Data["path"] != "user.profile" || record.Data["store_id"] != "store-1" || record.Data["batch_id"] != "batch-9" {
		t.Fatalf("unexpected record data: %+v", record.Data)
	}
	if record.Data["revision"] != uint64(3) {
		t.Fatalf("expected revision in data, got %v", record.Data["revision"])
	}
	if _, ok := event.Metadata["store_id"]; ok {
		t.Fatalf("expected event metadata untouched")
	}
}

func TestHookNotifySkipsIncompleteEvents(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	_ = hook.Notify(context.Background(), activity.Event{})
	if len(sink.records) != 0 {
		t.Fatalf("expected no records for empty event, got %d", len(sink.records))
	}
	if err := (usersink.Hook{}).Notify(context.Background(), activity.Event{Verb: "x", ObjectType: "y", ObjectID: "z"}); err != nil {
		t.Fatalf("expected nil sink to be a no-op, got %v", err)
	}
}

func TestHookNotifyPropagatesSinkError(t *testing.T) {
	boom := errors.New("sink down")
	sink := &recordingSink{err: boom}
	hook := usersink.Hook{Sink: sink}

	err := hook.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbStoreHydrated,
		ObjectType: activity.ObjectTypeStore,
		ObjectID:   "store-1",
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected sink error, got %v", err)
	}
	if sink.records[0].OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be defaulted")
	}
}
