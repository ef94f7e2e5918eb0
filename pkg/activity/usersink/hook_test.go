package usersink_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-factory/pkg/activity"
	"github.com/goliatone/go-factory/pkg/activity/usersink"
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

const (
	adminIdentity   = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"
	programIdentity = "7gFZNhBQidDAqbzqbuFFzetrnordQLLpibV8hX5S2taU"
)

func TestHookNotifyMapsEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	event := activity.BuildFactoryConfigUpdatedEvent(activity.FactoryEventInput{
		ActorID:    adminIdentity,
		Deployment: programIdentity,
		Address:    "factory-address",
		Channel:    "factory",
		Version:    4,
		Record:     activity.RecordView{Admin: adminIdentity, MinCollateralRatio: 150, BaseFeeRate: 30},
		Changed:    []string{"base_fee_rate"},
		OccurredAt: now,
	})

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]

	wantActor := uuid.NewSHA1(usersink.IdentityNamespace, []byte(adminIdentity))
	if record.ActorID != wantActor || record.UserID != wantActor {
		t.Fatalf("expected actor %s got actor=%s user=%s", wantActor, record.ActorID, record.UserID)
	}
	if record.TenantID != uuid.NewSHA1(usersink.IdentityNamespace, []byte(programIdentity)) {
		t.Fatalf("unexpected tenant %s", record.TenantID)
	}
	if record.Verb != activity.VerbFactoryConfigUpdated || record.ObjectType != activity.ObjectTypeFactoryState || record.ObjectID != "factory-address" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != "factory" || record.OccurredAt != now {
		t.Fatalf("unexpected channel/time: %q %v", record.Channel, record.OccurredAt)
	}
	if record.Data["actor_identity"] != adminIdentity || record.Data["deployment"] != programIdentity {
		t.Fatalf("expected identity text in data, got %+v", record.Data)
	}
	if record.Data["version"] != uint64(4) || record.Data["base_fee_rate"] != uint16(30) {
		t.Fatalf("expected version and record fields, got %+v", record.Data)
	}
}

func TestHookNotifyKeepsUUIDActors(t *testing.T) {
	sink := &recordingSink{}
	actor := uuid.New()
	err := usersink.Hook{Sink: sink}.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbFactoryPaused,
		ActorID:    actor.String(),
		ObjectType: activity.ObjectTypeFactoryState,
		ObjectID:   "1",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if sink.records[0].ActorID != actor {
		t.Fatalf("expected uuid actor passthrough, got %s", sink.records[0].ActorID)
	}
	if sink.records[0].TenantID != uuid.Nil {
		t.Fatalf("expected nil tenant without deployment, got %s", sink.records[0].TenantID)
	}
}

func TestHookNotifySkipsMissingVerb(t *testing.T) {
	sink := &recordingSink{}
	_ = usersink.Hook{Sink: sink}.Notify(context.Background(), activity.Event{})
	if len(sink.records) != 0 {
		t.Fatalf("expected no records for empty event, got %d", len(sink.records))
	}
}

func TestHookNotifyReturnsSinkError(t *testing.T) {
	boom := errors.New("sink down")
	sink := &recordingSink{err: boom}
	err := usersink.Hook{Sink: sink}.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbFactoryInitialized,
		ObjectType: activity.ObjectTypeFactoryState,
		ObjectID:   "1",
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected sink error, got %v", err)
	}
	if sink.records[0].OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be defaulted")
	}
}
