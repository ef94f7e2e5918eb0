package usersink

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-factory/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// IdentityNamespace scopes the name-based UUIDs derived from factory
// identities.
var IdentityNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:go-factory:identity"))

// Hook adapts factory activity events to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
	// Namespace overrides IdentityNamespace when set.
	Namespace uuid.UUID
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
// Actor and deployment identities become stable name-based UUIDs; their text
// form is kept in the record data.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}

	normalized := activity.NormalizeEvent(event)
	if normalized.Verb == "" || normalized.ObjectType == "" || normalized.ObjectID == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	actorID := h.identityUUID(normalized.ActorID)
	record := usertypes.ActivityRecord{
		ActorID:    actorID,
		UserID:     actorID,
		TenantID:   h.identityUUID(normalized.Deployment),
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		Data:       cloneMap(normalized.Metadata),
		OccurredAt: normalized.OccurredAt,
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}
	if record.Data == nil {
		record.Data = map[string]any{}
	}
	if normalized.ActorID != "" {
		record.Data["actor_identity"] = normalized.ActorID
	}
	if normalized.Deployment != "" {
		record.Data["deployment"] = normalized.Deployment
	}
	if normalized.Version != 0 {
		record.Data["version"] = normalized.Version
	}

	return h.Sink.Log(ctx, record)
}

func (h Hook) identityUUID(input string) uuid.UUID {
	value := strings.TrimSpace(input)
	if value == "" {
		return uuid.Nil
	}
	if id, err := uuid.Parse(value); err == nil {
		return id
	}
	namespace := h.Namespace
	if namespace == uuid.Nil {
		namespace = IdentityNamespace
	}
	return uuid.NewSHA1(namespace, []byte(value))
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
