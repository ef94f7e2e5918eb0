package activity

import (
	"strings"
	"time"
)

const (
	VerbFactoryInitialized   = "factory.initialized"
	VerbFactoryConfigUpdated = "factory.config.updated"
	VerbFactoryPaused        = "factory.paused"
	VerbFactoryResumed       = "factory.resumed"
	VerbStablecoinReserved   = "factory.stablecoin.reserved"

	// ObjectTypeFactoryState is the object type of every factory event.
	ObjectTypeFactoryState = "factory_state"
)

// RecordView is the text form of a factory record carried in event metadata.
type RecordView struct {
	Admin              string
	FeeRecipient       string
	MinCollateralRatio uint16
	BaseFeeRate        uint16
	IsPaused           bool
	TotalStablecoins   uint32
}

// FactoryEventInput describes the common fields for factory lifecycle events.
type FactoryEventInput struct {
	ActorID    string
	Deployment string
	Address    string
	Channel    string
	Version    uint64
	Record     RecordView
	Changed    []string
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildFactoryInitializedEvent mirrors the record created by initialization.
func BuildFactoryInitializedEvent(input FactoryEventInput) Event {
	return buildFactoryEvent(VerbFactoryInitialized, input)
}

// BuildFactoryConfigUpdatedEvent carries the updated record and the names of
// the fields that were present in the update.
func BuildFactoryConfigUpdatedEvent(input FactoryEventInput) Event {
	return buildFactoryEvent(VerbFactoryConfigUpdated, input)
}

func BuildFactoryPausedEvent(input FactoryEventInput) Event {
	return buildFactoryEvent(VerbFactoryPaused, input)
}

func BuildFactoryResumedEvent(input FactoryEventInput) Event {
	return buildFactoryEvent(VerbFactoryResumed, input)
}

// BuildStablecoinReservedEvent records a counter increment by the creation
// subsystem.
func BuildStablecoinReservedEvent(input FactoryEventInput) Event {
	return buildFactoryEvent(VerbStablecoinReserved, input)
}

func buildFactoryEvent(verb string, input FactoryEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["admin"] = input.Record.Admin
	metadata["fee_recipient"] = input.Record.FeeRecipient
	metadata["min_collateral_ratio"] = input.Record.MinCollateralRatio
	metadata["base_fee_rate"] = input.Record.BaseFeeRate
	metadata["is_paused"] = input.Record.IsPaused
	metadata["total_stablecoins"] = input.Record.TotalStablecoins
	if len(input.Changed) > 0 {
		metadata["changed"] = append([]string{}, input.Changed...)
	}

	objectID := strings.TrimSpace(input.Address)
	if objectID == "" {
		objectID = ObjectTypeFactoryState
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		Deployment: strings.TrimSpace(input.Deployment),
		ObjectType: ObjectTypeFactoryState,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Version:    input.Version,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}
