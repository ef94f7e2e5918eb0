package factory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-factory/pkg/activity"
	"github.com/goliatone/go-factory/pkg/rules"
	"github.com/goliatone/go-factory/pkg/state"
)

// Operation names used in logs, events and signed requests.
const (
	OpInitialize = "initialize"
	OpUpdate     = "update"
	OpPause      = "pause"
	OpResume     = "resume"
	OpReserve    = "reserve_stablecoin"
)

// Factory owns the singleton factory record of one deployment. Every
// read-validate-write sequence runs under a mutex, and every write is a
// compare-and-swap on the ETag that was read, so processes sharing a durable
// store are totally ordered as well.
type Factory struct {
	mu sync.Mutex

	programID Identity
	seeds     [][]byte
	address   Address
	key       string

	store     state.Store[Record]
	allocator Allocator
	clock     func() time.Time
	newID     func() string
	emitter   *activity.Emitter
	logger    OperationLogger
	policy    *rules.Policy
}

// New resolves the record address for programID and wires the
// collaborators. It fails when the address search is exhausted or an
// admission rule does not compile.
func New(programID Identity, opts ...Option) (*Factory, error) {
	if programID.IsUnset() {
		return nil, fmt.Errorf("factory: program identity must be set")
	}
	cfg := applyOptions(opts)

	address, err := DeriveAddress(programID, cfg.seeds...)
	if err != nil {
		return nil, err
	}

	f := &Factory{
		programID: programID,
		seeds:     cfg.seeds,
		address:   address,
		key:       address.Key.String(),
		store:     cfg.store,
		allocator: cfg.allocator,
		clock:     cfg.clock,
		newID:     cfg.newID,
		emitter:   activity.NewEmitter(cfg.hooks, activity.Config{Enabled: true, Channel: cfg.channel}),
		logger:    cfg.logger,
	}

	if len(cfg.rules) > 0 {
		var policyOpts []rules.PolicyOption
		if cfg.ruleLogger != nil {
			policyOpts = append(policyOpts, rules.WithLogger(cfg.ruleLogger))
		}
		policy, err := rules.NewPolicy(cfg.evaluator, cfg.rules, policyOpts...)
		if err != nil {
			return nil, fmt.Errorf("factory: admission rules: %w", err)
		}
		f.policy = policy
	}
	return f, nil
}

// ProgramID returns the deployment identity the address derives from.
func (f *Factory) ProgramID() Identity {
	return f.programID
}

// Address returns the resolved record address.
func (f *Factory) Address() Address {
	return f.address
}

// Load reads the record together with its storage metadata. A missing record
// yields ErrNotInitialized; a record whose persisted nonce does not reproduce
// the address yields ErrAddressMismatch.
func (f *Factory) Load(ctx context.Context) (Record, state.Meta, error) {
	rec, meta, ok, err := f.store.Load(ctx, f.key)
	if err != nil {
		return Record{}, state.Meta{}, fmt.Errorf("factory: load record: %w", err)
	}
	if !ok {
		return Record{}, state.Meta{}, ErrNotInitialized
	}
	if err := f.verifyNonce(rec); err != nil {
		return Record{}, state.Meta{}, err
	}
	return rec, meta, nil
}

// Get returns the current record.
func (f *Factory) Get(ctx context.Context) (Record, error) {
	rec, _, err := f.Load(ctx)
	return rec, err
}

func (f *Factory) verifyNonce(rec Record) error {
	if rec.Nonce != f.address.Nonce {
		return fmt.Errorf("%w: stored nonce %d, derived %d", ErrAddressMismatch, rec.Nonce, f.address.Nonce)
	}
	return Address{Key: f.address.Key, Nonce: rec.Nonce}.Verify(f.programID, f.seeds...)
}

// Initialize creates the record with caller as admin. Checks run in order:
// existence, caller identity, collateral ratio, fee rate, storage allocation.
// Nothing is written unless all of them pass.
func (f *Factory) Initialize(ctx context.Context, caller Identity, minCollateralRatio, baseFeeRate uint16) (Record, error) {
	start := time.Now()
	rec, meta, err := f.initialize(ctx, caller, minCollateralRatio, baseFeeRate)
	hookErr := f.notify(ctx, err, activity.BuildFactoryInitializedEvent, f.eventInput(caller, rec, meta, nil))
	f.logOperation(OpInitialize, caller, meta, start, err, hookErr)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (f *Factory) initialize(ctx context.Context, caller Identity, minCollateralRatio, baseFeeRate uint16) (Record, state.Meta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, _, exists, err := f.store.Load(ctx, f.key)
	if err != nil {
		return Record{}, state.Meta{}, fmt.Errorf("factory: load record: %w", err)
	}
	if exists {
		return Record{}, state.Meta{}, ErrAlreadyInitialized
	}

	rec := Record{
		Admin:              caller,
		MinCollateralRatio: minCollateralRatio,
		BaseFeeRate:        baseFeeRate,
		FeeRecipient:       Unset,
		Nonce:              f.address.Nonce,
	}
	if err := rec.Validate(); err != nil {
		return Record{}, state.Meta{}, err
	}

	if err := f.allocator.Allocate(ctx, f.address, RecordSize, caller); err != nil {
		return Record{}, state.Meta{}, storageAllocationError(err)
	}

	meta, err := f.store.Create(ctx, f.key, rec, f.nextMeta(state.Meta{}, 1))
	if err != nil {
		if errors.Is(err, state.ErrExists) {
			return Record{}, state.Meta{}, ErrAlreadyInitialized
		}
		return Record{}, state.Meta{}, fmt.Errorf("factory: create record: %w", err)
	}
	return rec, meta, nil
}

// UpdateParams carries the optional fields of a configuration update. Absent
// fields are left unchanged.
type UpdateParams struct {
	NewAdmin              Optional[Identity] `json:"new_admin"`
	NewMinCollateralRatio Optional[uint16]   `json:"new_min_collateral_ratio"`
	NewBaseFeeRate        Optional[uint16]   `json:"new_base_fee_rate"`
	NewFeeRecipient       Optional[Identity] `json:"new_fee_recipient"`
}

// Changed lists the record fields the update sets, in record order.
func (p UpdateParams) Changed() []string {
	var changed []string
	if p.NewAdmin.IsSet() {
		changed = append(changed, "admin")
	}
	if p.NewMinCollateralRatio.IsSet() {
		changed = append(changed, "min_collateral_ratio")
	}
	if p.NewBaseFeeRate.IsSet() {
		changed = append(changed, "base_fee_rate")
	}
	if p.NewFeeRecipient.IsSet() {
		changed = append(changed, "fee_recipient")
	}
	return changed
}

// Validate checks the present fields: ratio, then fee, then new admin.
func (p UpdateParams) Validate() error {
	if ratio, ok := p.NewMinCollateralRatio.Get(); ok {
		if err := validateMinCollateralRatio(ratio); err != nil {
			return err
		}
	}
	if rate, ok := p.NewBaseFeeRate.Get(); ok {
		if err := validateBaseFeeRate(rate); err != nil {
			return err
		}
	}
	if admin, ok := p.NewAdmin.Get(); ok && admin.IsUnset() {
		return invalidParameter("admin", "must be a non-null identity", admin)
	}
	return nil
}

// Apply returns rec with the present fields replaced.
func (p UpdateParams) Apply(rec Record) Record {
	rec.Admin = p.NewAdmin.OrElse(rec.Admin)
	rec.MinCollateralRatio = p.NewMinCollateralRatio.OrElse(rec.MinCollateralRatio)
	rec.BaseFeeRate = p.NewBaseFeeRate.OrElse(rec.BaseFeeRate)
	rec.FeeRecipient = p.NewFeeRecipient.OrElse(rec.FeeRecipient)
	return rec
}

// Update applies a partial configuration change. Checks run in order:
// existence, admin authorization, field bounds. A failed check leaves the
// stored record untouched. An admin transfer takes effect at commit.
func (f *Factory) Update(ctx context.Context, caller Identity, params UpdateParams) (Record, error) {
	start := time.Now()
	rec, meta, err := f.update(ctx, caller, params)
	hookErr := f.notify(ctx, err, activity.BuildFactoryConfigUpdatedEvent, f.eventInput(caller, rec, meta, params.Changed()))
	f.logOperation(OpUpdate, caller, meta, start, err, hookErr)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (f *Factory) update(ctx context.Context, caller Identity, params UpdateParams) (Record, state.Meta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	current, meta, err := f.Load(ctx)
	if err != nil {
		return Record{}, state.Meta{}, err
	}
	if err := requireAdmin(current, caller); err != nil {
		return Record{}, state.Meta{}, err
	}
	if err := params.Validate(); err != nil {
		return Record{}, state.Meta{}, err
	}
	return f.commit(ctx, params.Apply(current), meta)
}

// commit validates next and writes it over the snapshot described by
// current, bumping the protocol version.
func (f *Factory) commit(ctx context.Context, next Record, current state.Meta) (Record, state.Meta, error) {
	if err := next.Validate(); err != nil {
		return Record{}, state.Meta{}, err
	}
	meta, err := f.store.Save(ctx, f.key, next, f.nextMeta(current, current.Version+1), current.ETag)
	switch {
	case err == nil:
		return next, meta, nil
	case errors.Is(err, state.ErrETagMismatch):
		return Record{}, state.Meta{}, fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, state.ErrNotFound):
		return Record{}, state.Meta{}, fmt.Errorf("%w: %w", ErrNotInitialized, err)
	default:
		return Record{}, state.Meta{}, fmt.Errorf("factory: save record: %w", err)
	}
}

func (f *Factory) nextMeta(current state.Meta, version uint64) state.Meta {
	meta := state.CloneMeta(current)
	meta.SnapshotID = f.newID()
	meta.ETag = f.newID()
	meta.Version = version
	meta.UpdatedAt = f.clock().UTC()
	return meta
}

func (f *Factory) eventInput(actor Identity, rec Record, meta state.Meta, changed []string) activity.FactoryEventInput {
	return activity.FactoryEventInput{
		ActorID:    actor.String(),
		Deployment: f.programID.String(),
		Address:    f.address.Key.String(),
		Version:    meta.Version,
		Record:     recordView(rec),
		Changed:    changed,
		OccurredAt: meta.UpdatedAt,
	}
}

// notify emits the event for a committed operation. Hook failures never undo
// the commit; they are reported to the operation logger.
func (f *Factory) notify(ctx context.Context, opErr error, build func(activity.FactoryEventInput) activity.Event, input activity.FactoryEventInput) error {
	if opErr != nil || !f.emitter.Enabled() {
		return nil
	}
	return f.emitter.Emit(ctx, build(input))
}

func (f *Factory) logOperation(op string, caller Identity, meta state.Meta, start time.Time, err, hookErr error) {
	f.logger.LogOperation(OperationLogEvent{
		Operation: op,
		Caller:    caller,
		Address:   f.address,
		Version:   meta.Version,
		Duration:  time.Since(start),
		Err:       err,
		HookErr:   hookErr,
	})
}

func recordView(rec Record) activity.RecordView {
	return activity.RecordView{
		Admin:              rec.Admin.String(),
		FeeRecipient:       rec.FeeRecipient.String(),
		MinCollateralRatio: rec.MinCollateralRatio,
		BaseFeeRate:        rec.BaseFeeRate,
		IsPaused:           rec.IsPaused,
		TotalStablecoins:   rec.TotalStablecoins,
	}
}
