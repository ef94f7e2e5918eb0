package factory

import "context"

// Allocator funds the backing storage for the factory record. Initialize
// calls it exactly once, after validation and before the record is written.
type Allocator interface {
	Allocate(ctx context.Context, address Address, size int, payer Identity) error
}

// AllocatorFunc adapts a function to Allocator.
type AllocatorFunc func(ctx context.Context, address Address, size int, payer Identity) error

func (f AllocatorFunc) Allocate(ctx context.Context, address Address, size int, payer Identity) error {
	if f == nil {
		return nil
	}
	return f(ctx, address, size, payer)
}

// NopAllocator accepts every allocation. Stores that own their space use it.
type NopAllocator struct{}

func (NopAllocator) Allocate(context.Context, Address, int, Identity) error {
	return nil
}
