package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"agrocost/internal/core"
	"agrocost/internal/kvstore"
	applog "agrocost/internal/log"
)

// DefaultKey is the key the mobile app has always used for the collection.
const DefaultKey = "@expenses"

// Adapter persists the whole expense collection as one JSON array under a
// single key.
type Adapter struct {
	store  kvstore.Store
	key    string
	logger *applog.Logger
}

func NewAdapter(store kvstore.Store, key string, logger *applog.Logger) *Adapter {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &Adapter{
		store:  store,
		key:    key,
		logger: logger.WithComponent(applog.ComponentStorage),
	}
}

// Key returns the storage key.
func (a *Adapter) Key() string { return a.key }

// Load reads the stored collection. A missing key yields an empty
// collection; so does an unreadable or undecodable blob, after logging.
func (a *Adapter) Load(ctx context.Context) []core.Expense {
	blob, ok, err := a.store.Get(ctx, a.key)
	if err != nil {
		a.logger.ErrorContext(ctx, "Failed to load expenses",
			applog.NewFields().WithKey(a.key).WithOperation(applog.OpLoad).WithError(err).ToSlice()...)
		return []core.Expense{}
	}
	if !ok || blob == "" {
		a.logger.DebugContext(ctx, "No stored expenses", applog.FieldKey, a.key)
		return []core.Expense{}
	}

	expenses, err := Decode(blob)
	if err != nil {
		a.logger.ErrorContext(ctx, "Failed to decode stored expenses",
			applog.NewFields().WithKey(a.key).WithOperation(applog.OpLoad).WithError(err).ToSlice()...)
		return []core.Expense{}
	}

	a.logger.DebugContext(ctx, "Loaded expenses", applog.FieldKey, a.key, applog.FieldCount, len(expenses))
	return expenses
}

// Save overwrites the stored collection.
func (a *Adapter) Save(ctx context.Context, expenses []core.Expense) error {
	blob, err := Encode(expenses)
	if err != nil {
		return err
	}
	if err := a.store.Set(ctx, a.key, blob); err != nil {
		return fmt.Errorf("store %s: %w", a.key, err)
	}
	a.logger.DebugContext(ctx, "Saved expenses",
		applog.FieldKey, a.key, applog.FieldCount, len(expenses), applog.FieldBytes, len(blob))
	return nil
}

// ErrEncode marks a snapshot that cannot be serialised. Saving it again
// fails the same way.
var ErrEncode = errors.New("encode expenses")

// Encode serialises the collection. A nil collection encodes as [] and
// non-finite amounts as null.
func Encode(expenses []core.Expense) (string, error) {
	data, err := json.Marshal(toRecords(expenses))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return string(data), nil
}

// Decode parses a stored collection. A JSON null decodes as empty and a
// null amount as 0.
func Decode(blob string) ([]core.Expense, error) {
	var records []record
	if err := json.Unmarshal([]byte(blob), &records); err != nil {
		return nil, fmt.Errorf("decode expenses: %w", err)
	}
	return fromRecords(records), nil
}
