// Package scraper drives scrape cycles: it fans tenants out in groups, runs
// each tenant's integrations and reconciles the fetched records into the
// record store.
package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tenant-scraper/internal/metrics"
	"tenant-scraper/internal/model"
	"tenant-scraper/internal/storage"
)

// DefaultRecordBatchSize bounds the size of a single write unit.
const DefaultRecordBatchSize = 50

// RecordStore is the durable store the reconciler writes through.
type RecordStore interface {
	// Upsert atomically inserts or updates the record with the given key.
	Upsert(ctx context.Context, key model.NaturalKey, payload json.RawMessage) (model.UpsertResult, error)
	// FindByNaturalKey returns storage.ErrNotFound when no record matches.
	FindByNaturalKey(ctx context.Context, key model.NaturalKey) (*model.PersistedRecord, error)
	Save(ctx context.Context, r *model.PersistedRecord) error
	// Insert returns storage.ErrDuplicate if the key already exists.
	Insert(ctx context.Context, r *model.PersistedRecord) error
}

type ReconcileResult struct {
	Inserted int
	Updated  int
	Failed   int
}

func (r *ReconcileResult) add(o ReconcileResult) {
	r.Inserted += o.Inserted
	r.Updated += o.Updated
	r.Failed += o.Failed
}

type Reconciler struct {
	store     RecordStore
	batchSize int
	logger    *zap.Logger
	recorder  metrics.Recorder
}

func NewReconciler(store RecordStore, batchSize int, logger *zap.Logger, recorder metrics.Recorder) *Reconciler {
	if batchSize <= 0 {
		batchSize = DefaultRecordBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Reconciler{store: store, batchSize: batchSize, logger: logger, recorder: recorder}
}

// Reconcile writes records for tenant in sub-batches, one record at a time.
// A record whose write fails on both the upsert and the fallback path is
// logged, counted as failed and skipped.
func (r *Reconciler) Reconcile(ctx context.Context, records []model.ScrapedRecord, tenant model.Tenant) ReconcileResult {
	var result ReconcileResult

	for start := 0; start < len(records); start += r.batchSize {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("Reconciliation interrupted",
				zap.String("tenant", tenant.Name),
				zap.Int("remaining", len(records)-start),
				zap.Error(err))
			result.Failed += len(records) - start
			return result
		}

		end := start + r.batchSize
		if end > len(records) {
			end = len(records)
		}
		for _, rec := range records[start:end] {
			r.reconcileOne(ctx, rec, tenant, &result)
		}
	}
	return result
}

func (r *Reconciler) reconcileOne(ctx context.Context, rec model.ScrapedRecord, tenant model.Tenant, result *ReconcileResult) {
	// the reconciling tenant owns every record it is handed
	key := model.NaturalKey{Source: rec.Source, ExternalID: rec.ExternalID, TenantID: tenant.ID}
	payload := rec.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	source := string(rec.Source)
	logger := r.logger.With(zap.String("tenant", tenant.Name), zap.String("record", key.String()))

	res, err := r.store.Upsert(ctx, key, payload)
	if err == nil {
		if res.Inserted() {
			result.Inserted++
			r.recorder.RecordReconciled(source, metrics.OutcomeInserted)
			logger.Debug("Inserted new record")
		} else {
			result.Updated++
			r.recorder.RecordReconciled(source, metrics.OutcomeUpdated)
			logger.Debug("Updated existing record")
		}
		return
	}

	logger.Error("Upsert failed, falling back to lookup and save", zap.Error(err))
	r.recorder.FallbackUsed(source)

	inserted, err := r.fallback(ctx, key, payload)
	if err != nil {
		result.Failed++
		r.recorder.RecordReconciled(source, metrics.OutcomeFailed)
		logger.Error("Fallback upsert also failed", zap.Error(err))
		return
	}
	if inserted {
		result.Inserted++
		r.recorder.RecordReconciled(source, metrics.OutcomeInserted)
	} else {
		result.Updated++
		r.recorder.RecordReconciled(source, metrics.OutcomeUpdated)
	}
	logger.Info("Fallback upsert successful", zap.Bool("inserted", inserted))
}

// fallback looks the record up by its natural key and either saves the new
// payload onto it or inserts it. It reports whether a row was created.
func (r *Reconciler) fallback(ctx context.Context, key model.NaturalKey, payload json.RawMessage) (bool, error) {
	updated, err := r.updateExisting(ctx, key, payload)
	if err != nil {
		return false, err
	}
	if updated {
		return false, nil
	}

	rec := &model.PersistedRecord{
		Source:     key.Source,
		ExternalID: key.ExternalID,
		TenantID:   key.TenantID,
		Payload:    payload,
	}
	err = r.store.Insert(ctx, rec)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, storage.ErrDuplicate) {
		return false, err
	}

	// the row appeared between lookup and insert
	updated, err = r.updateExisting(ctx, key, payload)
	if err != nil {
		return false, err
	}
	if !updated {
		return false, fmt.Errorf("record %s vanished after duplicate insert", key)
	}
	return false, nil
}

func (r *Reconciler) updateExisting(ctx context.Context, key model.NaturalKey, payload json.RawMessage) (bool, error) {
	existing, err := r.store.FindByNaturalKey(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup: %w", err)
	}
	existing.Payload = payload
	if err := r.store.Save(ctx, existing); err != nil {
		return false, fmt.Errorf("save: %w", err)
	}
	return true, nil
}
