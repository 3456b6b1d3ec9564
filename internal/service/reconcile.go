package service

import (
	"errors"
	"hash/fnv"
	"strconv"
	"sync"

	"payrelay/internal/models"
	"payrelay/internal/repository"
	"payrelay/pkg/mollie"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const lockStripes = 64

// Reconciler folds Mollie responses into the local payment table. A record is
// located by its correlation key: the idempotency key on the create flow, the
// Mollie payment id on the status and webhook flows.
//
// The lookup+write for one correlation key runs under a striped mutex so that
// a webhook and a status poll racing on the same payment cannot duplicate the
// record or lose a write. Different keys proceed in parallel (modulo stripe
// collisions). The unique indexes on mollie_id and idempotency_key backstop
// races across processes: a losing insert is retried as an update.
type Reconciler struct {
	repo  *repository.PaymentRepository
	locks [lockStripes]sync.Mutex
}

func NewReconciler(repo *repository.PaymentRepository) *Reconciler {
	return &Reconciler{repo: repo}
}

func (r *Reconciler) lockFor(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &r.locks[h.Sum32()%lockStripes]
}

// ReconcileByIdempotencyKey upserts the record correlated to key from a
// create-payment response. metadata is the caller-supplied blob; it is stored
// only when the record has none, and never cleared by a nil argument.
func (r *Reconciler) ReconcileByIdempotencyKey(key string, mp *mollie.Payment, metadata datatypes.JSON) (*models.Payment, error) {
	mu := r.lockFor("idem:" + key)
	mu.Lock()
	defer mu.Unlock()

	existing, err := r.repo.GetByIdempotencyKey(key)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		return r.update(existing, mp, metadata)
	}

	p := newRecord(mp, metadata)
	k := key
	p.IdempotencyKey = &k
	if err := r.repo.Create(p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.resolveCreateConflict(key, mp, metadata)
		}
		return nil, err
	}
	return p, nil
}

// resolveCreateConflict merges into whichever record won the insert race. The
// duplicate may sit under the idempotency key (a concurrent create) or under
// the mollie id only (a webhook follow-up landed before the create flow); in
// the latter case the idempotency key is attached to the webhook's record.
func (r *Reconciler) resolveCreateConflict(key string, mp *mollie.Payment, metadata datatypes.JSON) (*models.Payment, error) {
	if existing, err := r.repo.GetByIdempotencyKey(key); err == nil {
		return r.update(existing, mp, metadata)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	existing, err := r.repo.GetByMollieID(mp.ID)
	if err != nil {
		return nil, err
	}
	if existing.IdempotencyKey == nil {
		k := key
		existing.IdempotencyKey = &k
	}
	return r.update(existing, mp, metadata)
}

// ReconcileByMollieID upserts the record correlated to the Mollie payment id
// from a status-poll or webhook follow-up response. A miss creates a bare
// record, so a webhook for a payment this service never saw still lands.
func (r *Reconciler) ReconcileByMollieID(mollieID string, mp *mollie.Payment, metadata datatypes.JSON) (*models.Payment, error) {
	mu := r.lockFor("mollie:" + mollieID)
	mu.Lock()
	defer mu.Unlock()

	existing, err := r.repo.GetByMollieID(mollieID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		return r.update(existing, mp, metadata)
	}

	p := newRecord(mp, metadata)
	if p.MollieID == nil {
		id := mollieID
		p.MollieID = &id
	}
	if err := r.repo.Create(p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, err = r.repo.GetByMollieID(mollieID)
			if err != nil {
				return nil, err
			}
			return r.update(existing, mp, metadata)
		}
		return nil, err
	}
	return p, nil
}

func (r *Reconciler) update(p *models.Payment, mp *mollie.Payment, metadata datatypes.JSON) (*models.Payment, error) {
	apply(p, mp, metadata)
	if err := r.repo.Update(p); err != nil {
		return nil, err
	}
	return p, nil
}

// apply overwrites the processor-authoritative fields. MollieID is set once
// and never reassigned; existing metadata is never replaced.
func apply(p *models.Payment, mp *mollie.Payment, metadata datatypes.JSON) {
	if p.MollieID == nil && mp.ID != "" {
		id := mp.ID
		p.MollieID = &id
	}
	p.Amount = parseAmount(mp.Amount.Value)
	p.Currency = mp.Amount.Currency
	if p.Currency == "" {
		p.Currency = "EUR"
	}
	p.Description = mp.Description
	p.Status = mp.Status
	if p.Status == "" {
		p.Status = "open"
	}
	p.CheckoutURL = mp.CheckoutURL
	if metadata != nil && len(p.Metadata) == 0 {
		p.Metadata = metadata
	}
}

func newRecord(mp *mollie.Payment, metadata datatypes.JSON) *models.Payment {
	p := &models.Payment{}
	apply(p, mp, metadata)
	return p
}

// parseAmount falls back to 0.0 on a missing or malformed value; a bad amount
// must never block status propagation.
func parseAmount(v string) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}
