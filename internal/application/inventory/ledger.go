package inventory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/spare-ledger/internal/domain"
	"github.com/jhoicas/spare-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/spare-ledger/internal/domain/inventory"
	"github.com/jhoicas/spare-ledger/internal/domain/repository"
)

// Ledger es el único escritor de cantidades de inventario. Se construye por transacción
// con el repositorio atado a la tx, de modo que un fallo posterior revierte sus ajustes.
// No existe una operación "set": la cantidad solo cambia por Adjust o Transfer.
type Ledger struct {
	records repository.InventoryRecordRepository
	now     func() time.Time
}

// NewLedger construye el ledger sobre el repositorio de la transacción en curso.
func NewLedger(records repository.InventoryRecordRepository) *Ledger {
	return &Ledger{records: records, now: time.Now}
}

// RecordKey identifica una fila del ledger.
type RecordKey struct {
	PartID   string
	Location entity.Location
}

func (k RecordKey) String() string {
	return k.Location.Key() + "|" + k.PartID
}

// GetAvailable devuelve la cantidad actual del bucket; nunca negativa.
func (l *Ledger) GetAvailable(ctx context.Context, partID string, loc entity.Location, bucket string) (decimal.Decimal, error) {
	if err := validateRef(partID, loc, bucket); err != nil {
		return decimal.Zero, err
	}
	rec, err := l.records.Get(ctx, partID, loc)
	if err != nil {
		return decimal.Zero, err
	}
	return rec.Quantity(bucket), nil
}

// Lock bloquea (y crea en cero si falta) la fila (repuesto, ubicación) hasta el Commit.
func (l *Ledger) Lock(ctx context.Context, partID string, loc entity.Location) (*entity.InventoryRecord, error) {
	if err := validateRef(partID, loc, entity.BucketGood); err != nil {
		return nil, err
	}
	return l.records.GetForUpdate(ctx, partID, loc)
}

// LockAll bloquea varias filas en orden determinista (ubicación, repuesto) para evitar deadlocks
// entre transacciones concurrentes. Devuelve las filas bloqueadas indexadas por clave.
func (l *Ledger) LockAll(ctx context.Context, keys []RecordKey) (map[string]*entity.InventoryRecord, error) {
	sorted := make([]RecordKey, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if seen[k.String()] {
			continue
		}
		seen[k.String()] = true
		sorted = append(sorted, k)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })

	locked := make(map[string]*entity.InventoryRecord, len(sorted))
	for _, k := range sorted {
		rec, err := l.Lock(ctx, k.PartID, k.Location)
		if err != nil {
			return nil, err
		}
		locked[k.String()] = rec
	}
	return locked, nil
}

// Adjust aplica delta (positivo o negativo) al bucket. Falla con InsufficientStockError
// si el resultado quedaría negativo. Crea la fila en cero si no existe.
func (l *Ledger) Adjust(ctx context.Context, partID string, loc entity.Location, bucket string, delta decimal.Decimal) error {
	if err := validateRef(partID, loc, bucket); err != nil {
		return err
	}
	if !delta.IsInteger() {
		return domain.NewValidationError("delta", "debe ser un número entero de unidades")
	}
	rec, err := l.records.GetForUpdate(ctx, partID, loc)
	if err != nil {
		return err
	}
	return l.apply(ctx, rec, bucket, delta)
}

// Transfer mueve qty del bucket origen al bucket destino como una unidad atómica
// dentro de la transacción del caller. Acepta la misma ubicación con buckets distintos
// (p. ej. in_transit → good al recibir).
func (l *Ledger) Transfer(
	ctx context.Context,
	partID string,
	from entity.Location, fromBucket string,
	to entity.Location, toBucket string,
	qty decimal.Decimal,
) error {
	if err := validateRef(partID, from, fromBucket); err != nil {
		return err
	}
	if err := validateRef(partID, to, toBucket); err != nil {
		return err
	}
	if !qty.IsPositive() || !qty.IsInteger() {
		return domain.NewValidationError("qty", "debe ser un entero positivo")
	}
	if from.Key() == to.Key() && fromBucket == toBucket {
		return domain.NewValidationError("to", "origen y destino idénticos")
	}

	locked, err := l.LockAll(ctx, []RecordKey{{partID, from}, {partID, to}})
	if err != nil {
		return err
	}
	src := locked[RecordKey{partID, from}.String()]
	dst := locked[RecordKey{partID, to}.String()]

	if err := l.apply(ctx, src, fromBucket, qty.Neg()); err != nil {
		return err
	}
	return l.apply(ctx, dst, toBucket, qty)
}

func (l *Ledger) apply(ctx context.Context, rec *entity.InventoryRecord, bucket string, delta decimal.Decimal) error {
	current := rec.Quantity(bucket)
	next := current.Add(delta)
	if next.IsNegative() {
		return &domain.InsufficientStockError{
			PartID:    rec.PartID,
			Location:  rec.Location.String(),
			Bucket:    bucket,
			Available: current,
			Requested: delta.Neg(),
			Line:      -1,
		}
	}
	rec.SetQuantity(bucket, next)
	rec.UpdatedAt = l.now()
	return l.records.Save(ctx, rec)
}

func validateRef(partID string, loc entity.Location, bucket string) error {
	if partID == "" {
		return domain.NewValidationError("part_id", "requerido")
	}
	if !loc.Valid() {
		return domain.NewValidationError("location", "ubicación inválida: "+loc.String())
	}
	if !entity.ValidBucket(bucket) {
		return domain.NewValidationError("bucket", "bucket desconocido: "+bucket)
	}
	return nil
}

// validQty cantidades de entrada: enteras y no negativas.
func validQty(q decimal.Decimal) bool {
	return domaininv.IsWholeUnits(q)
}
