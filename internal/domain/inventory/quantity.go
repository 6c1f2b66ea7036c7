package inventory

import "github.com/shopspring/decimal"

// IsWholeUnits indica si q es un número entero de unidades >= 0.
// Los repuestos se cuentan, no se miden.
func IsWholeUnits(q decimal.Decimal) bool {
	return !q.IsNegative() && q.IsInteger()
}

// Clamp implementa la regla de asignación (servicio de dominio):
// Aprobado = min(CantAprobador, CantSolicitada, Disponible), nunca negativo.
func Clamp(approverQty, requestedQty, available decimal.Decimal) decimal.Decimal {
	q := decimal.Min(approverQty, requestedQty, available)
	if q.IsNegative() {
		return decimal.Zero
	}
	return q
}
