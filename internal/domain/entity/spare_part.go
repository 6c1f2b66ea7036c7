package entity

// SparePart repuesto del catálogo maestro (solo lectura para el ledger).
type SparePart struct {
	ID          string
	Code        string
	Description string
}
