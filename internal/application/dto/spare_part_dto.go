package dto

// SparePartResponse salida de un repuesto del catálogo.
type SparePartResponse struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// SparePartListResponse listado paginado del catálogo.
type SparePartListResponse struct {
	Items []SparePartResponse `json:"items"`
	Page  PageResponse        `json:"page"`
}
