package entity

import "fmt"

// Tipos de ubicación en la jerarquía planta → centro de servicio → técnico.
const (
	LocationPlant         = "plant"
	LocationServiceCenter = "service_center"
	LocationTechnician    = "technician"
)

// Location identifica un sitio de la jerarquía. Las ubicaciones viven en un
// directorio externo; aquí solo se referencian por tipo e ID.
type Location struct {
	Kind string
	ID   string
}

// NewLocation construye una ubicación.
func NewLocation(kind, id string) Location {
	return Location{Kind: kind, ID: id}
}

// Valid indica si el tipo es conocido y el ID no está vacío.
func (l Location) Valid() bool {
	switch l.Kind {
	case LocationPlant, LocationServiceCenter, LocationTechnician:
		return l.ID != ""
	}
	return false
}

// Key clave estable "kind:id", usada para ordenar bloqueos y como índice en memoria.
func (l Location) Key() string {
	return l.Kind + ":" + l.ID
}

func (l Location) String() string {
	return fmt.Sprintf("%s/%s", l.Kind, l.ID)
}
