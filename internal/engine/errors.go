package engine

import "errors"

// Sentinel errors del engine. La capa HTTP los mapea a status codes en un
// solo lugar (internal/http/helpers).
var (
	// ErrInvalidArgument: input malformado (hosts vacíos, nombres inválidos,
	// tuple vacío, cloud-init que no es JSON).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConflict: la mutación no puede aplicarse en el estado actual
	// (ej: escritura en un follower del cluster).
	ErrConflict = errors.New("conflict")

	// ErrNotFound: solo para operaciones que exigen asignación previa
	// (Update). List y Delete de hosts sin asignar NO son errores.
	ErrNotFound = errors.New("not found")
)
