// Package boot define los DTOs del API de boot parameters.
package boot

import "encoding/json"

// Params es el cuerpo de request para crear/actualizar parámetros de boot,
// y también la forma de cada entrada en las respuestas de listado.
type Params struct {
	Hosts     []string        `json:"hosts"`
	Kernel    string          `json:"kernel,omitempty"`
	Initrd    string          `json:"initrd,omitempty"`
	Params    string          `json:"params,omitempty"`
	CloudInit json.RawMessage `json:"cloud_init,omitempty"`
}

// Filter es el cuerpo opcional de DELETE y el equivalente de ?name= en GET.
type Filter struct {
	Hosts []string `json:"hosts,omitempty"`
	All   bool     `json:"all,omitempty"`
}

// HostsResponse lista los hosts con parámetros asignados.
type HostsResponse struct {
	Hosts []string `json:"hosts"`
}

// GroupDump es una vista de diagnóstico de un grupo interno de configuración.
type GroupDump struct {
	ID        string          `json:"id"`
	Hosts     []string        `json:"hosts"`
	Kernel    string          `json:"kernel,omitempty"`
	Initrd    string          `json:"initrd,omitempty"`
	Params    string          `json:"params,omitempty"`
	CloudInit json.RawMessage `json:"cloud_init,omitempty"`
}

// DumpResponse es la respuesta del endpoint de dumpstate.
type DumpResponse struct {
	Groups []GroupDump `json:"groups"`
	Hosts  int         `json:"hosts"`
}
