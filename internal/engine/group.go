package engine

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/google/uuid"
)

// BootTuple es la configuración de boot completa que recibe un host:
// kernel, initrd, kernel params y el blob opcional de cloud-init.
type BootTuple struct {
	Kernel    string
	Initrd    string
	Params    string
	CloudInit json.RawMessage
}

// Equal compara tuples estructuralmente. La identidad de un grupo es su
// tuple: dos grupos con el mismo tuple son el mismo grupo.
func (t BootTuple) Equal(o BootTuple) bool {
	return t.Kernel == o.Kernel &&
		t.Initrd == o.Initrd &&
		t.Params == o.Params &&
		bytes.Equal(t.CloudInit, o.CloudInit)
}

// key produce la clave canónica del tuple para lookup O(1) de grupos.
// NUL como separador: los campos no pueden contenerlo.
func (t BootTuple) key() string {
	var b bytes.Buffer
	b.WriteString(t.Kernel)
	b.WriteByte(0)
	b.WriteString(t.Initrd)
	b.WriteByte(0)
	b.WriteString(t.Params)
	b.WriteByte(0)
	b.Write(t.CloudInit)
	return b.String()
}

// ConfigGroup agrupa el conjunto de hosts que comparten un BootTuple.
// Invariantes (mantenidos por el engine bajo su write lock):
//   - Hosts nunca está vacío: un grupo sin hosts se poda inmediatamente.
//   - Ningún host pertenece a más de un grupo.
type ConfigGroup struct {
	ID    string
	Tuple BootTuple
	Hosts map[string]struct{}
}

func newGroup(t BootTuple) *ConfigGroup {
	return &ConfigGroup{
		ID:    uuid.NewString(),
		Tuple: t,
		Hosts: make(map[string]struct{}),
	}
}

// SortedHosts retorna la membresía en orden lexicográfico.
func (g *ConfigGroup) SortedHosts() []string {
	out := make([]string, 0, len(g.Hosts))
	for h := range g.Hosts {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}
