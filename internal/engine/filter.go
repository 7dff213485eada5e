package engine

import (
	"fmt"
	"sort"

	"github.com/dropDatabas3/bootjohn/internal/validation"
)

// Filter selecciona hosts para List/Delete: un conjunto explícito o todos.
type Filter struct {
	Hosts []string
	All   bool
}

// AllHosts retorna un filter que matchea todo el estado.
func AllHosts() Filter {
	return Filter{All: true}
}

// ByHosts retorna un filter por conjunto explícito de hosts.
func ByHosts(hosts ...string) Filter {
	return Filter{Hosts: hosts}
}

// validate rechaza nombres de host malformados en el filter. Un nombre que
// jamás podría asignarse es un error del caller, no un "no match": distinto
// de un host válido pero ausente, que simplemente no aparece.
func (f Filter) validate() error {
	if f.All {
		return nil
	}
	for _, h := range f.Hosts {
		if h == "" {
			continue
		}
		if !validation.ValidHostName(h) {
			return fmt.Errorf("%w: invalid host name %q", ErrInvalidArgument, h)
		}
	}
	return nil
}

// normalize deduplica y ordena el conjunto pedido.
func (f Filter) normalize() []string {
	seen := make(map[string]struct{}, len(f.Hosts))
	out := make([]string, 0, len(f.Hosts))
	for _, h := range f.Hosts {
		if h == "" {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// resolve retorna los hosts asignados que matchea el filter, ordenados.
// Un host pedido que no está asignado simplemente no aparece: la ausencia
// no es un error. La resolución es un paso por host sobre el índice, nunca
// un scan de grupos.
func (f Filter) resolve(ix *HostSetIndex) []string {
	if f.All {
		out := make([]string, 0, ix.Len())
		for h := range ix.byHost {
			out = append(out, h)
		}
		sort.Strings(out)
		return out
	}

	requested := f.normalize()
	out := make([]string, 0, len(requested))
	for _, h := range requested {
		if _, ok := ix.Lookup(h); ok {
			out = append(out, h)
		}
	}
	return out
}
