package engine

// HostSetIndex mapea host -> grupo para lookup O(1).
// No es thread-safe por sí mismo: el engine lo protege con su lock.
type HostSetIndex struct {
	byHost map[string]*ConfigGroup
}

func newHostSetIndex() *HostSetIndex {
	return &HostSetIndex{byHost: make(map[string]*ConfigGroup)}
}

// Lookup retorna el grupo del host, si está asignado.
func (ix *HostSetIndex) Lookup(host string) (*ConfigGroup, bool) {
	g, ok := ix.byHost[host]
	return g, ok
}

// Bind asigna el host al grupo, en ambas direcciones.
// El caller debe haber desvinculado el host de su grupo anterior.
func (ix *HostSetIndex) Bind(host string, g *ConfigGroup) {
	ix.byHost[host] = g
	g.Hosts[host] = struct{}{}
}

// Unbind remueve el host de su grupo y retorna el grupo, que puede haber
// quedado vacío (el caller decide podarlo).
func (ix *HostSetIndex) Unbind(host string) (*ConfigGroup, bool) {
	g, ok := ix.byHost[host]
	if !ok {
		return nil, false
	}
	delete(ix.byHost, host)
	delete(g.Hosts, host)
	return g, true
}

// Len retorna la cantidad de hosts asignados.
func (ix *HostSetIndex) Len() int {
	return len(ix.byHost)
}
