// Package engine implementa el assignment engine: la resolución autoritativa
// de host -> (kernel, initrd, params, cloud-init).
//
// Modelo: cada host pertenece a lo sumo a un ConfigGroup; los grupos agrupan
// hosts con el mismo BootTuple y se podan apenas quedan vacíos. Toda mutación
// se persiste como un Changeset atómico ANTES de hacerse visible en memoria:
// si el repositorio falla, el estado observable no cambia.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	jsonpatch "github.com/evanphx/json-patch"

	"github.com/dropDatabas3/bootjohn/internal/observability/logger"
	"github.com/dropDatabas3/bootjohn/internal/store/core"
	"github.com/dropDatabas3/bootjohn/internal/validation"
)

// View es la vista aplanada por host que retorna List: siempre un host por
// entrada, para que el resultado sea estable frente a cómo estén agrupados
// los hosts internamente.
type View struct {
	Hosts     []string        `json:"hosts"`
	Kernel    string          `json:"kernel,omitempty"`
	Initrd    string          `json:"initrd,omitempty"`
	Params    string          `json:"params,omitempty"`
	CloudInit json.RawMessage `json:"cloud_init,omitempty"`
}

// GroupDump expone la agrupación interna para diagnóstico (dumpstate).
type GroupDump struct {
	ID        string          `json:"id"`
	Hosts     []string        `json:"hosts"`
	Kernel    string          `json:"kernel,omitempty"`
	Initrd    string          `json:"initrd,omitempty"`
	Params    string          `json:"params,omitempty"`
	CloudInit json.RawMessage `json:"cloud_init,omitempty"`
}

// UpdatePatch describe un update parcial: los strings no vacíos reemplazan,
// CloudInit se aplica como RFC 7386 merge patch sobre el blob existente.
type UpdatePatch struct {
	Kernel    string
	Initrd    string
	Params    string
	CloudInit json.RawMessage
}

func (p UpdatePatch) isZero() bool {
	return p.Kernel == "" && p.Initrd == "" && p.Params == "" && len(p.CloudInit) == 0
}

// Engine es el dueño del estado de asignación. Un único write lock cubre
// grupos + índice: las mutaciones son secuenciales, las lecturas concurrentes.
type Engine struct {
	mu     sync.RWMutex
	groups map[string]*ConfigGroup // tuple key -> group
	index  *HostSetIndex
	repo   core.Repository
}

// Open construye el engine cargando el estado persistido.
func Open(ctx context.Context, repo core.Repository) (*Engine, error) {
	rows, err := repo.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: load state: %w", err)
	}

	e := &Engine{repo: repo}
	e.resetLocked(rows)

	logger.Named("engine").Info("state loaded",
		logger.HostCount(e.index.Len()),
		logger.GroupCount(len(e.groups)),
	)
	return e, nil
}

// Create asigna el tuple a todos los hosts dados, reemplazando cualquier
// asignación previa (supersede). Los hosts se mueven a un grupo cuyo tuple
// coincide exactamente; los grupos que quedan vacíos se podan.
func (e *Engine) Create(ctx context.Context, hosts []string, tuple BootTuple) error {
	norm, err := normalizeHosts(hosts)
	if err != nil {
		return err
	}
	if tuple.Kernel == "" || tuple.Initrd == "" {
		return fmt.Errorf("%w: kernel and initrd are required", ErrInvalidArgument)
	}
	if len(tuple.CloudInit) > 0 && !json.Valid(tuple.CloudInit) {
		return fmt.Errorf("%w: cloud-init is not valid JSON", ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cs := core.Changeset{Upserts: make([]core.Assignment, 0, len(norm))}
	for _, h := range norm {
		cs.Upserts = append(cs.Upserts, toAssignment(h, tuple))
	}
	if err := e.repo.Apply(ctx, cs); err != nil {
		return fmt.Errorf("engine: persist create: %w", err)
	}

	target := e.findOrCreateGroup(tuple)
	for _, h := range norm {
		if cur, ok := e.index.Lookup(h); ok {
			if cur == target {
				continue
			}
			old, _ := e.index.Unbind(h)
			e.pruneIfEmpty(old)
		}
		e.index.Bind(h, target)
	}

	logger.From(ctx).Info("boot parameters created",
		logger.Op("create"),
		logger.HostCount(len(norm)),
		logger.GroupID(target.ID),
	)
	return nil
}

// Update aplica un patch a hosts que YA tienen asignación. A diferencia de
// Create, un host sin asignación es un error (ErrNotFound) y la operación
// entera se rechaza sin tocar nada.
func (e *Engine) Update(ctx context.Context, hosts []string, patch UpdatePatch) error {
	norm, err := normalizeHosts(hosts)
	if err != nil {
		return err
	}
	if patch.isZero() {
		return fmt.Errorf("%w: empty patch", ErrInvalidArgument)
	}
	if len(patch.CloudInit) > 0 && !json.Valid(patch.CloudInit) {
		return fmt.Errorf("%w: cloud-init patch is not valid JSON", ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Primero resolver el tuple final de cada host; cualquier error aborta
	// antes de persistir.
	next := make(map[string]BootTuple, len(norm))
	for _, h := range norm {
		g, ok := e.index.Lookup(h)
		if !ok {
			return fmt.Errorf("%w: host %s has no boot parameters", ErrNotFound, h)
		}
		nt := g.Tuple
		if patch.Kernel != "" {
			nt.Kernel = patch.Kernel
		}
		if patch.Initrd != "" {
			nt.Initrd = patch.Initrd
		}
		if patch.Params != "" {
			nt.Params = patch.Params
		}
		if len(patch.CloudInit) > 0 {
			merged, err := mergeCloudInit(nt.CloudInit, patch.CloudInit)
			if err != nil {
				return fmt.Errorf("%w: merge cloud-init for %s: %v", ErrInvalidArgument, h, err)
			}
			nt.CloudInit = merged
		}
		next[h] = nt
	}

	cs := core.Changeset{Upserts: make([]core.Assignment, 0, len(norm))}
	for _, h := range norm {
		cs.Upserts = append(cs.Upserts, toAssignment(h, next[h]))
	}
	if err := e.repo.Apply(ctx, cs); err != nil {
		return fmt.Errorf("engine: persist update: %w", err)
	}

	for _, h := range norm {
		target := e.findOrCreateGroup(next[h])
		if cur, _ := e.index.Lookup(h); cur == target {
			continue
		}
		old, _ := e.index.Unbind(h)
		e.pruneIfEmpty(old)
		e.index.Bind(h, target)
	}

	logger.From(ctx).Info("boot parameters updated",
		logger.Op("update"),
		logger.HostCount(len(norm)),
	)
	return nil
}

// Delete remueve la asignación de los hosts que matchea el filter.
// Hosts sin asignación se ignoran: borrar lo inexistente es un no-op, nunca
// un error, y la operación es idempotente. Nombres malformados sí fallan.
func (e *Engine) Delete(ctx context.Context, f Filter) error {
	if err := f.validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	matched := f.resolve(e.index)
	if len(matched) == 0 {
		return nil
	}

	if err := e.repo.Apply(ctx, core.Changeset{Deletes: matched}); err != nil {
		return fmt.Errorf("engine: persist delete: %w", err)
	}

	for _, h := range matched {
		old, _ := e.index.Unbind(h)
		e.pruneIfEmpty(old)
	}

	logger.From(ctx).Info("boot parameters deleted",
		logger.Op("delete"),
		logger.HostCount(len(matched)),
	)
	return nil
}

// List retorna una vista por host matcheado, ordenada por nombre de host.
// Hosts pedidos sin asignación simplemente no aparecen; un resultado vacío
// no es un error. Nombres malformados en el filter sí lo son.
func (e *Engine) List(f Filter) ([]View, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	matched := f.resolve(e.index)
	views := make([]View, 0, len(matched))
	for _, h := range matched {
		g, _ := e.index.Lookup(h)
		views = append(views, viewFor(h, g.Tuple))
	}
	return views, nil
}

// Lookup resuelve un único host. Para el camino caliente de /bootscript.
func (e *Engine) Lookup(host string) (View, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	g, ok := e.index.Lookup(host)
	if !ok {
		return View{}, false
	}
	return viewFor(host, g.Tuple), true
}

// Hosts retorna todos los hosts asignados, ordenados.
func (e *Engine) Hosts() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return AllHosts().resolve(e.index)
}

// Dump expone la agrupación interna, ordenada por primer host de cada grupo.
func (e *Engine) Dump() []GroupDump {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]GroupDump, 0, len(e.groups))
	for _, g := range e.groups {
		out = append(out, GroupDump{
			ID:        g.ID,
			Hosts:     g.SortedHosts(),
			Kernel:    g.Tuple.Kernel,
			Initrd:    g.Tuple.Initrd,
			Params:    g.Tuple.Params,
			CloudInit: cloneRaw(g.Tuple.CloudInit),
		})
	}
	sortGroupDumps(out)
	return out
}

// Snapshot retorna el estado completo aplanado por host, ordenado.
// Es la representación canónica para snapshots de cluster.
func (e *Engine) Snapshot() []core.Assignment {
	e.mu.RLock()
	defer e.mu.RUnlock()

	hosts := AllHosts().resolve(e.index)
	out := make([]core.Assignment, 0, len(hosts))
	for _, h := range hosts {
		g, _ := e.index.Lookup(h)
		out = append(out, toAssignment(h, g.Tuple))
	}
	return out
}

// Restore reemplaza el estado completo por el snapshot dado y lo persiste.
// Los hosts presentes antes pero ausentes en el snapshot se borran.
func (e *Engine) Restore(ctx context.Context, rows []core.Assignment) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	incoming := make(map[string]struct{}, len(rows))
	for _, a := range rows {
		incoming[a.Host] = struct{}{}
	}
	cs := core.Changeset{Upserts: rows}
	for h := range e.index.byHost {
		if _, keep := incoming[h]; !keep {
			cs.Deletes = append(cs.Deletes, h)
		}
	}
	if err := e.repo.Apply(ctx, cs); err != nil {
		return fmt.Errorf("engine: persist restore: %w", err)
	}

	e.resetLocked(rows)
	return nil
}

// Stats retorna (hosts, grupos) para gauges de métricas.
func (e *Engine) Stats() (hosts, groups int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.index.Len(), len(e.groups)
}

// ---------------------------------------------------------------------------
// internals

// resetLocked reconstruye grupos e índice desde filas aplanadas.
// El caller debe tener el write lock (o exclusividad en construcción).
func (e *Engine) resetLocked(rows []core.Assignment) {
	e.groups = make(map[string]*ConfigGroup)
	e.index = newHostSetIndex()
	for _, a := range rows {
		t := BootTuple{Kernel: a.Kernel, Initrd: a.Initrd, Params: a.Params, CloudInit: a.CloudInit}
		g := e.findOrCreateGroup(t)
		if cur, ok := e.index.Lookup(a.Host); ok && cur != g {
			old, _ := e.index.Unbind(a.Host)
			e.pruneIfEmpty(old)
		}
		e.index.Bind(a.Host, g)
	}
}

func (e *Engine) findOrCreateGroup(t BootTuple) *ConfigGroup {
	k := t.key()
	if g, ok := e.groups[k]; ok {
		return g
	}
	g := newGroup(t)
	e.groups[k] = g
	return g
}

func (e *Engine) pruneIfEmpty(g *ConfigGroup) {
	if g != nil && len(g.Hosts) == 0 {
		delete(e.groups, g.Tuple.key())
	}
}

func normalizeHosts(hosts []string) ([]string, error) {
	if len(hosts) == 0 {
		return nil, fmt.Errorf("%w: no hosts given", ErrInvalidArgument)
	}
	norm := Filter{Hosts: hosts}.normalize()
	if len(norm) == 0 {
		return nil, fmt.Errorf("%w: no hosts given", ErrInvalidArgument)
	}
	for _, h := range norm {
		if !validation.ValidHostName(h) {
			return nil, fmt.Errorf("%w: invalid host name %q", ErrInvalidArgument, h)
		}
	}
	return norm, nil
}

// mergeCloudInit aplica un RFC 7386 merge patch sobre el blob existente.
func mergeCloudInit(existing, patch json.RawMessage) (json.RawMessage, error) {
	base := existing
	if len(base) == 0 {
		base = json.RawMessage(`{}`)
	}
	merged, err := jsonpatch.MergePatch(base, patch)
	if err != nil {
		return nil, err
	}
	return merged, nil
}

func toAssignment(host string, t BootTuple) core.Assignment {
	return core.Assignment{
		Host:      host,
		Kernel:    t.Kernel,
		Initrd:    t.Initrd,
		Params:    t.Params,
		CloudInit: cloneRaw(t.CloudInit),
	}
}

func viewFor(host string, t BootTuple) View {
	return View{
		Hosts:     []string{host},
		Kernel:    t.Kernel,
		Initrd:    t.Initrd,
		Params:    t.Params,
		CloudInit: cloneRaw(t.CloudInit),
	}
}

// cloneRaw copia el blob para que los callers no puedan mutar el estado
// interno a través del slice retornado.
func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}

func sortGroupDumps(dumps []GroupDump) {
	// Orden estable por primer host; los grupos nunca están vacíos.
	sort.Slice(dumps, func(i, j int) bool {
		return dumps[i].Hosts[0] < dumps[j].Hosts[0]
	})
}
