// Package bootscript construye los scripts iPXE que consumen los nodos al
// bootear: kernel, initrd, kernel params con inyección de valores por host y
// un trailer de chain-with-retry para que un boot fallido reintente solo.
package bootscript

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/bootjohn/internal/engine"
)

// ErrNotConfigured indica que el host no tiene kernel asignado: sin kernel
// no hay script posible.
var ErrNotConfigured = errors.New("host not configured for booting")

// JoinTokenSource provee join tokens de SPIRE por host.
type JoinTokenSource interface {
	JoinToken(ctx context.Context, host string) (string, error)
}

// BootTokenIssuer emite tokens de boot firmados por host.
type BootTokenIssuer interface {
	Issue(host string) (string, error)
}

// Config configura el builder.
type Config struct {
	// ServerURL: URL pública de este servicio; va en el parámetro ds= para
	// que cloud-init vuelva acá por su meta-data.
	ServerURL string
	// ChainProto + ChainServer arman la URL de chain para reintentos.
	ChainProto  string
	ChainServer string
	// GatewayURI se antepone al path del chain si el servicio vive detrás
	// de un API gateway.
	GatewayURI string
	// RetryDelay: segundos de sleep antes de reintentar el chain.
	RetryDelay int
}

// Builder renderiza scripts iPXE.
type Builder struct {
	cfg    Config
	spire  JoinTokenSource // puede ser nil
	tokens BootTokenIssuer // puede ser nil
}

// New crea un Builder. spire y tokens son opcionales: si son nil las
// variables correspondientes quedan sin sustituir solo si el script las pide.
func New(cfg Config, spire JoinTokenSource, tokens BootTokenIssuer) *Builder {
	if cfg.ChainProto == "" {
		cfg.ChainProto = "https"
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 30
	}
	return &Builder{cfg: cfg, spire: spire, tokens: tokens}
}

const (
	joinTokenVar = "SPIRE_JOIN_TOKEN"
	bootTokenVar = "BSS_TOKEN"
)

// Build renderiza el script para un host con la vista de boot dada.
func (b *Builder) Build(ctx context.Context, host string, v engine.View, retry int) (string, error) {
	if v.Kernel == "" {
		return "", fmt.Errorf("%w: %s", ErrNotConfigured, host)
	}

	params := v.Params

	// Parámetros especiales: solo se agregan si no vinieron ya en params.
	params = checkParam(params, "xname=", host)
	if b.cfg.ServerURL != "" {
		// Si la imagen no tiene cloud-init esto no molesta; si lo tiene, le
		// dice que vuelva acá por su meta-data.
		params = checkParam(params, "ds=", fmt.Sprintf("nocloud-net;s=%s/", b.cfg.ServerURL))
	}

	var err error
	params, err = paramSubstitute(params, joinTokenVar, func() (string, error) {
		if b.spire == nil {
			return "", fmt.Errorf("bootscript: no spire client configured")
		}
		return b.spire.JoinToken(ctx, host)
	})
	if err != nil {
		return "", err
	}
	params, err = paramSubstitute(params, bootTokenVar, func() (string, error) {
		if b.tokens == nil {
			return "", fmt.Errorf("bootscript: no boot token issuer configured")
		}
		return b.tokens.Issue(host)
	})
	if err != nil {
		return "", err
	}

	if v.Initrd != "" {
		// El kernel tiene que referirse al initrd por el nombre con el que
		// iPXE lo carga: pisamos cualquier initrd=... que haya venido.
		params = dropParam(params, "initrd")
		params = "initrd=initrd " + params
	}

	chain := b.ChainURL(host, retry+1)

	var sb strings.Builder
	sb.WriteString("#!ipxe\n")
	sb.WriteString("kernel --name kernel " + v.Kernel + " " + strings.Trim(params, " "))
	sb.WriteString(" || goto boot_retry\n")
	if v.Initrd != "" {
		sb.WriteString("initrd --name initrd " + v.Initrd + " || goto boot_retry\n")
	}
	sb.WriteString("boot || goto boot_retry\n:boot_retry\n")
	sb.WriteString(fmt.Sprintf("sleep %d\n", b.cfg.RetryDelay))
	sb.WriteString(chain + "\n")
	return sb.String(), nil
}

// BuildRetryOnly renderiza un script que solo espera y reintenta: para hosts
// sin asignación que deben volver a preguntar más tarde.
func (b *Builder) BuildRetryOnly(host string, retry int) string {
	return "#!ipxe\n" +
		fmt.Sprintf("sleep %d\n", b.cfg.RetryDelay) +
		b.ChainURL(host, retry+1) + "\n"
}

// ChainURL arma el comando de chain con el contador de retry y un timestamp
// para que los caches intermedios no sirvan un script viejo.
func (b *Builder) ChainURL(host string, retry int) string {
	return fmt.Sprintf("chain %s://%s%s/boot/v1/bootscript?name=%s&retry=%d&ts=%d",
		b.cfg.ChainProto, b.cfg.ChainServer, b.cfg.GatewayURI, host, retry, time.Now().Unix())
}

// paramExists checks for a specific boot parameter in the current params.
func paramExists(params, pname string) bool {
	for _, s := range strings.Split(params, " ") {
		if strings.HasPrefix(s, pname) {
			return true
		}
	}
	return false
}

// checkParam agrega pname+pval a params solo si pname no está ya presente.
func checkParam(params, pname, pval string) string {
	if pval != "" && !paramExists(params, pname) {
		params = strings.Trim(params+" "+pname+pval, " ")
	}
	return params
}

// dropParam remueve el parámetro con el prefijo dado, si existe.
func dropParam(params, prefix string) string {
	fields := strings.Fields(params)
	out := fields[:0]
	for _, f := range fields {
		if strings.HasPrefix(f, prefix) {
			continue
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}

// paramSubstitute reemplaza ${pvar} usando getVal, solo si la variable
// aparece en params. getVal no se llama si no hay nada que sustituir.
func paramSubstitute(params, pvar string, getVal func() (string, error)) (string, error) {
	if !strings.HasPrefix(pvar, "${") {
		pvar = "${" + pvar + "}"
	}
	if !strings.Contains(params, pvar) {
		return params, nil
	}
	val, err := getVal()
	if err != nil {
		return params, err
	}
	return strings.ReplaceAll(params, pvar, val), nil
}
