package bootscript

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/bootjohn/internal/bootscript"
	"github.com/dropDatabas3/bootjohn/internal/engine"
	svc "github.com/dropDatabas3/bootjohn/internal/http/services/bootscript"
	"github.com/dropDatabas3/bootjohn/internal/store/memory"
)

func newTestSetup(t *testing.T) (*engine.Engine, *Controller) {
	t.Helper()
	eng, err := engine.Open(context.Background(), memory.New())
	require.NoError(t, err)

	builder := bootscript.New(bootscript.Config{
		ServerURL:   "http://bss.local",
		ChainProto:  "http",
		ChainServer: "bss.local",
		RetryDelay:  10,
	}, nil, nil)

	return eng, NewController(svc.New(eng, builder, nil, 0, 0))
}

func get(c *Controller, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c.Get(rec, req)
	return rec
}

func TestGetRequiresName(t *testing.T) {
	_, c := newTestSetup(t)
	rec := get(c, "/bootscript")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRejectsBadRetry(t *testing.T) {
	_, c := newTestSetup(t)
	rec := get(c, "/bootscript?name=nid01&retry=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRendersScript(t *testing.T) {
	eng, c := newTestSetup(t)
	require.NoError(t, eng.Create(context.Background(), []string{"nid01"}, engine.BootTuple{
		Kernel: "http://imgs/kernel",
		Initrd: "http://imgs/initrd",
		Params: "console=ttyS0",
	}))

	rec := get(c, "/bootscript?name=nid01")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	body := rec.Body.String()
	assert.Contains(t, body, "#!ipxe")
	assert.Contains(t, body, "kernel --name kernel http://imgs/kernel")
	assert.Contains(t, body, "xname=nid01")
	assert.Contains(t, body, "boot || goto boot_retry")
}

func TestGetUnknownHostServesRetryScript(t *testing.T) {
	_, c := newTestSetup(t)

	rec := get(c, "/bootscript?name=ghost")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "sleep 10")
	assert.Contains(t, body, "chain http://bss.local")
	assert.NotContains(t, body, "kernel --name")
}

func TestGetUnknownHostFallsBackToDefault(t *testing.T) {
	eng, c := newTestSetup(t)
	require.NoError(t, eng.Create(context.Background(), []string{"Default"}, engine.BootTuple{
		Kernel: "http://imgs/default-kernel",
		Initrd: "http://imgs/default-initrd",
	}))

	rec := get(c, "/bootscript?name=ghost")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http://imgs/default-kernel")
}
