package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/bootjohn/internal/security/apikey"
)

type client struct {
	BaseURL   string
	APIKey    string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) do(method, path string, body []byte) (int, []byte, error) {
	u := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, u, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	if c.APIKey != "" {
		req.Header.Set("X-Admin-API-Key", c.APIKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

// bootParams es el payload de create/update. Espejo del DTO del servicio.
type bootParams struct {
	Hosts     []string        `json:"hosts"`
	Kernel    string          `json:"kernel,omitempty"`
	Initrd    string          `json:"initrd,omitempty"`
	Params    string          `json:"params,omitempty"`
	CloudInit json.RawMessage `json:"cloud_init,omitempty"`
}

func main() {
	var (
		baseURL = envOr("BOOTJOHN_URL", "http://localhost:27778")
		apiKey  = envOr("BOOTJOHN_ADMIN_KEY", "")
		out     = envOr("BOOTJOHN_OUT", "text")
		timeout = 30 * time.Second
	)

	root := &cobra.Command{
		Use:   "bootjohn",
		Short: "CLI para el servicio de boot parameters",
	}

	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "URL base del servicio (env BOOTJOHN_URL)")
	root.PersistentFlags().StringVar(&apiKey, "admin-api-key", apiKey, "API key administrativa (env BOOTJOHN_ADMIN_KEY)")
	root.PersistentFlags().StringVar(&out, "out", out, "Formato de salida: json|text")

	cl := &client{HTTP: &http.Client{Timeout: timeout}}
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cl.BaseURL = baseURL
		cl.APIKey = apiKey
		cl.OutFormat = out
	}

	// -----------------------------------------------------------------------
	// bootparameters
	// -----------------------------------------------------------------------
	bpCmd := &cobra.Command{
		Use:     "bootparameters",
		Aliases: []string{"bp"},
		Short:   "Administrar parámetros de boot por host",
	}

	var cHosts []string
	var cKernel, cInitrd, cParams, cCloudInit string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Asignar parámetros de boot a uno o más hosts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cKernel == "" || cInitrd == "" {
				return fmt.Errorf("--kernel y --initrd son requeridos")
			}
			payload, err := buildParams(cHosts, cKernel, cInitrd, cParams, cCloudInit)
			if err != nil {
				return err
			}
			b, _ := json.Marshal(payload)
			status, body, err := cl.do("POST", "/boot/v1/bootparameters", b)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("create fallo: status=%d body=%s", status, string(body))
			}
			if cl.OutFormat == "text" {
				fmt.Println("ok")
				return nil
			}
			cl.print(status, body)
			return nil
		},
	}
	createCmd.Flags().StringSliceVar(&cHosts, "hosts", nil, "Hosts destino (repetible o separado por comas)")
	createCmd.Flags().StringVar(&cKernel, "kernel", "", "URL de la imagen de kernel")
	createCmd.Flags().StringVar(&cInitrd, "initrd", "", "URL de la imagen de initrd")
	createCmd.Flags().StringVar(&cParams, "params", "", "Parámetros de línea de comandos del kernel")
	createCmd.Flags().StringVar(&cCloudInit, "cloud-init", "", "JSON de cloud-init, inline o @archivo")

	var lHosts []string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Listar parámetros asignados, opcionalmente filtrados por host",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/boot/v1/bootparameters"+nameQuery(lHosts), nil)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("list fallo: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}
	listCmd.Flags().StringSliceVar(&lHosts, "hosts", nil, "Filtrar por hosts (vacío lista todo)")

	var uHosts []string
	var uKernel, uInitrd, uParams, uCloudInit string
	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Actualizar campos de hosts ya asignados (cloud-init se mergea)",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := buildParams(uHosts, uKernel, uInitrd, uParams, uCloudInit)
			if err != nil {
				return err
			}
			b, _ := json.Marshal(payload)
			status, body, err := cl.do("PATCH", "/boot/v1/bootparameters", b)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("update fallo: status=%d body=%s", status, string(body))
			}
			if cl.OutFormat == "text" {
				fmt.Println("ok")
				return nil
			}
			cl.print(status, body)
			return nil
		},
	}
	updateCmd.Flags().StringSliceVar(&uHosts, "hosts", nil, "Hosts destino")
	updateCmd.Flags().StringVar(&uKernel, "kernel", "", "URL de la imagen de kernel")
	updateCmd.Flags().StringVar(&uInitrd, "initrd", "", "URL de la imagen de initrd")
	updateCmd.Flags().StringVar(&uParams, "params", "", "Parámetros de línea de comandos del kernel")
	updateCmd.Flags().StringVar(&uCloudInit, "cloud-init", "", "JSON de cloud-init, inline o @archivo")

	var dHosts []string
	var dAll bool
	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Quitar la asignación de uno o más hosts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(dHosts) == 0 && !dAll {
				return fmt.Errorf("--hosts o --all es requerido")
			}
			b, _ := json.Marshal(map[string]any{"hosts": dHosts, "all": dAll})
			status, body, err := cl.do("DELETE", "/boot/v1/bootparameters", b)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("delete fallo: status=%d body=%s", status, string(body))
			}
			if cl.OutFormat == "text" {
				fmt.Println("ok")
				return nil
			}
			cl.print(status, body)
			return nil
		},
	}
	deleteCmd.Flags().StringSliceVar(&dHosts, "hosts", nil, "Hosts a desasignar")
	deleteCmd.Flags().BoolVar(&dAll, "all", false, "Borrar todas las asignaciones")

	bpCmd.AddCommand(createCmd, listCmd, updateCmd, deleteCmd)

	// -----------------------------------------------------------------------
	// hosts / dumpstate / bootscript
	// -----------------------------------------------------------------------
	hostsCmd := &cobra.Command{
		Use:   "hosts",
		Short: "Listar hosts con parámetros asignados",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/boot/v1/hosts", nil)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("hosts fallo: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}

	dumpCmd := &cobra.Command{
		Use:   "dumpstate",
		Short: "Volcar la agrupación interna de configuraciones (diagnóstico)",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/boot/v1/dumpstate", nil)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("dumpstate fallo: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}

	var bsName string
	var bsRetry int
	bootscriptCmd := &cobra.Command{
		Use:   "bootscript",
		Short: "Pedir el script iPXE de un host (como lo vería la máquina)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if bsName == "" {
				return fmt.Errorf("--name es requerido")
			}
			q := url.Values{"name": {bsName}}
			if bsRetry > 0 {
				q.Set("retry", fmt.Sprintf("%d", bsRetry))
			}
			status, body, err := cl.do("GET", "/boot/v1/bootscript?"+q.Encode(), nil)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("bootscript fallo: status=%d body=%s", status, string(body))
			}
			fmt.Print(string(body))
			return nil
		},
	}
	bootscriptCmd.Flags().StringVar(&bsName, "name", "", "Nombre del host")
	bootscriptCmd.Flags().IntVar(&bsRetry, "retry", 0, "Contador de retry")

	// -----------------------------------------------------------------------
	// apikey hash (local, no pega al servicio)
	// -----------------------------------------------------------------------
	apikeyCmd := &cobra.Command{Use: "apikey", Short: "Utilidades de API key"}
	hashCmd := &cobra.Command{
		Use:   "hash <key>",
		Short: "Generar el hash bcrypt de una API key para la configuración",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := apikey.Hash(args[0])
			if err != nil {
				return err
			}
			fmt.Println(h)
			return nil
		},
	}
	apikeyCmd.AddCommand(hashCmd)

	root.AddCommand(bpCmd, hostsCmd, dumpCmd, bootscriptCmd, apikeyCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func buildParams(hosts []string, kernel, initrd, params, cloudInit string) (bootParams, error) {
	if len(hosts) == 0 {
		return bootParams{}, fmt.Errorf("--hosts es requerido")
	}
	p := bootParams{Hosts: hosts, Kernel: kernel, Initrd: initrd, Params: params}
	if cloudInit != "" {
		raw, err := readCloudInit(cloudInit)
		if err != nil {
			return bootParams{}, err
		}
		p.CloudInit = raw
	}
	return p, nil
}

// readCloudInit acepta JSON inline o @ruta/a/archivo.
func readCloudInit(arg string) (json.RawMessage, error) {
	var data []byte
	if strings.HasPrefix(arg, "@") {
		b, err := os.ReadFile(strings.TrimPrefix(arg, "@"))
		if err != nil {
			return nil, err
		}
		data = b
	} else {
		data = []byte(arg)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("cloud-init no es JSON válido")
	}
	return json.RawMessage(data), nil
}

func nameQuery(hosts []string) string {
	if len(hosts) == 0 {
		return ""
	}
	q := url.Values{}
	for _, h := range hosts {
		q.Add("name", h)
	}
	return "?" + q.Encode()
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
