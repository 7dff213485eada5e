package helpers

import (
	"encoding/json"
	"io"
	"net/http"
)

// WriteJSON serializa v con el status dado.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON decodifica el body en dst. Limita el tamaño a 1 MiB y rechaza
// campos desconocidos: un typo en un nombre de campo no debe pasar en
// silencio. El error de retorno ya viene mapeado a 400.
func DecodeJSON(r *http.Request, dst any) *HTTPError {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return ErrInvalidJSON.WithDetail("empty request body")
		}
		return ErrInvalidJSON.WithDetail(err.Error())
	}
	return nil
}
