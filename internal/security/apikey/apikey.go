// Package apikey verifica la API key administrativa contra su hash bcrypt.
// El servicio nunca guarda la key en claro: la configuración lleva solo el
// hash, generado con `bootjohn apikey hash`.
package apikey

import (
	"golang.org/x/crypto/bcrypt"
)

// Verifier compara keys presentadas contra el hash configurado.
type Verifier struct {
	hash []byte
}

// New crea un Verifier. Un hash vacío deshabilita la verificación
// (Enabled() == false): útil en dev.
func New(hash string) *Verifier {
	return &Verifier{hash: []byte(hash)}
}

// Enabled reporta si hay un hash configurado.
func (v *Verifier) Enabled() bool {
	return len(v.hash) > 0
}

// Verify compara la key presentada contra el hash.
func (v *Verifier) Verify(presented string) bool {
	if !v.Enabled() || presented == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(v.hash, []byte(presented)) == nil
}

// Hash genera el hash bcrypt de una key (para el comando de CLI).
func Hash(key string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
