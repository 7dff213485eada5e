// Package boottoken emite y verifica los tokens de boot firmados.
//
// El token se inyecta en los kernel params como ${BSS_TOKEN}: el nodo que
// bootea lo presenta en requests posteriores (cloud-init, telemetría) para
// probar que es quien dice ser. HS256 con secreto compartido; subject = host.
package boottoken

import (
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Issuer firma y verifica tokens de boot.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// New crea un Issuer. TTL cero usa 5 minutos: el token solo tiene que
// sobrevivir la ventana entre servir el script y el primer request del nodo.
func New(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Issue emite un token para el host.
func (i *Issuer) Issue(host string) (string, error) {
	now := time.Now()
	claims := jwtv5.RegisteredClaims{
		Subject:   host,
		Issuer:    "bootjohn",
		IssuedAt:  jwtv5.NewNumericDate(now),
		ExpiresAt: jwtv5.NewNumericDate(now.Add(i.ttl)),
	}
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("boottoken: sign for %s: %w", host, err)
	}
	return signed, nil
}

// Verify valida el token y retorna el host (subject).
func (i *Issuer) Verify(token string) (string, error) {
	var claims jwtv5.RegisteredClaims
	_, err := jwtv5.ParseWithClaims(token, &claims, func(t *jwtv5.Token) (any, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("boottoken: unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwtv5.WithValidMethods([]string{"HS256"}), jwtv5.WithIssuer("bootjohn"))
	if err != nil {
		return "", fmt.Errorf("boottoken: verify: %w", err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("boottoken: token without subject")
	}
	return claims.Subject, nil
}
