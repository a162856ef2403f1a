package httpserver

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const gameCookieName = "guessmaster_game"

// gameCookie carries the current game ID as an HS256 JWT so clients cannot
// forge or tamper with another player's handle.
type gameCookie struct {
	secret []byte
	secure bool
	ttl    time.Duration
}

func newGameCookie(secret string, secure bool, ttl time.Duration) gameCookie {
	if secret == "" {
		secret = "dev_secret_change_me"
	}
	return gameCookie{secret: []byte(secret), secure: secure, ttl: ttl}
}

func (c gameCookie) sameSite() http.SameSite {
	if c.secure {
		return http.SameSiteNoneMode // required for cross-site contexts when Secure
	}
	return http.SameSiteLaxMode
}

// sign creates the token for gameID.
func (c gameCookie) sign(gameID string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(c.ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   gameID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	ss, err := t.SignedString(c.secret)
	return ss, exp, err
}

// set writes the cookie for gameID.
func (c gameCookie) set(w http.ResponseWriter, gameID string) error {
	tok, exp, err := c.sign(gameID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     gameCookieName,
		Value:    tok,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: c.sameSite(),
		Expires:  exp,
	})
	return nil
}

// clear deletes the cookie.
func (c gameCookie) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     gameCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: c.sameSite(),
		MaxAge:   -1,
	})
}

// gameID returns the game ID from a valid cookie, or "" when absent or invalid.
func (c gameCookie) gameID(r *http.Request) string {
	ck, err := r.Cookie(gameCookieName)
	if err != nil || ck.Value == "" {
		return ""
	}
	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(ck.Value, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return ""
	}
	return claims.Subject
}
