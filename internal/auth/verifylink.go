package auth

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VerificationLinkTTL is how long a signed verification link stays valid.
const VerificationLinkTTL = 60 * time.Minute

// ErrBadLinkToken is returned for any link token that fails signature,
// expiry or shape checks. Callers surface it uniformly as an invalid link
// without distinguishing the cause.
var ErrBadLinkToken = errors.New("verification link token is invalid or expired")

// EmailDigest returns the hex SHA-1 digest of an email address as carried
// in verification links.
func EmailDigest(email string) string {
	sum := sha1.Sum([]byte(email))
	return hex.EncodeToString(sum[:])
}

type linkClaims struct {
	EmailHash string `json:"hash"`
	jwt.RegisteredClaims
}

// LinkSigner mints and parses the signed tokens embedded in email
// verification links. The signature binds the user id and an email digest
// so a link cannot be replayed for a different identity; expiry rides on
// the token itself.
type LinkSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewLinkSigner creates a LinkSigner with the given HMAC secret.
func NewLinkSigner(secret string) *LinkSigner {
	return &LinkSigner{secret: []byte(secret), ttl: VerificationLinkTTL}
}

// Sign issues a verification link token for the user id and email.
func (s *LinkSigner) Sign(userID, email string) (string, error) {
	now := time.Now()
	claims := linkClaims{
		EmailHash: EmailDigest(email),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing verification link: %w", err)
	}
	return signed, nil
}

// Parse validates a link token and returns the embedded user id and email
// digest. Expired or tampered tokens yield ErrBadLinkToken.
func (s *LinkSigner) Parse(tokenString string) (userID, emailHash string, err error) {
	claims := &linkClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	)
	if err != nil || !token.Valid {
		return "", "", ErrBadLinkToken
	}
	if claims.Subject == "" || claims.EmailHash == "" {
		return "", "", ErrBadLinkToken
	}
	return claims.Subject, claims.EmailHash, nil
}
