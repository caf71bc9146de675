package jwtutil

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Audience suffixes per token purpose. A reset token can never pass as an
// access token and vice versa.
const (
	audAuth   = ":auth"
	audReset  = ":reset"
	audVerify = ":verify"
)

var ErrInvalidToken = errors.New("invalid token")

// UserClaims represents the JWT claims for user authentication
type UserClaims struct {
	Role        string `json:"role,omitempty"`
	Email       string `json:"email,omitempty"`
	Fingerprint string `json:"fgpt,omitempty"`
	jwt.RegisteredClaims
}

// JWTUtil signs tokens with an RSA private key and verifies them with the
// matching public key. Key material is loaded once at process start and is
// read-only afterwards.
type JWTUtil struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	audience   string
	lifetime   time.Duration
}

// NewFromKeys creates a JWT utility from an already-loaded key pair.
// audience is the base audience; the per-purpose suffix is appended.
func NewFromKeys(privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey, audience string, lifetime time.Duration) *JWTUtil {
	return &JWTUtil{
		privateKey: privateKey,
		publicKey:  publicKey,
		audience:   audience,
		lifetime:   lifetime,
	}
}

// GenerateToken creates an access token encoding the user id, audience and
// role, expiring after the configured lifetime.
func (j *JWTUtil) GenerateToken(userID string, role string) (string, error) {
	claims := UserClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{j.audience + audAuth},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(j.lifetime)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(j.privateKey)
}

// ValidateToken verifies signature, audience and expiry of an access token
// and returns its claims.
func (j *JWTUtil) ValidateToken(tokenString string) (*UserClaims, error) {
	return j.parse(tokenString, j.audience+audAuth)
}

// GenerateResetToken creates a single-use password reset token. The token
// carries a fingerprint of the current password hash, so it stops
// verifying as soon as the password changes.
func (j *JWTUtil) GenerateResetToken(userID string, hashedPassword string) (string, error) {
	claims := UserClaims{
		Fingerprint: fingerprint(hashedPassword),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{j.audience + audReset},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(j.lifetime)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(j.privateKey)
}

// ValidateResetToken verifies signature, audience and expiry of a reset
// token and returns its claims. The caller still has to check the
// fingerprint against the user's current hash with MatchesFingerprint.
func (j *JWTUtil) ValidateResetToken(tokenString string) (*UserClaims, error) {
	return j.parse(tokenString, j.audience+audReset)
}

// MatchesFingerprint reports whether a reset token fingerprint still
// matches the given password hash. A password change invalidates every
// reset token issued before it.
func MatchesFingerprint(hashedPassword string, fp string) bool {
	return fp != "" && fp == fingerprint(hashedPassword)
}

// GenerateVerifyToken creates an email verification token.
func (j *JWTUtil) GenerateVerifyToken(userID string, email string) (string, error) {
	claims := UserClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{j.audience + audVerify},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(j.lifetime)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(j.privateKey)
}

// ValidateVerifyToken verifies an email verification token and returns the
// subject user id and the email it was issued for.
func (j *JWTUtil) ValidateVerifyToken(tokenString string) (string, string, error) {
	claims, err := j.parse(tokenString, j.audience+audVerify)
	if err != nil {
		return "", "", err
	}
	return claims.Subject, claims.Email, nil
}

func (j *JWTUtil) parse(tokenString string, audience string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&UserClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, ErrInvalidToken
			}
			return j.publicKey, nil
		},
		jwt.WithAudience(audience),
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func fingerprint(hashedPassword string) string {
	sum := sha256.Sum256([]byte(hashedPassword))
	return hex.EncodeToString(sum[:8])
}
