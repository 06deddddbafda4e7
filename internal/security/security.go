// Package security provides password hashing, JWT session tokens, and TOTP
// helpers.
package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidToken indicates a token that failed parsing or validation.
var ErrInvalidToken = errors.New("invalid token")

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hashed, errHash := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errHash != nil {
		return "", fmt.Errorf("hash password: %w", errHash)
	}
	return string(hashed), nil
}

// CheckPassword reports whether the plaintext matches the bcrypt hash.
func CheckPassword(hashed, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}

// GenerateRandomString returns a URL-safe random string of n bytes entropy.
func GenerateRandomString(n int) (string, error) {
	buf := make([]byte, n)
	if _, errRead := rand.Read(buf); errRead != nil {
		return "", fmt.Errorf("random string: %w", errRead)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// UserClaims are the JWT claims of a session token.
type UserClaims struct {
	UserID uint64 `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// CreateUserToken signs a session token for the user.
func CreateUserToken(secret string, userID uint64, role string, expiry time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := UserClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, errSign := token.SignedString([]byte(secret))
	if errSign != nil {
		return "", fmt.Errorf("sign token: %w", errSign)
	}
	return signed, nil
}

// ParseUserToken validates a session token and returns its claims.
func ParseUserToken(secret, raw string) (*UserClaims, error) {
	claims := &UserClaims{}
	token, errParse := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if errParse != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// totpChallengePurpose marks interim tokens that can only complete a TOTP
// login, never act as a session.
const totpChallengePurpose = "totp-challenge"

// totpChallengeExpiry bounds how long a login may wait for its TOTP code.
const totpChallengeExpiry = 5 * time.Minute

// challengeClaims are the JWT claims of a TOTP login challenge token.
type challengeClaims struct {
	UserID  uint64 `json:"uid"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// CreateTOTPChallengeToken signs a short-lived token handed out after the
// password check when the account still owes a TOTP code.
func CreateTOTPChallengeToken(secret string, userID uint64) (string, error) {
	now := time.Now().UTC()
	claims := challengeClaims{
		UserID:  userID,
		Purpose: totpChallengePurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(totpChallengeExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, errSign := token.SignedString([]byte(secret))
	if errSign != nil {
		return "", fmt.Errorf("sign challenge token: %w", errSign)
	}
	return signed, nil
}

// ParseTOTPChallengeToken validates a challenge token and returns the user it
// was issued for. Session tokens are rejected.
func ParseTOTPChallengeToken(secret, raw string) (uint64, error) {
	claims := &challengeClaims{}
	token, errParse := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if errParse != nil || !token.Valid || claims.Purpose != totpChallengePurpose {
		return 0, ErrInvalidToken
	}
	return claims.UserID, nil
}

// GenerateTOTPSecret provisions a TOTP secret for an account and returns the
// shared secret plus the otpauth enrollment URL.
func GenerateTOTPSecret(issuer, account string) (secret string, url string, err error) {
	key, errGenerate := totp.Generate(totp.GenerateOpts{Issuer: issuer, AccountName: account})
	if errGenerate != nil {
		return "", "", fmt.Errorf("generate totp secret: %w", errGenerate)
	}
	return key.Secret(), key.URL(), nil
}

// VerifyTOTP reports whether the code is valid for the secret right now.
func VerifyTOTP(secret, code string) bool {
	return totp.Validate(code, secret)
}
