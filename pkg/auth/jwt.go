package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jwalitptl/vet-portal/internal/model"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carry the current-user record. Issuing real sessions belongs to the
// authentication provider; this package only reads what it hands over.
type Claims struct {
	jwt.RegisteredClaims
	Name string     `json:"name"`
	Role model.Role `json:"role"`
}

type JWTService interface {
	GenerateAccessToken(identity model.Identity) (string, error)
	ValidateToken(token string) (model.Identity, error)
}

type hmacService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTService(secret, issuer string, ttl time.Duration) JWTService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &hmacService{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

func (s *hmacService) GenerateAccessToken(identity model.Identity) (string, error) {
	if identity.PersonID == "" || !identity.Role.Valid() {
		return "", fmt.Errorf("%w: identity needs a person id and a known role", ErrInvalidToken)
	}
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.PersonID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Name: identity.Name,
		Role: identity.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *hmacService) ValidateToken(token string) (model.Identity, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return model.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return model.Identity{}, ErrInvalidToken
	}
	return model.Identity{PersonID: claims.Subject, Name: claims.Name, Role: claims.Role}, nil
}
