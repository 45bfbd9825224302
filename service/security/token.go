package security

import (
	"fmt"
	"time"

	"zestpass/db"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWT service
type JWTService struct {
	secretKey              []byte
	tokenExpiration        time.Duration
	refreshTokenExpiration time.Duration
}

// Custom type for token type
type TokenType string

// Constant defined
const (
	Issuer = "zestpass"

	AccessToken  TokenType = "access-token"
	RefreshToken TokenType = "refresh-token"
)

// Custom claim definition
type CustomClaims struct {
	ID                   uuid.UUID `json:"id"` // UserID
	Role                 db.Role   `json:"role"`
	TokenType            TokenType `json:"token_type"`
	jwt.RegisteredClaims           // Embed the JWT Registered claims
}

// Constructor for JWT service
func NewJWTService(secretKey []byte, tokenExpiration, refreshTokenExpiration time.Duration) *JWTService {
	return &JWTService{
		secretKey:              secretKey,
		tokenExpiration:        tokenExpiration,
		refreshTokenExpiration: refreshTokenExpiration,
	}
}

// Create token
func (service *JWTService) CreateToken(id uuid.UUID, role db.Role, tokenType TokenType) (string, error) {
	// Check token type and decide expiration time based on type
	var expiration time.Duration
	switch tokenType {
	case AccessToken:
		expiration = service.tokenExpiration
	case RefreshToken:
		expiration = service.refreshTokenExpiration
	default:
		return "", fmt.Errorf("invalid token type")
	}

	now := time.Now()
	claims := CustomClaims{
		ID:        id,
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,                                   // Who issue this token
			Subject:   id.String(),                              // Whom the token is about
			ID:        uuid.NewString(),                         // Token ID, so two tokens issued in the same second differ
			IssuedAt:  jwt.NewNumericDate(now),                  // When the token is created
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)), // When the token is expired
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(service.secretKey)
}

// Verify token
func (service *JWTService) VerifyToken(signedToken string) (*CustomClaims, error) {
	// Use custom parser with a 30 secs leeway
	parser := jwt.NewParser(jwt.WithLeeway(30*time.Second), jwt.WithIssuer(Issuer))

	parsedToken, err := parser.ParseWithClaims(signedToken, &CustomClaims{}, func(token *jwt.Token) (any, error) {
		// Check for signing method to avoid [alg: none] trick
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return service.secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsedToken.Claims.(*CustomClaims)
	if !(ok && parsedToken.Valid) {
		return nil, jwt.ErrTokenInvalidClaims
	}

	// Check if the token type is correct
	if claims.TokenType != AccessToken && claims.TokenType != RefreshToken {
		return nil, fmt.Errorf("invalid token type: %s", claims.TokenType)
	}

	// Check if role is of those defined in the system
	switch claims.Role {
	case db.Customer, db.Host, db.Staff, db.Admin:
	default:
		return nil, fmt.Errorf("invalid user role: %s", claims.Role)
	}

	return claims, nil
}
