package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"church-admin/internal/policy"
)

// 身份提供方的令牌角色
const (
	RoleAuthenticated = "authenticated"
	RoleService       = "service_role"
)

// Claims 与托管身份服务的访问令牌一致：sub 即 auth_id
type Claims struct {
	Email        string         `json:"email,omitempty"`
	Role         string         `json:"role"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) IsService() bool { return c.Role == RoleService }

func (c *Claims) Identity() policy.Identity {
	return policy.Identity{AuthID: c.Subject, Email: c.Email, Metadata: c.UserMetadata}
}

type JWTer struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// Issue 主要给测试和运维工具用；线上令牌由身份提供方签发
func (j *JWTer) Issue(authID, email, role string, meta map[string]any) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:        email,
		Role:         role,
		UserMetadata: meta,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   authID,
			Issuer:    j.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.Secret)
}

func (j *JWTer) Parse(tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg")
		}
		return j.Secret, nil
	}, jwt.WithIssuer(j.Issuer), jwt.WithLeeway(60*time.Second), jwt.WithExpirationRequired())

	if err != nil {
		return nil, err
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, errors.New("invalid token")
	}
	if c.Subject == "" && !c.IsService() {
		return nil, errors.New("token has no subject")
	}
	return c, nil
}
