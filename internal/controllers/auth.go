package controllers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adamanr/hcm_gateway/internal/backend"
	"github.com/adamanr/hcm_gateway/internal/entity"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

const (
	TokenSize = 16

	accessTokenPrefix  = "access_token:"
	refreshTokenPrefix = "refresh_token:"

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type AuthController struct {
	deps *Dependens
}

func NewAuthController(deps *Dependens) *AuthController {
	return &AuthController{
		deps: deps,
	}
}

// AuthLogin checks the credentials against the backend and issues a token pair.
func (c *AuthController) AuthLogin(ctx context.Context, req *entity.LoginRequest) (*entity.LoginResponse, error) {
	if err := c.deps.validate(req); err != nil {
		return nil, err
	}
	if req.UserType == 0 {
		req.UserType = 1
	}

	user, err := c.deps.Backend.AuthUser(ctx, *req)
	if err != nil {
		if rejectedByBackend(err) {
			c.deps.Logger.Warn("Invalid credentials", slog.String("user_name", req.UserName))
			return nil, ErrInvalidCredentials
		}

		c.deps.Logger.Error("Error authenticating user", slog.String("error", err.Error()))
		return nil, err
	}

	if user.EmployeeKey() == 0 {
		c.deps.Logger.Warn("Invalid credentials", slog.String("user_name", req.UserName))
		return nil, ErrInvalidCredentials
	}

	claims := entity.Claims{
		ID:        uint64(user.EmployeeKey()),
		UserName:  req.UserName,
		CompanyID: user.ChildCompanyID.Int64(),
		UserType:  user.UserType.Int64(),
	}
	if claims.UserType == 0 {
		claims.UserType = int64(req.UserType)
	}

	employee, err := c.deps.Backend.GetEmployee(ctx, user.EmployeeKey())
	if err != nil {
		c.deps.Logger.Warn("Error loading employee on login",
			slog.Int64("employee_id", user.EmployeeKey()),
			slog.String("error", err.Error()),
		)
		employee = nil
	}
	if employee != nil {
		employee.Password = ""
		if claims.CompanyID == 0 {
			claims.CompanyID = employee.ChildCompanyID.Int64()
		}
	}

	resp, err := c.issueTokens(ctx, claims)
	if err != nil {
		return nil, err
	}
	resp.Employee = employee

	c.deps.Logger.Info("User logged in", slog.Uint64("employee_id", claims.ID))
	return resp, nil
}

// Refresh exchanges a live refresh token for a new pair. The presented
// refresh token is revoked.
func (c *AuthController) Refresh(ctx context.Context, refreshToken string) (*entity.LoginResponse, error) {
	claims, err := c.verifyToken(ctx, refreshTokenPrefix, refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	if err := c.deps.Redis.Del(ctx, refreshTokenPrefix+refreshToken).Err(); err != nil {
		c.deps.Logger.Error("Error revoking refresh token", slog.String("error", err.Error()))
		return nil, err
	}

	return c.issueTokens(ctx, entity.Claims{
		ID:        claims.ID,
		UserName:  claims.UserName,
		CompanyID: claims.CompanyID,
		UserType:  claims.UserType,
	})
}

// AuthLogout revokes the access token and, when given, the refresh token.
func (c *AuthController) AuthLogout(ctx context.Context, accessToken, refreshToken string) error {
	keys := []string{accessTokenPrefix + accessToken}
	if refreshToken != "" {
		keys = append(keys, refreshTokenPrefix+refreshToken)
	}

	if err := c.deps.Redis.Del(ctx, keys...).Err(); err != nil {
		c.deps.Logger.Error("Error deleting tokens from Redis", slog.String("error", err.Error()))
		return err
	}

	return nil
}

func (c *AuthController) CheckUserToken(ctx context.Context, authHeader string) (*entity.Claims, error) {
	tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenStr == authHeader || tokenStr == "" {
		c.deps.Logger.Warn("Invalid bearer token")
		return nil, ErrInvalidToken
	}

	return c.verifyToken(ctx, accessTokenPrefix, tokenStr, tokenTypeAccess)
}

func (c *AuthController) verifyToken(ctx context.Context, prefix, tokenStr, tokenType string) (*entity.Claims, error) {
	if err := c.deps.Redis.Get(ctx, prefix+tokenStr).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			c.deps.Logger.Warn("Token revoked", slog.String("token_type", tokenType))
			return nil, ErrTokenRevoked
		}

		c.deps.Logger.Error("Error checking token", slog.String("error", err.Error()))
		return nil, err
	}

	token, err := jwt.ParseWithClaims(tokenStr, &entity.Claims{}, func(_ *jwt.Token) (any, error) {
		return []byte(c.deps.Config.Server.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		c.deps.Logger.Warn("Error parsing token", slog.String("error", err.Error()))
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*entity.Claims)
	if !ok || !token.Valid || claims.TokenType != tokenType {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (c *AuthController) issueTokens(ctx context.Context, claims entity.Claims) (*entity.LoginResponse, error) {
	accessToken, err := c.createToken(claims, tokenTypeAccess)
	if err != nil {
		return nil, err
	}

	refreshToken, err := c.createToken(claims, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	employeeID := strconv.FormatUint(claims.ID, 10)
	if err = c.deps.Redis.Set(ctx, accessTokenPrefix+accessToken, employeeID, c.deps.Config.Redis.AccessTokenTTL).Err(); err != nil {
		c.deps.Logger.Error("Error setting access token", slog.String("error", err.Error()))
		return nil, err
	}

	if err = c.deps.Redis.Set(ctx, refreshTokenPrefix+refreshToken, employeeID, c.deps.Config.Redis.RefreshTokenTTL).Err(); err != nil {
		c.deps.Logger.Error("Error setting refresh token", slog.String("error", err.Error()))
		return nil, err
	}

	return &entity.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (c *AuthController) createToken(claims entity.Claims, tokenType string) (string, error) {
	tokenID, err := generateTokenID()
	if err != nil {
		c.deps.Logger.Error("Error generating token ID", slog.String("error", err.Error()))
		return "", err
	}

	ttl := c.deps.Config.Redis.AccessTokenTTL
	if tokenType == tokenTypeRefresh {
		ttl = c.deps.Config.Redis.RefreshTokenTTL
	}

	now := time.Now()
	claims.TokenType = tokenType
	claims.TokenID = tokenID
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(claims.ID, 10),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString([]byte(c.deps.Config.Server.JWTSecret))
	if err != nil {
		c.deps.Logger.Error("Error signing token", slog.String("error", err.Error()))
		return "", err
	}

	return tokenStr, nil
}

// rejectedByBackend reports a 4xx answer, which the login endpoint uses
// for unknown users and wrong passwords.
func rejectedByBackend(err error) bool {
	var backendErr *backend.Error
	if !errors.As(err, &backendErr) {
		return errors.Is(err, backend.ErrNotFound)
	}

	return backendErr.Status >= http.StatusBadRequest && backendErr.Status < http.StatusInternalServerError
}

func generateTokenID() (string, error) {
	b := make([]byte, TokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
