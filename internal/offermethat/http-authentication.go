// Authentication for the offermethat API. Agents sign in with email and
// password and get a JWT access/refresh pair, either as cookies or in the
// response body. The refresh token prolongs expired access tokens.
package offermethat

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/apierrors"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/dao"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/types"
	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"
)

const (
	TokenExpiresPeriod        = time.Hour * 24
	RefreshTokenExpiresPeriod = time.Hour * 24 * 30
)

type Authentication struct {
	db     *gorm.DB
	secret []byte
}

type AuthContext struct {
	echo.Context
	User         *dao.User
	AccessToken  *Token
	RefreshToken *Token
}

type AuthConfig struct {
	Secret  []byte
	DB      *gorm.DB
	Skipper middleware.Skipper
}

type Token struct {
	JWT          *jwt.Token
	SignedString string
	Type         string
}

// GenJwtToken issues a signed token of the given type for a user.
func GenJwtToken(secret []byte, tokenType string, userID string) (*Token, error) {
	u, _ := uuid.NewV4()
	claims := jwt.MapClaims{
		"exp":        jwt.NewNumericDate(time.Now().Add(TokenExpiresPeriod)),
		"iat":        jwt.NewNumericDate(time.Now()),
		"jti":        fmt.Sprintf("%x", u),
		"token_type": tokenType,
		"user_id":    userID,
	}
	if tokenType == "refresh" {
		claims["exp"] = jwt.NewNumericDate(time.Now().Add(RefreshTokenExpiresPeriod))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedString, err := token.SignedString(secret)
	if err != nil {
		return nil, err
	}

	sigStr := signedString[strings.LastIndex(signedString, ".")+1:]
	sig, err := base64.RawURLEncoding.DecodeString(sigStr)
	if err != nil {
		return nil, err
	}
	token.Signature = sig

	return &Token{
		JWT:          token,
		SignedString: signedString,
		Type:         tokenType,
	}, nil
}

func createAccessToken(userID string) (*Token, *Token, error) {
	ta, err := GenJwtToken([]byte(cfg.SecretKey), "access", userID)
	if err != nil {
		return nil, nil, err
	}

	tr, err := GenJwtToken([]byte(cfg.SecretKey), "refresh", userID)
	if err != nil {
		return nil, nil, err
	}
	return ta, tr, err
}

func setAuthCookies(c echo.Context, accessToken *Token, refreshToken *Token) {
	accessCookie := new(http.Cookie)
	accessCookie.Name = "access_token"
	accessCookie.Value = accessToken.SignedString
	accessCookie.HttpOnly = true
	accessCookie.Secure = true
	accessCookie.Path = "/"
	accessCookie.SameSite = http.SameSiteNoneMode
	accessCookie.Expires = time.Now().Add(TokenExpiresPeriod)
	c.SetCookie(accessCookie)

	refreshCookie := new(http.Cookie)
	refreshCookie.Name = "refresh_token"
	refreshCookie.Value = refreshToken.SignedString
	refreshCookie.HttpOnly = true
	refreshCookie.Secure = true
	refreshCookie.Path = "/"
	refreshCookie.SameSite = http.SameSiteNoneMode
	refreshCookie.Expires = time.Now().Add(RefreshTokenExpiresPeriod)
	c.SetCookie(refreshCookie)
}

func clearAuthCookies(c echo.Context) {
	for _, name := range []string{"access_token", "refresh_token"} {
		cookie := new(http.Cookie)
		cookie.Name = name
		cookie.Value = ""
		cookie.HttpOnly = true
		cookie.Secure = true
		cookie.Path = "/"
		cookie.SameSite = http.SameSiteNoneMode
		cookie.MaxAge = -1
		c.SetCookie(cookie)
	}
}

func AuthMiddleware(config AuthConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method == "OPTIONS" {
				return c.NoContent(http.StatusOK)
			}

			if config.Skipper != nil && config.Skipper(c) {
				return next(c)
			}

			var refreshToken *Token
			var accessToken *Token

			schema, tokenString, ok := strings.Cut(c.Request().Header.Get("Authorization"), " ")
			if !ok {
				// Cookie token
				if accessCookie, err := c.Cookie("access_token"); err == nil && accessCookie != nil {
					accessToken = new(Token)
					accessToken.SignedString = accessCookie.Value
					accessToken.Type = "access"
				}

				if refreshCookie, err := c.Cookie("refresh_token"); err == nil && refreshCookie != nil {
					refreshToken = new(Token)
					refreshToken.SignedString = refreshCookie.Value
					refreshToken.Type = "refresh"
				}

				if refreshToken == nil && accessToken == nil {
					return EErrorDefined(c, apierrors.ErrTokenInvalid)
				}
			} else {
				accessToken = new(Token)
				accessToken.SignedString = strings.TrimSpace(tokenString)
				accessToken.Type = strings.TrimSpace(schema)
			}

			keyFunc := func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return config.Secret, nil
			}

			var accessError error
			if accessToken != nil {
				accessToken.JWT, accessError = jwt.Parse(accessToken.SignedString, keyFunc)
			}

			if refreshToken != nil {
				if refreshToken.JWT, accessError = jwt.Parse(refreshToken.SignedString, keyFunc); accessError != nil {
					return EErrorDefined(c, apierrors.ErrTokenInvalid)
				}
			}

			var user *dao.User

			// Prolong if expired
			if errors.Is(accessError, jwt.ErrTokenExpired) || accessToken == nil {
				var err error
				accessToken, user, err = config.tokenProlong(c, refreshToken)
				if accessToken == nil || user == nil {
					return err
				}
			} else if accessError != nil {
				return EErrorDefined(c, apierrors.ErrTokenInvalid)
			} else {
				claims, ok := accessToken.JWT.Claims.(jwt.MapClaims)
				if !ok || !accessToken.JWT.Valid {
					return EErrorDefined(c, apierrors.ErrTokenInvalid)
				}

				userID, err := uuid.FromString(claims["user_id"].(string))
				if err != nil {
					return EErrorDefined(c, apierrors.ErrTokenInvalid)
				}

				user = new(dao.User)
				if err := config.DB.
					Joins("Avatar").
					Where("users.id = ?", userID).
					First(user).Error; err != nil {
					return EErrorDefined(c, apierrors.ErrTokenInvalid)
				}

				// Tokens issued before the last credentials change are dead
				issued, ok := claims["iat"].(float64)
				if !ok {
					return EErrorDefined(c, apierrors.ErrTokenInvalid)
				}
				if user.TokenUpdatedAt != nil && time.Unix(int64(issued), 0).Before(*user.TokenUpdatedAt) {
					return EErrorDefined(c, apierrors.ErrTokenExpired)
				}
			}

			if user == nil {
				return EError(c, errors.New("nil user"))
			}

			if !user.IsActive {
				return EErrorDefined(c, apierrors.ErrTokenExpired)
			}

			return next(AuthContext{c, user, accessToken, refreshToken})
		}
	}
}

func (a *AuthConfig) tokenProlong(c echo.Context, token *Token) (*Token, *dao.User, error) {
	if token == nil {
		return nil, nil, EErrorDefined(c, apierrors.ErrTokenExpired)
	}

	claims, ok := token.JWT.Claims.(jwt.MapClaims)
	if !ok || !token.JWT.Valid {
		return nil, nil, EErrorDefined(c, apierrors.ErrTokenInvalid)
	}

	var user dao.User
	if err := a.DB.
		Joins("Avatar").
		Where("users.id = ?", claims["user_id"].(string)).
		First(&user).Error; err != nil {
		return nil, nil, EErrorDefined(c, apierrors.ErrTokenInvalid)
	}

	issued, ok := claims["iat"].(float64)
	if !ok {
		return nil, nil, EErrorDefined(c, apierrors.ErrTokenInvalid)
	}
	if user.TokenUpdatedAt != nil && time.Unix(int64(issued), 0).Before(*user.TokenUpdatedAt) {
		return nil, nil, EErrorDefined(c, apierrors.ErrTokenExpired)
	}

	accessToken, refreshToken, err := createAccessToken(user.ID.String())
	if err != nil {
		return nil, nil, EError(c, err)
	}
	setAuthCookies(c, accessToken, refreshToken)

	return accessToken, &user, nil
}

func AddAuthenticationServices(db *gorm.DB, e *echo.Echo, secret []byte) *Authentication {
	ret := &Authentication{db, secret}

	e.POST("api/sign-in/", ret.emailLogin)
	e.POST("api/sign-out/", ret.logout)
	if cfg.SignUpEnable {
		e.POST("api/sign-up/", ret.signUp)
	}
	return ret
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignUpRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (a *Authentication) emailLogin(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}

	req.Email = strings.ToLower(req.Email)

	if req.Email == "" || req.Password == "" {
		return EErrorDefined(c, apierrors.ErrLoginCredentialsRequired)
	}

	if !ValidateEmail(req.Email) {
		return EErrorDefined(c, apierrors.ErrFailedLogin)
	}

	var user dao.User
	if err := a.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EErrorDefined(c, apierrors.ErrFailedLogin)
		}
		return EError(c, err)
	}

	if !user.IsActive {
		return EErrorDefined(c, apierrors.ErrFailedLogin)
	}

	if !dao.ComparePasswordHash(req.Password, user.Password) {
		return EErrorDefined(c, apierrors.ErrFailedLogin)
	}

	tm := time.Now()
	user.LastLoginTime = &tm
	if err := a.db.Model(&user).Select("LastLoginTime").Updates(&user).Error; err != nil {
		return EError(c, err)
	}

	accessToken, refreshToken, err := createAccessToken(user.ID.String())
	if err != nil {
		return EError(c, err)
	}

	setAuthCookies(c, accessToken, refreshToken)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"access_token":  accessToken.SignedString,
		"refresh_token": refreshToken.SignedString,
		"user":          user.ToDTO(),
	})
}

// signUp registers an agent and provisions both default forms so the public
// links work right away.
func (a *Authentication) signUp(c echo.Context) error {
	var req SignUpRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return EErrorMsg(c, err)
	}

	req.Email = strings.ToLower(req.Email)
	if len(req.Password) < 8 {
		return EErrorDefined(c, apierrors.ErrWeakPassword)
	}

	user := dao.User{
		ID:        dao.GenUUID(),
		Email:     req.Email,
		Password:  dao.GenPasswordHash(req.Password),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  dao.GenUsername(),
		IsActive:  true,
	}

	if err := a.db.Transaction(func(tx *gorm.DB) error {
		var exist bool
		if err := tx.Model(&dao.User{}).
			Select("count(*) > 0").
			Where("email = ?", req.Email).
			Find(&exist).Error; err != nil {
			return err
		}
		if exist {
			return apierrors.ErrUserAlreadyExist
		}

		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		if _, err := ProvisionForm(tx, &user, types.FormKindOffer); err != nil {
			return err
		}
		if _, err := ProvisionForm(tx, &user, types.FormKindLead); err != nil {
			return err
		}
		return nil
	}); err != nil {
		return EError(c, err)
	}

	accessToken, refreshToken, err := createAccessToken(user.ID.String())
	if err != nil {
		return EError(c, err)
	}
	setAuthCookies(c, accessToken, refreshToken)

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"access_token":  accessToken.SignedString,
		"refresh_token": refreshToken.SignedString,
		"user":          user.ToDTO(),
	})
}

func (a *Authentication) logout(c echo.Context) error {
	clearAuthCookies(c)
	return c.NoContent(http.StatusOK)
}

func ValidateEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}
