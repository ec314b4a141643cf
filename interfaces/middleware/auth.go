package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"

	"prism-connector/domain/dto"
)

// Auth accepts either the static operator API key (X-Api-Key) or a Bearer
// JWT signed with the configured secret. Webhook endpoints bypass this and
// authenticate by signature instead.
func Auth(apiKey, secretKey string) gin.HandlerFunc {
	res := dto.Res{ResponseCode: "401", ResponseMessage: "Unauthorized"}

	return func(ctx *gin.Context) {
		if apiKey != "" && ctx.Request.Header.Get("X-Api-Key") == apiKey {
			ctx.Next()
			return
		}

		authorization := ctx.Request.Header.Get("Authorization")
		if authorization == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}
		auth := strings.Split(authorization, "Bearer ")
		if len(auth) != 2 {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}

		claims := jwt.StandardClaims{}
		token, err := jwt.ParseWithClaims(auth[1], &claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(secretKey), nil
		})
		if err != nil || !token.Valid {
			res.ResponseMessage = reason(err)
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}
		ctx.Set("operator", claims.Subject)
		ctx.Next()
	}
}

func reason(err error) string {
	var ve *jwt.ValidationError
	if errors.As(err, &ve) {
		if ve.Errors&jwt.ValidationErrorMalformed != 0 {
			return "That's not even a token"
		}
		if ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
			return "Timing is everything"
		}
		return fmt.Sprintf("Couldn't handle this token:%v", err)
	}
	return "Unauthorized"
}
