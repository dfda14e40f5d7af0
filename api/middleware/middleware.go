/*
Copyright 2025 Finlens Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package middleware carries the router-wide request filters: a tollbooth
// rate limiter sized from configuration, and the shared-secret check that
// gates every route when the server runs in secure mode.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/didip/tollbooth/v7"
	"github.com/didip/tollbooth/v7/limiter"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/finlens/finlens/config"
)

// secretKeyHeader is the header clients present the shared secret in.
const secretKeyHeader = "X-Finlens-Key"

var errSecretNotConfigured = errors.New("secret key is not configured")

// RateLimitMiddleware throttles by client per the configured RPS and burst.
// Document analysis and reconciliation runs are expensive, so the limit is
// applied ahead of every handler. With no rate-limit configuration the
// middleware passes requests through untouched.
func RateLimitMiddleware(conf *config.Configuration) gin.HandlerFunc {
	if conf.RateLimit.RequestsPerSecond == nil || conf.RateLimit.Burst == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	lmt := tollbooth.NewLimiter(*conf.RateLimit.RequestsPerSecond, &limiter.ExpirableOptions{
		DefaultExpirationTTL: time.Duration(*conf.RateLimit.CleanupIntervalSec) * time.Second,
	})
	lmt.SetBurst(*conf.RateLimit.Burst)

	return func(c *gin.Context) {
		if httpError := tollbooth.LimitByRequest(lmt, c.Writer, c.Request); httpError != nil {
			c.AbortWithStatusJSON(httpError.StatusCode, gin.H{"error": httpError.Message})
			return
		}
		c.Next()
	}
}

// SecretKeyAuthMiddleware rejects any request whose secret key header does
// not match the configured secret. The comparison is constant-time. Running
// in secure mode without a configured secret is a deployment error and fails
// every request rather than letting traffic through.
func SecretKeyAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret, err := configuredSecret()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		presented := c.GetHeader(secretKeyHeader)
		if presented == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing secret key"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(secret), []byte(presented)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid secret key"})
			return
		}

		c.Next()
	}
}

func configuredSecret() (string, error) {
	conf, err := config.Fetch()
	if err != nil {
		return "", err
	}
	if conf.Server.SecretKey == "" {
		return "", errSecretNotConfigured
	}
	return conf.Server.SecretKey, nil
}
