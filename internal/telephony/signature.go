package telephony

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"strings"

	"outreach-dialer/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/client"
)

const (
	headerTwilioSignature = "X-Twilio-Signature"
	maxWebhookBody        = 1 << 20
)

// TwilioSignature verifies X-Twilio-Signature on inbound callbacks.
//
// The signed URL is publicBaseURL + request URI, which is what Twilio was told to call;
// the process itself usually sits behind a proxy and cannot see that URL.
// The body is restored so downstream handlers can read it again.
func TwilioSignature(authToken, publicBaseURL string) gin.HandlerFunc {
	validator := client.NewRequestValidator(authToken)
	base := strings.TrimRight(publicBaseURL, "/")

	return func(c *gin.Context) {
		log := logger.FromGin(c)

		sig := c.GetHeader(headerTwilioSignature)
		if sig == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "missing signature"})
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		params := map[string]string{}
		if c.Request.Method == http.MethodPost {
			form, err := url.ParseQuery(string(body))
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
				return
			}
			for k, v := range form {
				if len(v) > 0 {
					params[k] = v[0]
				}
			}
		}

		if !validator.Validate(base+c.Request.URL.RequestURI(), params, sig) {
			log.Warn("twilio signature mismatch", "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
			return
		}
		c.Next()
	}
}
