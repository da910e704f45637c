package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RespondJSONWithETag writes payload as JSON with a strong ETag derived from
// the encoded body, short-circuiting to 304 when If-None-Match already holds
// the current tag. The payload is encoded exactly once.
func RespondJSONWithETag(ctx *gin.Context, status int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		// let gin surface the marshal failure the usual way
		ctx.JSON(status, payload)
		return
	}

	sum := sha256.Sum256(body)
	etag := `"` + hex.EncodeToString(sum[:]) + `"`

	ctx.Header("ETag", etag)

	if etagMatches(ctx.GetHeader("If-None-Match"), etag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.Data(status, "application/json; charset=utf-8", body)
}

// etagMatches reports whether any entry in an If-None-Match header equals the
// given tag. Weak validators compare equal to their strong form.
func etagMatches(header, etag string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}

	if header == "*" {
		return true
	}

	want := stripWeakPrefix(etag)

	for _, candidate := range strings.Split(header, ",") {
		if stripWeakPrefix(candidate) == want {
			return true
		}
	}

	return false
}

func stripWeakPrefix(tag string) string {
	tag = strings.TrimSpace(tag)

	return strings.TrimSpace(strings.TrimPrefix(tag, "W/"))
}
