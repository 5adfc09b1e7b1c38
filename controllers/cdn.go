package controllers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/remusic/remusic-admin/utils"
)

// publishCoverAsset decodes an inline base64 image and pushes it to the CDN
// repository under prefix/, writing the error response itself on failure.
func publishCoverAsset(ctx *gin.Context, cdn *utils.GitHubCDN, prefix, filename, b64 string) (string, error) {
	if cdn == nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "cdn is not configured")
		return "", errors.New("cdn not configured")
	}

	// Accept both bare base64 and data URLs from the panel
	if idx := strings.Index(b64, ","); idx >= 0 && strings.HasPrefix(b64, "data:") {
		b64 = b64[idx+1:]
	}
	content, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid base64 image data")
		return "", err
	}
	const maxCoverSize = 5 * 1024 * 1024
	if len(content) > maxCoverSize {
		utils.Error(ctx, http.StatusBadRequest, 40041, "cover image exceeds 5MB")
		return "", errors.New("cover too large")
	}

	name := path.Base(strings.TrimSpace(filename))
	if name == "" || name == "." {
		name = "cover.jpg"
	}
	assetPath := fmt.Sprintf("%s/%d_%s", prefix, time.Now().UnixNano(), name)

	reqCtx := ctx.Request.Context()
	url, err := cdn.Upload(reqCtx, assetPath, content, "upload "+assetPath)
	if err != nil {
		utils.Sugar.Warnf("cdn upload failed path=%s: %v", assetPath, err)
		utils.Error(ctx, http.StatusBadGateway, 50241, "cdn upload failed")
		return "", err
	}
	return url, nil
}
