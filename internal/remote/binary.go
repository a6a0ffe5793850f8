package remote

import (
	"context"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// AssetURL joins an asset base URL, a category path and a file name,
// escaping each path segment.
func AssetURL(base, categoryPath, filename string) string {
	return strings.TrimSuffix(base, "/") + "/" + escapePath(categoryPath) + "/" + url.PathEscape(filename)
}

// escapePath escapes each "/"-separated segment of a relative key, so keys
// such as "civil/code" stay nested paths on the origin.
func escapePath(p string) string {
	segs := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// FetchBinary downloads a binary asset and reports its media type. When the
// origin does not send one, it is guessed from the extension, then sniffed.
func (c *Client) FetchBinary(ctx context.Context, u string) ([]byte, string, error) {
	body, ctype, err := c.get(ctx, u)
	if err != nil {
		return nil, "", err
	}
	if mt, _, perr := mime.ParseMediaType(ctype); perr == nil && mt != "" && mt != "application/octet-stream" {
		return body, mt, nil
	}
	if byExt := mime.TypeByExtension(path.Ext(u)); byExt != "" {
		mt, _, _ := mime.ParseMediaType(byExt)
		return body, mt, nil
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(body))
	return body, mt, nil
}
