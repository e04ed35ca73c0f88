package export

import (
	"bytes"
	"context"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestImageResolver_InlinesReachableImages(t *testing.T) {
	var pngBytes bytes.Buffer
	require.NoError(t, png.Encode(&pngBytes, solidImage(2, 2)))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/avatar.png":
			_, _ = w.Write(pngBytes.Bytes())
		case "/page.html":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	doc, err := ParseDocumentString(`<html><body><div id="r">
<img id="ok" src="` + srv.URL + `/avatar.png">
<img id="missing" src="` + srv.URL + `/missing.png">
<img id="html" src="` + srv.URL + `/page.html">
<img id="inline" src="data:image/png;base64,AAAA">
</div></body></html>`)
	require.NoError(t, err)

	resolver := NewImageResolver(srv.Client(), time.Second, zap.NewNop())
	resolver.Resolve(context.Background(), findByID(doc.root, "r"))

	src := func(id string) string {
		v, _ := attr(findByID(doc.root, id), "src")
		return v
	}
	assert.True(t, strings.HasPrefix(src("ok"), "data:image/png;base64,"))
	assert.Equal(t, srv.URL+"/missing.png", src("missing"))
	assert.Equal(t, srv.URL+"/page.html", src("html"))
	assert.Equal(t, "data:image/png;base64,AAAA", src("inline"))
}

func TestImageResolver_NoImages(t *testing.T) {
	doc, err := ParseDocumentString(`<html><body><p>text</p></body></html>`)
	require.NoError(t, err)
	before := doc.String()

	NewImageResolver(nil, 0, zap.NewNop()).Resolve(context.Background(), doc.root)
	assert.Equal(t, before, doc.String())
}

func TestImageResolver_DefaultClientRefusesLoopback(t *testing.T) {
	var pngBytes bytes.Buffer
	require.NoError(t, png.Encode(&pngBytes, solidImage(2, 2)))

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes.Bytes())
	}))
	defer srv.Close()

	internal := srv.URL + "/internal/admin.png"
	doc, err := ParseDocumentString(`<html><body><div id="r"><img id="i" src="` + internal + `"></div></body></html>`)
	require.NoError(t, err)

	NewImageResolver(nil, time.Second, zap.NewNop()).Resolve(context.Background(), findByID(doc.root, "r"))

	src, _ := attr(findByID(doc.root, "i"), "src")
	assert.Equal(t, internal, src)
	assert.Zero(t, hits.Load())
}

func TestImageClient_RefusesNonPublicHosts(t *testing.T) {
	for _, target := range []string{
		"http://127.0.0.1:1/a.png",
		"http://localhost:1/a.png",
		"http://[::1]:1/a.png",
		"http://169.254.169.254/latest/meta-data",
		"http://10.0.0.5/a.png",
	} {
		resp, err := NewImageClient().Get(target)
		if resp != nil {
			_ = resp.Body.Close()
		}
		assert.ErrorIs(t, err, ErrBlockedAddress, target)
	}
}

func TestIsPublicAddr(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"8.8.8.8", true},
		{"2606:4700:4700::1111", true},
		{"127.0.0.1", false},
		{"::1", false},
		{"10.1.2.3", false},
		{"172.16.0.1", false},
		{"192.168.1.1", false},
		{"169.254.169.254", false},
		{"100.64.0.1", false},
		{"0.0.0.0", false},
		{"fd00:ec2::254", false},
		{"::ffff:127.0.0.1", false},
		{"224.0.0.1", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isPublicAddr(netip.MustParseAddr(tt.addr)), tt.addr)
	}
}
