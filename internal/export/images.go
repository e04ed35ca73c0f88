package export

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

const (
	maxImageFetchBytes = 10 << 20
	imageFetchLimit    = 4
	maxImageRedirects  = 3
)

// ErrBlockedAddress is returned for image hosts that resolve to loopback, private,
// link-local or otherwise non-public addresses.
var ErrBlockedAddress = errors.New("image host is not a public address")

// Ranges not covered by the netip.Addr predicates.
var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("64:ff9b::/96"),
}

// NewImageClient returns an HTTP client that only connects to public addresses.
// The check runs on the resolved address of every connection, redirects included,
// so hostnames pointing at internal services are refused as well.
func NewImageClient() *http.Client {
	dialer := &net.Dialer{Timeout: 5 * time.Second, Control: refuseNonPublic}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	return &http.Client{
		Transport: transport,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxImageRedirects {
				return errors.New("too many redirects")
			}
			return nil
		},
	}
}

func refuseNonPublic(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	if !isPublicAddr(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, ip)
	}
	return nil
}

func isPublicAddr(ip netip.Addr) bool {
	ip = ip.Unmap()
	if !ip.IsValid() ||
		ip.IsUnspecified() ||
		ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsMulticast() {
		return false
	}
	for _, p := range blockedPrefixes {
		if p.Contains(ip) {
			return false
		}
	}
	return true
}

// ImageResolver inlines remote images so the rasterizer never waits on the network.
type ImageResolver struct {
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewImageResolver creates a resolver whose fetches are bounded by timeout.
// A nil client means NewImageClient.
func NewImageResolver(client *http.Client, timeout time.Duration, logger *zap.Logger) *ImageResolver {
	if client == nil {
		client = NewImageClient()
	}
	return &ImageResolver{client: client, timeout: timeout, logger: logger}
}

// Resolve fetches every http(s) <img> below root concurrently and replaces its src
// with a data URL. An image that fails to load keeps its src. Resolve returns
// once every image has either loaded or failed.
func (r *ImageResolver) Resolve(ctx context.Context, root *html.Node) {
	var imgs []*html.Node
	walk(root, func(n *html.Node) {
		if n.Data != "img" {
			return
		}
		src, _ := attr(n, "src")
		if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
			imgs = append(imgs, n)
		}
	})
	if len(imgs) == 0 {
		return
	}

	inlined := make([]string, len(imgs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(imageFetchLimit)
	for i, img := range imgs {
		src, _ := attr(img, "src")
		g.Go(func() error {
			dataURL, err := r.fetch(gctx, src)
			if err != nil {
				r.logger.Warn("Image left unresolved for export", zap.String("src", src), zap.Error(err))
				return nil
			}
			inlined[i] = dataURL
			return nil
		})
	}
	_ = g.Wait()

	for i, img := range imgs {
		if inlined[i] != "" {
			setAttr(img, "src", inlined[i])
		}
	}
}

func (r *ImageResolver) fetch(ctx context.Context, src string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageFetchBytes+1))
	if err != nil {
		return "", err
	}
	if len(body) > maxImageFetchBytes {
		return "", fmt.Errorf("image larger than %d bytes", maxImageFetchBytes)
	}

	contentType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(contentType, "image/") {
		contentType = http.DetectContentType(body)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("not an image: %s", contentType)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(body), nil
}
