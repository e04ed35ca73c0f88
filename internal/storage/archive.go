package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strconv"
	"time"
)

const pdfContentType = "application/pdf"

// Archive keeps a copy of every exported PDF and hands out download links.
type Archive struct {
	store  Storage
	expiry time.Duration
	now    func() time.Time
}

// NewArchive wraps store. Links returned by Store stay valid for expiry.
func NewArchive(store Storage, expiry time.Duration) *Archive {
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &Archive{store: store, expiry: expiry, now: time.Now}
}

// Store uploads pdf under exports/<userID>/<resumeID>/ and returns a presigned URL for it.
func (a *Archive) Store(ctx context.Context, userID, resumeID, fileName string, pdf []byte) (string, error) {
	key := path.Join("exports", userID, resumeID, strconv.FormatInt(a.now().UnixMilli(), 10)+"-"+path.Base(fileName))
	_, err := a.store.Put(ctx, key, bytes.NewReader(pdf), PutObjectOptions{
		Size:        int64(len(pdf)),
		ContentType: pdfContentType,
		Metadata:    map[string]string{"resume-id": resumeID, "user-id": userID},
	})
	if err != nil {
		return "", fmt.Errorf("archive export: %w", err)
	}
	link, err := a.store.PresignGet(ctx, key, a.expiry)
	if err != nil {
		return "", fmt.Errorf("presign export: %w", err)
	}
	return link, nil
}
