package photo

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	helper "hozur_backend/internals/helpers"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newService(t *testing.T) (*Service, *LocalStore) {
	t.Helper()
	store, err := NewLocalStore(t.TempDir(), "/uploads/students/")
	require.NoError(t, err)
	return New(store, DefaultOptions(2048)), store
}

func TestSaveBytesWritesWebPAndThumbnail(t *testing.T) {
	svc, store := newService(t)

	key, err := svc.SaveBytes(context.Background(), "face.png", pngBytes(t, 1200, 600))
	require.NoError(t, err)
	assert.Equal(t, ".webp", filepath.Ext(key))
	assert.Equal(t, "/uploads/students/"+key, svc.URL(key))

	main, err := os.ReadFile(filepath.Join(store.Dir, key))
	require.NoError(t, err)
	cfg, err := webp.DecodeConfig(bytes.NewReader(main))
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Width)
	assert.Equal(t, 400, cfg.Height)

	thumb, err := os.ReadFile(filepath.Join(store.Dir, ThumbKey(key)))
	require.NoError(t, err)
	tcfg, err := webp.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, 160, tcfg.Width)

	require.NoError(t, svc.Delete(context.Background(), key))
	objs, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, objs)
}

func TestSaveBytesRejectsBadInput(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	_, err := svc.SaveBytes(ctx, "doc.pdf", []byte("%PDF"))
	assert.ErrorIs(t, err, helper.ErrValidation)

	_, err = svc.SaveBytes(ctx, "fake.jpg", []byte("not really a jpeg"))
	assert.ErrorIs(t, err, helper.ErrValidation)

	svc.Opt.MaxBytes = 10
	_, err = svc.SaveBytes(ctx, "big.png", pngBytes(t, 20, 20))
	assert.ErrorIs(t, err, helper.ErrValidation)

	objs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, objs, "nothing is written when validation fails")
}

func TestLocalStoreRejectsPathKeys(t *testing.T) {
	_, store := newService(t)
	err := store.Put(context.Background(), "../escape.webp", []byte("x"), contentTypeWebP)
	assert.Error(t, err)
}

func TestReaperDeletesOnlyOldUnreferencedPhotos(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	kept, err := svc.SaveBytes(ctx, "a.png", pngBytes(t, 40, 40))
	require.NoError(t, err)
	orphan, err := svc.SaveBytes(ctx, "b.png", pngBytes(t, 40, 40))
	require.NoError(t, err)

	old := time.Now().Add(-48 * time.Hour)
	for _, k := range []string{kept, orphan, ThumbKey(kept), ThumbKey(orphan)} {
		require.NoError(t, os.Chtimes(filepath.Join(store.Dir, k), old, old))
	}
	fresh, err := svc.SaveBytes(ctx, "c.png", pngBytes(t, 40, 40))
	require.NoError(t, err)

	r := &Reaper{
		Service: svc,
		Grace:   time.Hour,
		Referenced: func(context.Context) (map[string]struct{}, error) {
			return map[string]struct{}{kept: {}}, nil
		},
	}
	n, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for _, k := range []string{kept, ThumbKey(kept), fresh, ThumbKey(fresh)} {
		_, err := os.Stat(filepath.Join(store.Dir, k))
		assert.NoError(t, err, k)
	}
	for _, k := range []string{orphan, ThumbKey(orphan)} {
		_, err := os.Stat(filepath.Join(store.Dir, k))
		assert.True(t, os.IsNotExist(err), k)
	}
}

// hugeHeaderPNG is a tiny PNG whose IHDR claims w x h pixels.
func hugeHeaderPNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	b := pngBytes(t, 4, 4)
	// signature(8) + length(4) + "IHDR"(4), then width, height, ... and the CRC
	binary.BigEndian.PutUint32(b[16:20], w)
	binary.BigEndian.PutUint32(b[20:24], h)
	binary.BigEndian.PutUint32(b[29:33], crc32.ChecksumIEEE(b[12:29]))
	return b
}

func TestSaveBytesRejectsOversizedDimensions(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	data := hugeHeaderPNG(t, 100000, 100000)
	require.Less(t, len(data), 2048*1024)
	_, err := svc.SaveBytes(ctx, "bomb.png", data)
	require.ErrorIs(t, err, helper.ErrValidation)
	assert.Contains(t, err.Error(), "too large")

	svc.Opt.MaxPixels = 100
	_, err = svc.SaveBytes(ctx, "small.png", pngBytes(t, 20, 20))
	assert.ErrorIs(t, err, helper.ErrValidation)

	svc.Opt.MaxPixels = 400
	_, err = svc.SaveBytes(ctx, "edge.png", pngBytes(t, 20, 20))
	assert.NoError(t, err)

	objs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, objs, 2, "only the accepted photo and its thumbnail are stored")
}
