// Package photo stores student photos: validate → decode → downscale → WebP (+ thumbnail) → Store.
package photo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"hozur_backend/internals/constants"
	helper "hozur_backend/internals/helpers"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

const (
	contentTypeWebP = "image/webp"
	thumbSuffix     = "_thumb.webp"
)

// Object is one stored blob as seen by List.
type Object struct {
	Key     string
	ModTime time.Time
}

// Store is the blob backend (local disk or Aliyun OSS). Keys are flat file names.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]Object, error)
	PublicURL(key string) string
}

type Options struct {
	MaxBytes   int64
	MaxWidth   int
	ThumbWidth int
	Quality    float32
	MaxPixels  int
}

func DefaultOptions(maxKB int) Options {
	if maxKB <= 0 {
		maxKB = 2048
	}
	return Options{
		MaxBytes:   int64(maxKB) * 1024,
		MaxWidth:   constants.PhotoMaxWidth,
		ThumbWidth: constants.PhotoThumbWidth,
		Quality:    constants.PhotoWebPQuality,
		MaxPixels:  constants.PhotoMaxPixels,
	}
}

type Service struct {
	Store Store
	Opt   Options
}

func New(store Store, opt Options) *Service {
	return &Service{Store: store, Opt: opt}
}

func ThumbKey(key string) string {
	return strings.TrimSuffix(key, filepath.Ext(key)) + thumbSuffix
}

func IsThumbKey(key string) bool { return strings.HasSuffix(key, thumbSuffix) }

func (s *Service) URL(key string) string {
	if s == nil || s.Store == nil || key == "" {
		return ""
	}
	return s.Store.PublicURL(key)
}

// SaveUpload is SaveBytes for a multipart file.
func (s *Service) SaveUpload(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	if fh == nil {
		return "", helper.ValidationField("photo", "photo file is missing")
	}
	if !constants.IsAllowedPhotoExt(fh.Filename) {
		return "", helper.ValidationField("photo", fmt.Sprintf("unsupported photo type (allowed: %s)",
			strings.Join(constants.AllowedPhotoExtList(), ", ")))
	}
	if s.Opt.MaxBytes > 0 && fh.Size > s.Opt.MaxBytes {
		return "", helper.ValidationField("photo", fmt.Sprintf("photo exceeds %d KB", s.Opt.MaxBytes/1024))
	}
	f, err := fh.Open()
	if err != nil {
		return "", helper.ValidationField("photo", "cannot read photo")
	}
	defer f.Close()

	var r io.Reader = f
	if s.Opt.MaxBytes > 0 {
		r = io.LimitReader(f, s.Opt.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", helper.ValidationField("photo", "cannot read photo")
	}
	return s.SaveBytes(ctx, fh.Filename, data)
}

// SaveBytes validates and re-encodes the image, then writes the photo and its
// thumbnail. It returns the key to persist on the student row.
func (s *Service) SaveBytes(ctx context.Context, filename string, data []byte) (string, error) {
	if !constants.IsAllowedPhotoExt(filename) {
		return "", helper.ValidationField("photo", "unsupported photo type")
	}
	if s.Opt.MaxBytes > 0 && int64(len(data)) > s.Opt.MaxBytes {
		return "", helper.ValidationField("photo", fmt.Sprintf("photo exceeds %d KB", s.Opt.MaxBytes/1024))
	}

	img, err := decodeImage(data, s.Opt.MaxPixels)
	if errors.Is(err, errTooManyPixels) {
		return "", helper.ValidationField("photo", err.Error())
	}
	if err != nil {
		return "", helper.ValidationField("photo", "photo is not a readable image")
	}

	main, err := encodeWebP(downscale(img, s.Opt.MaxWidth), s.Opt.Quality)
	if err != nil {
		return "", helper.Storage(fmt.Errorf("encode webp: %w", err))
	}
	thumb, err := encodeWebP(imaging.Thumbnail(img, s.Opt.ThumbWidth, s.Opt.ThumbWidth, imaging.Lanczos), s.Opt.Quality)
	if err != nil {
		return "", helper.Storage(fmt.Errorf("encode thumbnail: %w", err))
	}

	key := uuid.NewString() + ".webp"
	if err := s.Store.Put(ctx, key, main, contentTypeWebP); err != nil {
		return "", helper.Storage(fmt.Errorf("put photo: %w", err))
	}
	if err := s.Store.Put(ctx, ThumbKey(key), thumb, contentTypeWebP); err != nil {
		_ = s.Store.Delete(ctx, key)
		return "", helper.Storage(fmt.Errorf("put thumbnail: %w", err))
	}
	return key, nil
}

// Delete removes the photo and its thumbnail; missing objects are not an error.
func (s *Service) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	err1 := s.Store.Delete(ctx, key)
	err2 := s.Store.Delete(ctx, ThumbKey(key))
	if err1 != nil {
		return err1
	}
	return err2
}

/* =======================================================================
   Image pipeline
======================================================================= */

var errTooManyPixels = errors.New("photo dimensions are too large")

// decodeImage reads the header first and refuses images above maxPixels
// (0 = no cap) before allocating the full bitmap.
func decodeImage(all []byte, maxPixels int) (image.Image, error) {
	if len(all) == 0 {
		return nil, fmt.Errorf("empty file")
	}
	head := all
	if len(head) > 512 {
		head = head[:512]
	}
	isWebP := strings.Contains(http.DetectContentType(head), "webp")

	var (
		cfg image.Config
		err error
	)
	if isWebP {
		cfg, err = webp.DecodeConfig(bytes.NewReader(all))
	} else {
		cfg, _, err = image.DecodeConfig(bytes.NewReader(all))
	}
	if err != nil {
		return nil, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height)
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, errTooManyPixels
	}

	if isWebP {
		return webp.Decode(bytes.NewReader(all))
	}
	return imaging.Decode(bytes.NewReader(all), imaging.AutoOrientation(true))
}

// downscale keeps the aspect ratio; CatmullRom gives the best quality for photos.
func downscale(src image.Image, maxW int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxW <= 0 || w <= maxW {
		return src
	}
	scale := float64(maxW) / float64(w)
	nh := int(math.Max(1, math.Round(float64(h)*scale)))
	dst := image.NewRGBA(image.Rect(0, 0, maxW, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, q float32) ([]byte, error) {
	if q <= 0 {
		q = 80
	}
	buf := new(bytes.Buffer)
	if err := webp.Encode(buf, img, &webp.Options{Lossless: false, Quality: q}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
