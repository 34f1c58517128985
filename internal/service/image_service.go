package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ChetanXpro/yesbroker/internal/domain"
	"github.com/ChetanXpro/yesbroker/internal/jwt"
	"github.com/ChetanXpro/yesbroker/internal/repository"
	"github.com/ChetanXpro/yesbroker/internal/storage"
)

var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

const allowedImageTypes = "image/jpeg, image/jpg, image/png, image/webp"

// ImageFile is one uploaded image part.
type ImageFile struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// ImageUploadResult is returned after a successful attach.
type ImageUploadResult struct {
	Property       domain.Property `json:"property"`
	UploadedImages []string        `json:"uploaded_images"`
	TotalImages    int             `json:"total_images"`
}

// ImageDeleteResult is returned after a detach.
type ImageDeleteResult struct {
	Property        domain.Property `json:"property"`
	DeletedImage    string          `json:"deleted_image"`
	RemainingImages int             `json:"remaining_images"`
}

// AttachImages uploads files and appends their URLs to the listing. The
// batch is all-or-nothing: on any failure no URL is recorded.
func (s *PropertyService) AttachImages(ctx context.Context, claims *jwt.Claims, id int64, files []ImageFile) (ImageUploadResult, error) {
	ctx, span := s.startSpan(ctx, "PropertyService.AttachImages")
	defer span.End()

	if len(files) == 0 {
		return ImageUploadResult{}, validationError("No images provided")
	}
	p, err := s.ownedProperty(ctx, claims, id)
	if err != nil {
		return ImageUploadResult{}, err
	}

	current := len(p.ImageURLs)
	if current+len(files) > domain.MaxPropertyImages {
		return ImageUploadResult{}, imageLimitError(len(files), current)
	}
	exts := make([]string, len(files))
	for i, f := range files {
		ext, err := s.validateImage(f)
		if err != nil {
			return ImageUploadResult{}, err
		}
		exts[i] = ext
	}
	if s.store == nil {
		return ImageUploadResult{}, upstreamError("Image storage is not configured", nil)
	}

	urls := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		i, f := i, f
		key := storage.ImageKey(p.OwnerID, p.ID, current+i+1, exts[i])
		g.Go(func() error {
			body, err := readImage(f, s.maxImageBytes)
			if err != nil {
				return err
			}
			url, err := s.store.Put(gctx, key, strings.ToLower(f.ContentType), body)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		s.discardUploads(ctx, urls)
		return ImageUploadResult{}, upstreamError("Failed to upload images", err)
	}

	updated, err := s.properties.AppendImages(ctx, id, urls, domain.MaxPropertyImages)
	if err != nil {
		s.discardUploads(ctx, urls)
		switch {
		case errors.Is(err, repository.ErrImageLimit):
			return ImageUploadResult{}, imageLimitError(len(files), current)
		case errors.Is(err, repository.ErrNotFound):
			return ImageUploadResult{}, notFoundError("Property not found")
		}
		span.RecordError(err)
		return ImageUploadResult{}, fmt.Errorf("append images: %w", err)
	}

	s.invalidate(ctx)
	s.audit("property.images_attached", "property_id", id, "count", len(urls))
	return ImageUploadResult{
		Property:       updated,
		UploadedImages: urls,
		TotalImages:    len(updated.ImageURLs),
	}, nil
}

// DetachImage removes url from the listing. The stored object is deleted
// best-effort; the row is updated regardless.
func (s *PropertyService) DetachImage(ctx context.Context, claims *jwt.Claims, id int64, url string) (ImageDeleteResult, error) {
	ctx, span := s.startSpan(ctx, "PropertyService.DetachImage")
	defer span.End()

	if strings.TrimSpace(url) == "" {
		return ImageDeleteResult{}, validationError("Image URL parameter is required")
	}
	p, err := s.ownedProperty(ctx, claims, id)
	if err != nil {
		return ImageDeleteResult{}, err
	}
	if !p.HasImage(url) {
		return ImageDeleteResult{}, notFoundError("Image not found for this property")
	}

	s.deleteObject(ctx, url)

	updated, err := s.properties.RemoveImage(ctx, id, url)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ImageDeleteResult{}, notFoundError("Property not found")
		}
		span.RecordError(err)
		return ImageDeleteResult{}, fmt.Errorf("remove image: %w", err)
	}

	s.invalidate(ctx)
	s.audit("property.image_detached", "property_id", id)
	return ImageDeleteResult{
		Property:        updated,
		DeletedImage:    url,
		RemainingImages: len(updated.ImageURLs),
	}, nil
}

func (s *PropertyService) validateImage(f ImageFile) (string, error) {
	ext, ok := imageExtensions[strings.ToLower(f.ContentType)]
	if !ok {
		return "", validationError(fmt.Sprintf("Invalid file type: %s. Allowed types: %s", f.ContentType, allowedImageTypes))
	}
	if f.Size > s.maxImageBytes {
		return "", validationError(fmt.Sprintf("File too large: %s. Maximum size: %dMB", f.Filename, s.maxImageBytes>>20))
	}
	return ext, nil
}

func (s *PropertyService) discardUploads(ctx context.Context, urls []string) {
	for _, url := range urls {
		if url != "" {
			s.deleteObject(ctx, url)
		}
	}
}

func readImage(f ImageFile, limit int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Filename, err)
	}
	defer rc.Close()

	body, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Filename, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("read %s: exceeds %d bytes", f.Filename, limit)
	}
	return body, nil
}

func imageLimitError(adding, current int) *Error {
	return validationError(fmt.Sprintf(
		"Cannot upload %d images. Maximum %d images allowed per property. Current: %d",
		adding, domain.MaxPropertyImages, current,
	))
}
