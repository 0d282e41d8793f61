// Package avatar сохраняет изображения профиля пользователей в локальный
// каталог или в бакет S3.
package avatar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/carpool/internal/config"
)

// Prefix каталог (префикс ключа), под которым хранятся аватары.
const Prefix = "avatars"

var (
	// ErrTooLarge файл больше допустимого размера.
	ErrTooLarge = errors.New("avatar is too large")
	// ErrUnsupportedType файл не является изображением jpeg, png или gif.
	ErrUnsupportedType = errors.New("avatar must be a jpeg, png, jpg or gif image")
)

var allowed = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// Store хранилище объектов.
type Store interface {
	Save(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
}

// Uploader проверяет присланные изображения и сохраняет их в Store.
type Uploader struct {
	store   Store
	maxSize int64
}

// NewUploader создаёт Uploader с ограничением размера maxSize байт.
func NewUploader(store Store, maxSize int64) *Uploader {
	return &Uploader{store: store, maxSize: maxSize}
}

// New выбирает хранилище по конфигурации: S3, если задан бакет, иначе локальный каталог.
func New(ctx context.Context, cfg config.Avatars) (*Uploader, error) {
	const op = "avatar.New"
	if cfg.S3Bucket == "" {
		return NewUploader(NewLocalStore(cfg.LocalDir), cfg.MaxSizeBytes), nil
	}
	store, err := NewS3Store(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return NewUploader(store, cfg.MaxSizeBytes), nil
}

// Detect определяет тип изображения по содержимому и возвращает расширение файла.
func Detect(data []byte) (ext, contentType string, err error) {
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if e, ok := allowed[m.String()]; ok {
			return e, m.String(), nil
		}
	}
	return "", "", ErrUnsupportedType
}

// Upload читает изображение из r, проверяет размер и тип и сохраняет его
// под ключом avatars/<uuid>.<ext>. Возвращает сохранённый путь.
func (u *Uploader) Upload(ctx context.Context, r io.Reader) (string, error) {
	const op = "avatar.Upload"

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, u.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if n > u.maxSize {
		return "", fmt.Errorf("%s: %w", op, ErrTooLarge)
	}

	ext, contentType, err := Detect(buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	key := Prefix + "/" + uuid.NewString() + ext
	if err := u.store.Save(ctx, key, buf.Bytes(), contentType); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return key, nil
}

// Remove удаляет ранее сохранённый аватар.
func (u *Uploader) Remove(ctx context.Context, key string) error {
	const op = "avatar.Remove"
	if err := u.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
