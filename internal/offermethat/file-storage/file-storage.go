// Blob storage for form attachments, listing photos and avatars. The Minio
// implementation is used in production; LocalStorage exists for local runs
// without an object store.
package filestorage

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"log/slog"

	"github.com/gofrs/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	UploadTries = 5
)

type Metadata struct {
	OwnerId   string
	FormId    string
	ListingId string
	RecordId  string
}

func (m Metadata) GetMap() map[string]string {
	meta := make(map[string]string)
	if m.OwnerId != "" {
		meta["ownerId"] = m.OwnerId
	}
	if m.FormId != "" {
		meta["formId"] = m.FormId
	}
	if m.ListingId != "" {
		meta["listingId"] = m.ListingId
	}
	if m.RecordId != "" {
		meta["recordId"] = m.RecordId
	}
	return meta
}

type FileInfo struct {
	Name        string
	Size        int64
	ContentType string
	CreatedAt   time.Time
}

type FileStorage interface {
	Save(data []byte, name uuid.UUID, contentType string, metadata *Metadata) error
	SaveReader(reader io.Reader, fileSize int64, name uuid.UUID, contentType string, metadata *Metadata) error
	Load(name uuid.UUID) ([]byte, error)
	LoadReader(name uuid.UUID) (io.ReadCloser, error)
	Delete(name uuid.UUID) error
	Exist(name uuid.UUID) (bool, error)
	ListRoot(fn func(FileInfo) error) error
	GetFileInfo(name uuid.UUID) (*FileInfo, error)
	// FileURL returns the stable public path of an object.
	FileURL(name uuid.UUID) string
	// SignedURL returns a temporary direct link to an object.
	SignedURL(name uuid.UUID, ttl time.Duration) (string, error)
}

type LocalStorage struct {
	rootDir string
}

func NewLocalStorage(rootPath string) (FileStorage, error) {
	if err := os.MkdirAll(rootPath, 0755); err != nil {
		return nil, err
	}
	return &LocalStorage{rootPath}, nil
}

func (s *LocalStorage) Save(data []byte, name uuid.UUID, contentType string, metadata *Metadata) error {
	return os.WriteFile(filepath.Join(s.rootDir, name.String()), data, 0644)
}

func (s *LocalStorage) SaveReader(reader io.Reader, fileSize int64, name uuid.UUID, contentType string, metadata *Metadata) error {
	f, err := os.Create(filepath.Join(s.rootDir, name.String()))
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, reader)
	return err
}

func (s *LocalStorage) Load(name uuid.UUID) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.rootDir, name.String()))
}

func (s *LocalStorage) LoadReader(name uuid.UUID) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.rootDir, name.String()))
}

func (s *LocalStorage) Delete(name uuid.UUID) error {
	return os.Remove(filepath.Join(s.rootDir, name.String()))
}

func (s *LocalStorage) Exist(name uuid.UUID) (bool, error) {
	_, err := os.Stat(filepath.Join(s.rootDir, name.String()))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func (s *LocalStorage) ListRoot(fn func(FileInfo) error) error {
	entries, err := os.ReadDir(s.rootDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if err := fn(FileInfo{
			Name:      entry.Name(),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *LocalStorage) GetFileInfo(name uuid.UUID) (*FileInfo, error) {
	info, err := os.Stat(filepath.Join(s.rootDir, name.String()))
	if err != nil {
		return nil, err
	}
	return &FileInfo{
		Name:      name.String(),
		Size:      info.Size(),
		CreatedAt: info.ModTime(),
	}, nil
}

func (s *LocalStorage) FileURL(name uuid.UUID) string {
	return "/files/" + name.String()
}

func (s *LocalStorage) SignedURL(name uuid.UUID, ttl time.Duration) (string, error) {
	return s.FileURL(name), nil
}

type MinioStorage struct {
	client     *minio.Client
	bucketName string
}

func NewMinioStorage(endpoint string, accessKeyID string, secretAccessKey string, useSSL bool, bucketName string) (FileStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return nil, err
	}

	if !exists {
		// Create bucket if not exist
		if err := client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	return &MinioStorage{client, bucketName}, nil
}

func (s *MinioStorage) Save(data []byte, name uuid.UUID, contentType string, metadata *Metadata) error {
	return s.SaveReader(bytes.NewReader(data), int64(len(data)), name, contentType, metadata)
}

func (s *MinioStorage) SaveReader(reader io.Reader, fileSize int64, name uuid.UUID, contentType string, metadata *Metadata) error {
	putOptions := minio.PutObjectOptions{ContentType: contentType}
	if metadata != nil {
		putOptions.UserTags = metadata.GetMap()
	}

	var err error
	for i := range UploadTries {
		_, err = s.client.PutObject(context.Background(),
			s.bucketName,
			name.String(),
			reader,
			fileSize,
			putOptions,
		)
		if err != nil {
			resp := minio.ToErrorResponse(err)
			slog.Error("Upload file to minio", "name", name, "try", i+1, "code", resp.StatusCode, "msg", resp.Message, "err", err)
			time.Sleep(time.Second * 5)
			continue
		}
		break
	}
	return err
}

func (s *MinioStorage) Load(name uuid.UUID) ([]byte, error) {
	obj, err := s.LoadReader(name)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	return io.ReadAll(obj)
}

func (s *MinioStorage) LoadReader(name uuid.UUID) (io.ReadCloser, error) {
	return s.client.GetObject(context.Background(),
		s.bucketName,
		name.String(),
		minio.GetObjectOptions{},
	)
}

func (s *MinioStorage) Delete(name uuid.UUID) error {
	return s.client.RemoveObject(
		context.Background(),
		s.bucketName,
		name.String(),
		minio.RemoveObjectOptions{},
	)
}

func (s *MinioStorage) Exist(name uuid.UUID) (bool, error) {
	_, err := s.client.StatObject(
		context.Background(),
		s.bucketName,
		name.String(),
		minio.StatObjectOptions{},
	)
	if err != nil {
		errResponse := minio.ToErrorResponse(err)
		if errResponse.Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *MinioStorage) ListRoot(fn func(info FileInfo) error) error {
	for obj := range s.client.ListObjects(context.Background(), s.bucketName, minio.ListObjectsOptions{Recursive: true}) {
		if err := fn(FileInfo{
			Name:        obj.Key,
			Size:        obj.Size,
			ContentType: obj.ContentType,
			CreatedAt:   obj.LastModified,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *MinioStorage) GetFileInfo(name uuid.UUID) (*FileInfo, error) {
	stat, err := s.client.StatObject(context.Background(), s.bucketName, name.String(), minio.StatObjectOptions{})
	if err != nil {
		return nil, err
	}

	return &FileInfo{
		Name:        name.String(),
		Size:        stat.Size,
		ContentType: stat.ContentType,
		CreatedAt:   stat.LastModified,
	}, nil
}

func (s *MinioStorage) FileURL(name uuid.UUID) string {
	return "/" + s.bucketName + "/" + name.String()
}

func (s *MinioStorage) SignedURL(name uuid.UUID, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(context.Background(), s.bucketName, name.String(), ttl, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
