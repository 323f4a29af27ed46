package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewStorageService_Local(t *testing.T) {
	svc, err := NewStorageService(&StorageConfig{
		Provider: "local",
		BasePath: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("NewStorageService() error = %v", err)
	}
	if svc == nil {
		t.Fatal("NewStorageService() 返回 nil")
	}
}

func TestNewStorageService_InvalidProvider(t *testing.T) {
	_, err := NewStorageService(&StorageConfig{Provider: "invalid"})
	if err == nil {
		t.Error("期望返回错误，但未返回")
	}
}

func TestLocalStorage_UploadAndDelete(t *testing.T) {
	tempDir := t.TempDir()
	svc, err := NewStorageService(&StorageConfig{
		Provider: "local",
		BasePath: tempDir,
		Endpoint: "http://cdn.local/uploads/",
	})
	if err != nil {
		t.Fatalf("NewStorageService() error = %v", err)
	}

	ctx := context.Background()
	url, err := svc.Upload(ctx, []byte("hello"), "products/1/0.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if url != "http://cdn.local/uploads/products/1/0.jpg" {
		t.Errorf("Upload() url = %s", url)
	}

	data, err := os.ReadFile(filepath.Join(tempDir, "products", "1", "0.jpg"))
	if err != nil {
		t.Fatalf("读取文件失败: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("文件内容 = %q", data)
	}

	if err := svc.Delete(ctx, url); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "products", "1", "0.jpg")); !os.IsNotExist(err) {
		t.Error("文件应已删除")
	}

	// 重复删除不报错
	if err := svc.Delete(ctx, url); err != nil {
		t.Errorf("重复 Delete() error = %v", err)
	}
	if err := svc.Delete(ctx, "https://elsewhere/x.jpg"); err == nil {
		t.Error("非本地 URL 应返回错误")
	}
}

func TestLocalStorage_UploadFromURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG fake"))
	}))
	defer server.Close()

	tempDir := t.TempDir()
	svc, err := NewStorageService(&StorageConfig{Provider: "local", BasePath: tempDir})
	if err != nil {
		t.Fatalf("NewStorageService() error = %v", err)
	}

	ctx := context.Background()
	url, err := svc.UploadFromURL(ctx, server.URL+"/a.png", "products/9/0.png")
	if err != nil {
		t.Fatalf("UploadFromURL() error = %v", err)
	}
	if !strings.HasSuffix(url, "/products/9/0.png") {
		t.Errorf("UploadFromURL() url = %s", url)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "products", "9", "0.png")); err != nil {
		t.Errorf("文件未写入: %v", err)
	}

	if _, err := svc.UploadFromURL(ctx, server.URL+"/missing.jpg", "products/9/1.jpg"); err == nil {
		t.Error("404 应返回错误")
	}
}

func TestObjectKey(t *testing.T) {
	if got := objectKey("media", "/products/1/0.jpg"); got != "media/products/1/0.jpg" {
		t.Errorf("objectKey() = %s", got)
	}
	if got := objectKey("", "products/1/0.jpg"); got != "products/1/0.jpg" {
		t.Errorf("objectKey() = %s", got)
	}

	got := objectKey("", "photo.png")
	if !strings.HasSuffix(got, ".png") || strings.Count(got, "/") != 3 {
		t.Errorf("无目录文件名应按日期 + uuid 命名, 实际 %s", got)
	}
	if got := objectKey("", "noext"); !strings.HasSuffix(got, ".jpg") {
		t.Errorf("无扩展名默认 .jpg, 实际 %s", got)
	}
}

func TestS3Storage_PublicURL(t *testing.T) {
	tests := []struct {
		name    string
		storage *S3Storage
		want    string
	}{
		{"cdn", &S3Storage{bucket: "b", region: "us-east-1", cdnDomain: "cdn.test"}, "https://cdn.test/k.jpg"},
		{"endpoint", &S3Storage{bucket: "b", endpoint: "http://minio:9000"}, "http://minio:9000/b/k.jpg"},
		{"aws", &S3Storage{bucket: "b", region: "eu-west-1"}, "https://b.s3.eu-west-1.amazonaws.com/k.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := tt.storage.publicURL("k.jpg")
			if url != tt.want {
				t.Errorf("publicURL() = %s, 期望 %s", url, tt.want)
			}
			if key := tt.storage.extractKey(url); key != "k.jpg" {
				t.Errorf("extractKey() = %s", key)
			}
		})
	}
}
