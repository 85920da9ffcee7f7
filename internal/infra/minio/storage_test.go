package minio

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"

	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/domain/port"
)

func TestStorageRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	defer container.Terminate(ctx)

	endpoint, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	storage, err := NewStorage(StorageConfig{
		Endpoint:     endpoint,
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		UploadBucket: "uploads",
		ResultBucket: "rosters",
	})
	require.NoError(t, err)
	require.NoError(t, storage.EnsureBuckets(ctx))
	require.NoError(t, storage.EnsureBuckets(ctx), "second call must be a no-op")

	video := []byte("fake video bytes")
	_, err = storage.client.PutObject(ctx, "uploads", "club-1/video.mp4", bytes.NewReader(video), int64(len(video)), miniogo.PutObjectOptions{})
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "input.mp4")
	require.NoError(t, storage.DownloadVideo(ctx, "club-1/video.mp4", dest))
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, video, got)

	bundle := []byte("PK zip bytes")
	require.NoError(t, storage.UploadResult(ctx, "club-1/roster.zip", bytes.NewReader(bundle), int64(len(bundle))))

	obj, err := storage.client.GetObject(ctx, "rosters", "club-1/roster.zip", miniogo.GetObjectOptions{})
	require.NoError(t, err)
	defer obj.Close()
	uploaded, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, bundle, uploaded)

	info, err := storage.client.StatObject(ctx, "rosters", "club-1/roster.zip", miniogo.StatObjectOptions{})
	require.NoError(t, err)
	assert.Equal(t, "application/zip", info.ContentType)

	err = storage.DownloadVideo(ctx, "missing.mp4", filepath.Join(t.TempDir(), "x.mp4"))
	assert.ErrorIs(t, err, port.ErrVideoUnreadable)

	_, err = storage.client.PutObject(ctx, "uploads", "club-1/empty.mp4", bytes.NewReader(nil), 0, miniogo.PutObjectOptions{})
	require.NoError(t, err)
	err = storage.DownloadVideo(ctx, "club-1/empty.mp4", filepath.Join(t.TempDir(), "y.mp4"))
	assert.ErrorIs(t, err, port.ErrVideoUnreadable)
}
