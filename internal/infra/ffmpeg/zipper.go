package ffmpeg

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ZipCreator bundles the roster artifacts of a job.
type ZipCreator struct{}

func NewZipCreator() *ZipCreator {
	return &ZipCreator{}
}

func (z *ZipCreator) CreateZip(ctx context.Context, baseDir string, filePaths []string, outputPath string) (int64, error) {
	zipFile, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("create zip file: %w", err)
	}
	defer zipFile.Close()

	zipWriter := zip.NewWriter(zipFile)
	for _, fp := range filePaths {
		if err := ctx.Err(); err != nil {
			zipWriter.Close()
			return 0, err
		}
		if err := addFileToZip(zipWriter, baseDir, fp); err != nil {
			zipWriter.Close()
			return 0, fmt.Errorf("add %s to zip: %w", fp, err)
		}
	}
	if err := zipWriter.Close(); err != nil {
		return 0, fmt.Errorf("finish zip: %w", err)
	}

	info, err := zipFile.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat zip: %w", err)
	}
	return info.Size(), nil
}

func addFileToZip(zw *zip.Writer, baseDir, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}

	name, err := filepath.Rel(baseDir, filename)
	if err != nil || strings.HasPrefix(name, "..") {
		name = filepath.Base(filename)
	}
	header.Name = filepath.ToSlash(name)
	header.Method = zip.Deflate

	writer, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = io.Copy(writer, file)
	return err
}
