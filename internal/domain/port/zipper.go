package port

import "context"

// Zipper bundles files into an archive and reports its size in bytes.
// Entries are named by their path relative to baseDir.
type Zipper interface {
	CreateZip(ctx context.Context, baseDir string, filePaths []string, outputPath string) (int64, error)
}
