package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"snapvault/internal/models"
	"snapvault/internal/store"
)

// SnapshotResult reports one committed snapshot.
type SnapshotResult struct {
	SnapshotID  int64  `json:"snapshot_id" yaml:"snapshot_id"`
	Root        string `json:"root" yaml:"root"`
	Files       int    `json:"files" yaml:"files"`
	NewBlobs    int    `json:"new_blobs" yaml:"new_blobs"`
	ReusedBlobs int    `json:"reused_blobs" yaml:"reused_blobs"`
	Skipped     int    `json:"skipped" yaml:"skipped"`
	Bytes       int64  `json:"bytes" yaml:"bytes"`
}

type walkItem struct {
	path string
	info fs.FileInfo
}

// build carries the state of one snapshot run.
type build struct {
	writer  *store.SnapshotWriter
	root    string
	result  SnapshotResult
	// casKeys lists objects this run added to the CAS, removed on rollback.
	casKeys []string
}

// Snapshot indexes every regular file under root and records the snapshot.
// Either the whole snapshot commits or nothing is recorded.
func (e *Engine) Snapshot(ctx context.Context, root string) (*SnapshotResult, error) {
	abs, err := statDir(root)
	if err != nil {
		return nil, err
	}
	if err := e.checkHashAlgorithm(ctx); err != nil {
		return nil, err
	}

	w, err := e.store.BeginSnapshot(ctx, abs, e.now())
	if err != nil {
		return nil, storeFailure("begin snapshot", err)
	}
	b := &build{writer: w, root: abs}
	b.result.SnapshotID = w.Snapshot().ID
	b.result.Root = abs

	if err := e.pinHashAlgorithm(ctx, w); err != nil {
		e.abort(b)
		return nil, err
	}
	if err := e.walk(ctx, b); err != nil {
		e.abort(b)
		return nil, err
	}
	if err := w.Commit(); err != nil {
		e.abort(b)
		return nil, storeFailure("commit snapshot", err)
	}

	e.log().Info("snapshot committed",
		"snapshot_id", b.result.SnapshotID,
		"root", abs,
		"files", b.result.Files,
		"new_blobs", b.result.NewBlobs,
		"reused_blobs", b.result.ReusedBlobs,
	)
	return &b.result, nil
}

func (e *Engine) abort(b *build) {
	if err := b.writer.Rollback(); err != nil {
		e.log().Warn("snapshot rollback failed", "snapshot_id", b.result.SnapshotID, "error", err)
	}
	if e.writer == nil {
		return
	}
	// Best effort: a cleanup failure leaves an unreferenced object, never a dangling row.
	for _, key := range b.casKeys {
		if err := e.writer.Delete(context.Background(), key); err != nil {
			e.log().Warn("remove uncommitted blob failed", "blob_key", key, "error", err)
		}
	}
}

// walk visits the tree depth first with an explicit stack. Within a
// directory, subdirectories come before files and both are in lexical order.
func (e *Engine) walk(ctx context.Context, b *build) error {
	rootInfo, err := os.Stat(b.root)
	if err != nil {
		return ioError(err)
	}
	stack := []walkItem{{path: b.root, info: rootInfo}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !item.info.IsDir() {
			if err := e.addFile(ctx, b, item); err != nil {
				return err
			}
			continue
		}

		dirs, files, err := e.readDir(b, item.path)
		if err != nil {
			return err
		}
		// Pushed in reverse so the lexically first directory pops first.
		for i := len(files) - 1; i >= 0; i-- {
			stack = append(stack, files[i])
		}
		for i := len(dirs) - 1; i >= 0; i-- {
			stack = append(stack, dirs[i])
		}
	}
	return nil
}

func (e *Engine) readDir(b *build, dir string) ([]walkItem, []walkItem, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, ioError(fmt.Errorf("read directory %s: %w", dir, err))
	}

	var dirs, files []walkItem
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if e.isExcluded(path) {
			continue
		}
		// Stat follows symlinks.
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && entry.Type()&fs.ModeSymlink != 0 {
				e.log().Warn("skipping dangling symlink", "path", path)
				b.result.Skipped++
				continue
			}
			return nil, nil, ioError(fmt.Errorf("stat %s: %w", path, err))
		}
		switch {
		case info.IsDir():
			dirs = append(dirs, walkItem{path: path, info: info})
		case info.Mode().IsRegular():
			files = append(files, walkItem{path: path, info: info})
		default:
			e.log().Warn("skipping non-regular file", "path", path, "mode", info.Mode().String())
			b.result.Skipped++
		}
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].path < dirs[j].path })
	sort.Slice(files, func(i, j int) bool { return files[i].path < files[j].path })
	return dirs, files, nil
}

func (e *Engine) addFile(ctx context.Context, b *build, item walkItem) error {
	rel, err := filepath.Rel(b.root, item.path)
	if err != nil {
		return internalError(err)
	}
	rel = filepath.ToSlash(rel)

	digest, size, err := e.hasher.File(item.path)
	if err != nil {
		return ioError(fmt.Errorf("hash %s: %w", item.path, err))
	}

	blob, err := b.writer.FindBlob(ctx, digest)
	if err != nil {
		return storeFailure("find blob", err)
	}
	if blob == nil {
		candidate, err := e.storeContent(ctx, b, item.path, digest, size)
		if err != nil {
			return err
		}
		var created bool
		blob, created, err = b.writer.AddBlob(ctx, candidate)
		if err != nil {
			return storeFailure("add blob", err)
		}
		if created {
			b.result.NewBlobs++
		} else {
			b.result.ReusedBlobs++
		}
	} else {
		b.result.ReusedBlobs++
	}

	if err := b.writer.Link(ctx, blob.ID, rel); err != nil {
		return storeFailure("link blob", err)
	}
	b.result.Files++
	b.result.Bytes += size
	e.log().Debug("indexed file", "path", rel, "hash", blob.Hash)
	return nil
}

// storeContent makes the bytes of a newly seen file retrievable and returns
// the blob row describing where they live.
func (e *Engine) storeContent(ctx context.Context, b *build, path, digest string, size int64) (*models.Blob, error) {
	blob := &models.Blob{
		Hash:           digest,
		SourcePath:     path,
		SizeBytes:      size,
		StorageBackend: e.mode.Backend(),
		BlobKey:        path,
		CreatedAt:      e.now(),
	}
	if e.mode != models.StorageModeCAS {
		return blob, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, ioError(err)
	}
	defer f.Close()

	put, err := e.writer.Put(ctx, f)
	if err != nil {
		return nil, ioError(fmt.Errorf("store %s: %w", path, err))
	}
	if put.Created {
		b.casKeys = append(b.casKeys, put.BlobKey)
	}
	if put.Digest != digest {
		return nil, ioError(fmt.Errorf("%s changed while it was being snapshotted", path))
	}
	blob.BlobKey = put.BlobKey
	blob.SizeBytes = put.SizeBytes
	return blob, nil
}
