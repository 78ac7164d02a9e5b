package passkit

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Manifest maps each bundle file name to the lowercase hex digest of its
// content.
type Manifest map[string]string

// BuildManifest digests every regular file at the root of dir, except the
// manifest and signature themselves. A subdirectory is an error since a
// packed bundle is flat.
func BuildManifest(ctx context.Context, dir string, digester Digester) (Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle directory: %w", err)
	}

	manifest := make(Manifest, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if name == ManifestFile || name == SignatureFile {
			continue
		}
		if entry.IsDir() {
			return nil, fmt.Errorf("unexpected subdirectory %s in bundle", name)
		}
		if !entry.Type().IsRegular() {
			return nil, fmt.Errorf("unexpected non-regular file %s in bundle", name)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sum, err := digestFile(ctx, digester, filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to hash %s: %w", name, err)
		}
		manifest[name] = hex.EncodeToString(sum)
	}
	return manifest, nil
}

func digestFile(ctx context.Context, digester Digester, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return digester.Digest(ctx, f)
}

// Marshal encodes the manifest. Keys are sorted, so equal manifests encode
// to equal bytes.
func (m Manifest) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(map[string]string(m), "", "\t")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return data, nil
}

// WriteManifest writes manifest.json into dir and returns the exact bytes
// written.
func WriteManifest(dir string, m Manifest) ([]byte, error) {
	data, err := m.Marshal()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", ManifestFile, err)
	}
	return data, nil
}
