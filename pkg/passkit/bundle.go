package passkit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Bundle file names.
const (
	PassFile      = "pass.json"
	ManifestFile  = "manifest.json"
	SignatureFile = "signature"
)

// resolutionSuffixes are the high resolution variants packed next to each
// declared image.
var resolutionSuffixes = []string{"@2x", "@3x"}

// Pack writes the pass into dir. Any existing directory at dir is removed
// first. The result holds pass.json plus every declared image (and its
// resolution variants) that exists.
//
// Images are renamed after their role with the lowercased source extension:
// the icon declared as "assets/my-icon.PNG" is packed as "icon.png", and
// "assets/my-icon@2x.PNG" as "icon@2x.png". The source file name is not kept.
func Pack(p *Pass, dir string) error {
	data, err := p.Serialize()
	if err != nil {
		return err
	}

	var indented bytes.Buffer
	if err := json.Indent(&indented, data, "", "\t"); err != nil {
		return fmt.Errorf("failed to format %s: %w", PassFile, err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("%w: failed to remove existing bundle directory: %v", ErrIO, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create bundle directory: %v", ErrIO, err)
	}

	if err := os.WriteFile(filepath.Join(dir, PassFile), indented.Bytes(), 0644); err != nil {
		return fmt.Errorf("%w: failed to write %s: %v", ErrIO, PassFile, err)
	}

	for _, role := range imageRoles {
		src := p.images[role]
		if src == "" {
			continue
		}
		if err := packImage(role, src, dir); err != nil {
			return err
		}
	}

	return nil
}

// packImage copies the base image and each resolution variant that exists.
// Missing files are skipped.
func packImage(role ImageRole, src, dir string) error {
	ext := strings.ToLower(filepath.Ext(src))
	base := strings.TrimSuffix(src, filepath.Ext(src))

	candidates := []struct{ from, to string }{
		{src, string(role) + ext},
	}
	for _, suffix := range resolutionSuffixes {
		candidates = append(candidates, struct{ from, to string }{
			base + suffix + filepath.Ext(src),
			string(role) + suffix + ext,
		})
	}

	for _, c := range candidates {
		info, err := os.Stat(c.from)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: failed to stat %s: %v", ErrIO, c.from, err)
		}
		if info.IsDir() {
			continue
		}
		if err := copyFile(c.from, filepath.Join(dir, c.to), 0644); err != nil {
			return fmt.Errorf("%w: failed to copy %s image: %v", ErrIO, role, err)
		}
	}
	return nil
}

// copyFile copies a single file from src to dst with the given mode using streaming I/O
func copyFile(src, dst string, mode os.FileMode) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return err
	}
	return dstFile.Close()
}
