package passkit

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.mozilla.org/pkcs7"
)

// WriteArchive zips the root level files of dir into outputPath with every
// entry at the archive root. The archive is written to a temporary sibling
// and renamed into place, so outputPath never holds a partial archive.
func WriteArchive(dir, outputPath string) (err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read bundle directory: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	outFile, err := os.CreateTemp(filepath.Dir(outputPath), ".pkpass-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	tmpPath := outFile.Name()
	defer func() {
		if err != nil {
			outFile.Close()
			os.Remove(tmpPath)
		}
	}()

	w := zip.NewWriter(outFile)
	for _, entry := range entries {
		if entry.IsDir() {
			return fmt.Errorf("unexpected subdirectory %s in bundle", entry.Name())
		}
		if err := addZipEntry(w, dir, entry.Name()); err != nil {
			return fmt.Errorf("failed to add %s: %w", entry.Name(), err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	if err := outFile.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to set archive mode: %w", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		return fmt.Errorf("failed to move archive into place: %w", err)
	}
	return nil
}

func addZipEntry(w *zip.Writer, dir, name string) error {
	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	// Create file entry with proper compression
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	writer, err := w.CreateHeader(header)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(writer, file)
	return err
}

// ArchiveInfo describes a verified pass archive.
type ArchiveInfo struct {
	Files        []string
	Manifest     Manifest
	Pass         map[string]interface{}
	Signer       *x509.Certificate
	Certificates []*x509.Certificate
}

// VerifyArchive checks a .pkpass archive: flat layout, required entries,
// manifest completeness and digests, and the detached signature over the
// manifest bytes. When roots is non-nil the signer certificate must also
// chain to one of them.
func VerifyArchive(path string, roots *x509.CertPool) (*ArchiveInfo, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	contents := make(map[string][]byte, len(r.File))
	info := &ArchiveInfo{}
	for _, f := range r.File {
		if strings.ContainsAny(f.Name, `/\`) {
			return nil, fmt.Errorf("archive entry %s is not at the archive root", f.Name)
		}
		data, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		contents[f.Name] = data
		info.Files = append(info.Files, f.Name)
	}
	sort.Strings(info.Files)

	for _, required := range []string{PassFile, ManifestFile, SignatureFile} {
		if _, ok := contents[required]; !ok {
			return nil, fmt.Errorf("archive is missing %s", required)
		}
	}

	if err := json.Unmarshal(contents[PassFile], &info.Pass); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", PassFile, err)
	}

	manifestData := contents[ManifestFile]
	if err := json.Unmarshal(manifestData, &info.Manifest); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ManifestFile, err)
	}

	digester := SHA1Digester{}
	for name, data := range contents {
		if name == ManifestFile || name == SignatureFile {
			continue
		}
		want, ok := info.Manifest[name]
		if !ok {
			return nil, fmt.Errorf("%s is not listed in the manifest", name)
		}
		sum, err := digester.Digest(context.Background(), bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		if got := hex.EncodeToString(sum); got != want {
			return nil, fmt.Errorf("digest mismatch for %s: manifest %s, content %s", name, want, got)
		}
	}
	for name := range info.Manifest {
		if _, ok := contents[name]; !ok {
			return nil, fmt.Errorf("manifest lists %s which is not in the archive", name)
		}
	}

	p7, err := pkcs7.Parse(contents[SignatureFile])
	if err != nil {
		return nil, fmt.Errorf("failed to parse signature: %w", err)
	}
	p7.Content = manifestData
	if roots != nil {
		err = p7.VerifyWithChain(roots)
	} else {
		err = p7.Verify()
	}
	if err != nil {
		return nil, fmt.Errorf("signature does not verify against %s: %w", ManifestFile, err)
	}
	info.Signer = p7.GetOnlySigner()
	info.Certificates = p7.Certificates

	return info, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
