package passkit

import (
	"bytes"
	"context"
	"crypto/sha1"
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"go.mozilla.org/pkcs7"
)

// Digester computes the manifest digest of a file's content.
type Digester interface {
	Digest(ctx context.Context, r io.Reader) ([]byte, error)
}

// Signer produces a detached, DER encoded PKCS#7 signature over content.
// Certificates in chain are embedded after the signing certificate.
type Signer interface {
	Sign(ctx context.Context, content []byte, identity *Identity, chain []*x509.Certificate) ([]byte, error)
}

// SHA1Digester hashes in process. SHA-1 is mandated by the pass manifest
// format.
type SHA1Digester struct{}

func (SHA1Digester) Digest(ctx context.Context, r io.Reader) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h := sha1.New()
	if _, err := io.Copy(h, r); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// PKCS7Signer signs in process with go.mozilla.org/pkcs7.
type PKCS7Signer struct {
	// DigestAlgorithm defaults to SHA-256.
	DigestAlgorithm asn1.ObjectIdentifier
}

func (s PKCS7Signer) Sign(ctx context.Context, content []byte, identity *Identity, chain []*x509.Certificate) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if identity == nil || identity.Certificate == nil || identity.PrivateKey == nil {
		return nil, fmt.Errorf("signing identity is incomplete")
	}

	signedData, err := pkcs7.NewSignedData(content)
	if err != nil {
		return nil, fmt.Errorf("failed to create signed data: %w", err)
	}

	digest := s.DigestAlgorithm
	if digest == nil {
		digest = pkcs7.OIDDigestAlgorithmSHA256
	}
	signedData.SetDigestAlgorithm(digest)

	if err := signedData.AddSignerChain(identity.Certificate, identity.PrivateKey, chain, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, fmt.Errorf("failed to add signer chain: %w", err)
	}

	// The manifest travels next to the signature, not inside it
	signedData.Detach()

	der, err := signedData.Finish()
	if err != nil {
		return nil, fmt.Errorf("failed to finish signing: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return der, nil
}

// CommandDigester pipes content through "openssl dgst -sha1 -binary".
type CommandDigester struct {
	// OpenSSL is the binary to run, "openssl" when empty.
	OpenSSL string
}

func (d CommandDigester) Digest(ctx context.Context, r io.Reader) ([]byte, error) {
	cmd := exec.CommandContext(ctx, opensslPath(d.OpenSSL), "dgst", "-sha1", "-binary")
	cmd.Stdin = r
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("openssl dgst failed: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	if len(out) != sha1.Size {
		return nil, fmt.Errorf("openssl dgst returned %d bytes, want %d", len(out), sha1.Size)
	}
	return out, nil
}

// CommandSigner runs "openssl smime -sign -binary -outform DER". Key
// material is written to a private temporary directory for the duration of
// the call.
type CommandSigner struct {
	OpenSSL string
	TempDir string
}

func (s CommandSigner) Sign(ctx context.Context, content []byte, identity *Identity, chain []*x509.Certificate) ([]byte, error) {
	if identity == nil || identity.Certificate == nil || identity.PrivateKey == nil {
		return nil, fmt.Errorf("signing identity is incomplete")
	}

	dir, err := os.MkdirTemp(s.TempDir, "pkpass-smime-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(dir)

	keyDER, err := x509.MarshalPKCS8PrivateKey(identity.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}

	certPath := filepath.Join(dir, "signer.pem")
	keyPath := filepath.Join(dir, "key.pem")
	contentPath := filepath.Join(dir, "content")
	files := map[string][]byte{
		certPath:    pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: identity.Certificate.Raw}),
		keyPath:     pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}),
		contentPath: content,
	}

	args := []string{"smime", "-sign", "-binary", "-outform", "DER", "-md", "sha256",
		"-signer", certPath, "-inkey", keyPath, "-in", contentPath}
	if len(chain) > 0 {
		var chainPEM []byte
		for _, c := range chain {
			chainPEM = append(chainPEM, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c.Raw})...)
		}
		chainPath := filepath.Join(dir, "chain.pem")
		files[chainPath] = chainPEM
		args = append(args, "-certfile", chainPath)
	}

	for path, data := range files {
		if err := os.WriteFile(path, data, 0600); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
		}
	}

	cmd := exec.CommandContext(ctx, opensslPath(s.OpenSSL), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("openssl smime failed: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("openssl smime returned no signature")
	}
	return out, nil
}

func opensslPath(p string) string {
	if p == "" {
		return "openssl"
	}
	return p
}
