package passkit

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// DefaultPhaseTimeout bounds each digest and signing phase.
const DefaultPhaseTimeout = 30 * time.Second

// SignOptions contains the inputs of one sign operation.
type SignOptions struct {
	// P12Path or P12Data supplies the identity container. Identity, when
	// set, skips extraction.
	P12Path     string
	P12Data     []byte
	P12Password string
	Identity    *Identity

	OutputPath string // Path of the .pkpass archive to create

	// Intermediates are embedded in the signature so a verifier can build
	// the chain. When empty, CA certificates from the container are used.
	Intermediates []*x509.Certificate
}

// Pipeline packs, hashes, signs and archives passes. The zero value is
// usable and selects in process collaborators.
type Pipeline struct {
	Signer    Signer
	Digester  Digester
	Extractor IdentityExtractor
	Logger    *slog.Logger

	// TempDir is the parent of per-call bundle directories, os.TempDir()
	// when empty.
	TempDir string
	// PhaseTimeout bounds manifest and signing phases.
	PhaseTimeout time.Duration
}

// NewPipeline returns a pipeline with the default collaborators.
func NewPipeline() *Pipeline {
	return &Pipeline{
		Signer:       PKCS7Signer{},
		Digester:     SHA1Digester{},
		Extractor:    PKCS12Extractor{},
		Logger:       slog.Default(),
		PhaseTimeout: DefaultPhaseTimeout,
	}
}

// Sign signs p with the default pipeline.
func Sign(ctx context.Context, p *Pass, opts SignOptions) error {
	return NewPipeline().Sign(ctx, p, opts)
}

// Sign packs p into a fresh temporary bundle directory, writes its manifest
// and detached signature, and archives the bundle to opts.OutputPath. The
// temporary directory is removed on every return path. Failures are
// reported as *PhaseError.
func (pl *Pipeline) Sign(ctx context.Context, p *Pass, opts SignOptions) (err error) {
	if p == nil {
		return fmt.Errorf("%w: pass is required", ErrInvalidValue)
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("%w: output path is required", ErrInvalidValue)
	}
	logger := pl.logger().With("passTypeIdentifier", p.passTypeIdentifier, "serialNumber", p.serialNumber)

	for _, w := range p.Warnings() {
		logger.Warn(w)
	}

	if err := ctx.Err(); err != nil {
		return phaseError(PhasePack, err)
	}

	bundleDir, err := os.MkdirTemp(pl.TempDir, "pkpass-bundle-*")
	if err != nil {
		return phaseError(PhasePack, fmt.Errorf("%w: failed to create temp directory: %v", ErrIO, err))
	}
	defer func() {
		if rmErr := os.RemoveAll(bundleDir); rmErr != nil {
			err = errors.Join(err, fmt.Errorf("%w: failed to remove bundle directory: %v", ErrIO, rmErr))
		}
	}()

	logger.Debug("packing bundle", "dir", bundleDir)
	if err := Pack(p, bundleDir); err != nil {
		return phaseError(PhasePack, err)
	}

	if err := ctx.Err(); err != nil {
		return phaseError(PhaseIdentity, err)
	}
	identity, err := pl.identity(ctx, opts)
	if err != nil {
		return phaseError(PhaseIdentity, err)
	}
	if identity.TeamID != "" && p.teamIdentifier != "" && identity.TeamID != p.teamIdentifier {
		logger.Warn("teamIdentifier does not match signing certificate", "certificateTeamID", identity.TeamID)
	}
	if identity.PassTypeID != "" && identity.PassTypeID != p.passTypeIdentifier {
		logger.Warn("passTypeIdentifier does not match signing certificate", "certificatePassTypeID", identity.PassTypeID)
	}

	logger.Debug("building manifest")
	manifestData, err := pl.manifest(ctx, bundleDir)
	if err != nil {
		return phaseError(PhaseManifest, err)
	}

	logger.Debug("signing manifest", "signer", identity.Certificate.Subject.CommonName)
	if err := pl.sign(ctx, bundleDir, manifestData, identity, opts); err != nil {
		return phaseError(PhaseSign, err)
	}

	if err := ctx.Err(); err != nil {
		return phaseError(PhaseArchive, err)
	}
	logger.Debug("writing archive", "output", opts.OutputPath)
	if err := WriteArchive(bundleDir, opts.OutputPath); err != nil {
		return phaseError(PhaseArchive, err)
	}

	logger.Info("pass signed", "output", opts.OutputPath)
	return nil
}

func (pl *Pipeline) identity(ctx context.Context, opts SignOptions) (*Identity, error) {
	if opts.Identity != nil {
		return opts.Identity, nil
	}
	data := opts.P12Data
	if len(data) == 0 {
		if opts.P12Path == "" {
			return nil, fmt.Errorf("%w: no identity container supplied", ErrIdentityExtraction)
		}
		var err error
		data, err = os.ReadFile(opts.P12Path)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read P12 file: %v", ErrIdentityExtraction, err)
		}
	}
	extractor := pl.Extractor
	if extractor == nil {
		extractor = PKCS12Extractor{}
	}
	identity, err := extractor.Extract(ctx, data, opts.P12Password)
	if err != nil {
		return nil, err
	}
	if identity == nil || identity.Certificate == nil || identity.PrivateKey == nil {
		return nil, fmt.Errorf("%w: extractor returned an incomplete identity", ErrIdentityExtraction)
	}
	return identity, nil
}

func (pl *Pipeline) manifest(ctx context.Context, bundleDir string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, pl.timeout())
	defer cancel()

	digester := pl.Digester
	if digester == nil {
		digester = SHA1Digester{}
	}
	manifest, err := BuildManifest(ctx, bundleDir, digester)
	if err != nil {
		return nil, err
	}
	return WriteManifest(bundleDir, manifest)
}

func (pl *Pipeline) sign(ctx context.Context, bundleDir string, manifestData []byte, identity *Identity, opts SignOptions) error {
	ctx, cancel := context.WithTimeout(ctx, pl.timeout())
	defer cancel()

	chain := opts.Intermediates
	if len(chain) == 0 && len(identity.CertChain) > 1 {
		chain = identity.CertChain[1:]
	}

	signer := pl.Signer
	if signer == nil {
		signer = PKCS7Signer{}
	}
	sig, err := signer.Sign(ctx, manifestData, identity, chain)
	if err != nil {
		return err
	}
	if len(sig) == 0 {
		return fmt.Errorf("signer returned no signature")
	}
	if err := os.WriteFile(filepath.Join(bundleDir, SignatureFile), sig, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", SignatureFile, err)
	}
	return nil
}

func (pl *Pipeline) logger() *slog.Logger {
	if pl.Logger != nil {
		return pl.Logger
	}
	return slog.Default()
}

func (pl *Pipeline) timeout() time.Duration {
	if pl.PhaseTimeout > 0 {
		return pl.PhaseTimeout
	}
	return DefaultPhaseTimeout
}
