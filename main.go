package main

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aluedeke/go-pkpass/pkg/passkit"
	"github.com/charmbracelet/log"
	"github.com/docopt/docopt-go"
)

const version = "1.0.0"

const usage = `pkpass - Wallet Pass Signing Tool

A command-line tool for building and signing .pkpass archives from JSON or property list pass definitions.

Usage:
  pkpass sign --pass=<path> [--p12=<path>] [--password=<password>] [--output=<path>] [--wwdr=<path>] [--serial=<serial>] [--openssl] [--verbose]
  pkpass show --pass=<path> [--serial=<serial>]
  pkpass verify --pkpass=<path> [--wwdr=<path>]
  pkpass -h | --help
  pkpass --version

Commands:
  sign      Build a pass from a definition and sign it into a .pkpass archive
  show      Print the pass.json a definition produces
  verify    Check the manifest and signature of a .pkpass archive

Options:
  --pass=<path>         Path to the pass definition (.json or .plist)
  --pkpass=<path>       Path to a .pkpass archive (verify command)
  --p12=<path>          Path to the P12 certificate file (or PKPASS_P12 env var)
  --password=<password> Password for the P12 certificate (or PKPASS_PASSWORD env var)
  --output=<path>       Path for the output archive (defaults to <definition>.pkpass)
  --wwdr=<path>         Intermediate certificate, PEM or DER (or PKPASS_WWDR env var).
                        sign embeds it, defaulting to the Apple WWDR G3 certificate.
                        verify uses it as the trust root.
  --serial=<serial>     Serial number override (a random one is used when the definition has none)
  --openssl             Hash and sign with the openssl binary instead of in process
  --verbose             Log every pipeline phase
  -h --help             Show this help message
  --version             Show version

Environment Variables:
  PKPASS_P12            Path to P12 certificate file (overridden by --p12)
  PKPASS_PASSWORD       P12 certificate password (overridden by --password)
  PKPASS_WWDR           Path to intermediate certificate (overridden by --wwdr)

Examples:
  # Sign a boarding pass
  pkpass sign --pass=boarding.json --p12=pass.p12 --password=secret

  # Sign using environment variables (useful for CI/CD)
  export PKPASS_P12=/path/to/pass.p12
  export PKPASS_PASSWORD=secret
  pkpass sign --pass=coupon.plist --output=coupon.pkpass

  # Preview the pass.json of a definition
  pkpass show --pass=boarding.json

  # Verify an archive's manifest and signature
  pkpass verify --pkpass=boarding.pkpass
`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing arguments: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if sign, _ := opts.Bool("sign"); sign {
		err = runSign(ctx, opts)
	} else if show, _ := opts.Bool("show"); show {
		err = runShow(opts)
	} else if verify, _ := opts.Bool("verify"); verify {
		err = runVerify(opts)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "pkpass",
		Level:  level,
	})
	return slog.New(handler)
}

func loadPass(opts docopt.Opts) (*passkit.Pass, string, error) {
	definitionPath, _ := opts.String("--pass")
	serial, _ := opts.String("--serial")

	data, err := os.ReadFile(definitionPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read pass definition: %w", err)
	}
	def, err := passkit.ParseDefinition(data, passkit.FormatForPath(definitionPath))
	if err != nil {
		return nil, "", err
	}
	if serial != "" {
		def.SerialNumber = serial
	}
	p, err := def.Build(filepath.Dir(definitionPath))
	if err != nil {
		return nil, "", fmt.Errorf("invalid pass definition: %w", err)
	}
	return p, definitionPath, nil
}

func runSign(ctx context.Context, opts docopt.Opts) error {
	p12Path, _ := opts.String("--p12")
	password, _ := opts.String("--password")
	outputPath, _ := opts.String("--output")
	wwdrPath, _ := opts.String("--wwdr")
	useOpenSSL, _ := opts.Bool("--openssl")
	verbose, _ := opts.Bool("--verbose")

	// Get values from environment if not provided via flags
	if p12Path == "" {
		p12Path = os.Getenv("PKPASS_P12")
	}
	if password == "" {
		password = os.Getenv("PKPASS_PASSWORD")
	}
	if wwdrPath == "" {
		wwdrPath = os.Getenv("PKPASS_WWDR")
	}

	if p12Path == "" {
		return fmt.Errorf("--p12 is required (or set PKPASS_P12 environment variable)")
	}

	p, definitionPath, err := loadPass(opts)
	if err != nil {
		return err
	}

	if outputPath == "" {
		ext := filepath.Ext(definitionPath)
		outputPath = strings.TrimSuffix(definitionPath, ext) + ".pkpass"
	}

	wwdr, err := loadWWDR(wwdrPath)
	if err != nil {
		return err
	}

	fmt.Printf("Signing pass: %s\n", definitionPath)
	fmt.Printf("Pass type:    %s\n", p.PassTypeIdentifier())
	fmt.Printf("Serial:       %s\n", p.SerialNumber())
	fmt.Printf("Certificate:  %s\n", p12Path)
	fmt.Printf("Intermediate: %s\n", wwdr.Subject.CommonName)
	fmt.Printf("Output:       %s\n", outputPath)
	fmt.Println()

	pl := passkit.NewPipeline()
	pl.Logger = newLogger(verbose)
	if useOpenSSL {
		pl.Signer = passkit.CommandSigner{}
		pl.Digester = passkit.CommandDigester{}
	}

	err = pl.Sign(ctx, p, passkit.SignOptions{
		P12Path:       p12Path,
		P12Password:   password,
		OutputPath:    outputPath,
		Intermediates: []*x509.Certificate{wwdr},
	})
	if err != nil {
		return err
	}

	fmt.Printf("Successfully signed pass: %s\n", outputPath)
	return nil
}

func loadWWDR(path string) (*x509.Certificate, error) {
	if path == "" {
		return passkit.AppleWWDRCertificate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read intermediate certificate: %w", err)
	}
	return passkit.ParseCertificate(data)
}

func runShow(opts docopt.Opts) error {
	p, _, err := loadPass(opts)
	if err != nil {
		return err
	}
	for _, w := range p.Warnings() {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	data, err := p.Serialize()
	if err != nil {
		return err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return err
	}
	fmt.Println(out.String())
	return nil
}

func runVerify(opts docopt.Opts) error {
	archivePath, _ := opts.String("--pkpass")
	wwdrPath, _ := opts.String("--wwdr")
	if wwdrPath == "" {
		wwdrPath = os.Getenv("PKPASS_WWDR")
	}

	var roots *x509.CertPool
	if wwdrPath != "" {
		root, err := loadWWDR(wwdrPath)
		if err != nil {
			return err
		}
		roots = x509.NewCertPool()
		roots.AddCert(root)
	}

	info, err := passkit.VerifyArchive(archivePath, roots)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	fmt.Println("Pass Archive Information")
	fmt.Println("========================")
	fmt.Printf("File:           %s\n", archivePath)
	fmt.Printf("Pass Type ID:   %v\n", info.Pass["passTypeIdentifier"])
	fmt.Printf("Serial:         %v\n", info.Pass["serialNumber"])
	if team, ok := info.Pass["teamIdentifier"]; ok {
		fmt.Printf("Team ID:        %v\n", team)
	}
	fmt.Printf("Files:          %d\n", len(info.Files))
	for _, name := range info.Files {
		if digest, ok := info.Manifest[name]; ok {
			fmt.Printf("  %-20s %s\n", name, digest)
		} else {
			fmt.Printf("  %s\n", name)
		}
	}

	fmt.Println()
	fmt.Println("Signature")
	fmt.Println("---------")
	if info.Signer != nil {
		fmt.Printf("Signer:         %s\n", info.Signer.Subject.CommonName)
		fmt.Printf("Expires:        %s\n", info.Signer.NotAfter.Format("2006-01-02"))
	}
	certs := make([]string, 0, len(info.Certificates))
	for _, cert := range info.Certificates {
		certs = append(certs, cert.Subject.CommonName)
	}
	sort.Strings(certs)
	fmt.Printf("Certificates:   %d\n", len(certs))
	for i, name := range certs {
		fmt.Printf("  [%d] %s\n", i+1, name)
	}
	if roots != nil {
		fmt.Println("Chain:          verified")
	} else {
		fmt.Println("Chain:          not checked (no --wwdr root given)")
	}
	return nil
}
