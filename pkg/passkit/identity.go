package passkit

import (
	"bytes"
	"context"
	"crypto"
	"crypto/x509"
	"encoding/asn1"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"

	gop12 "software.sslmate.com/src/go-pkcs12"
)

// Apple Worldwide Developer Relations G3 intermediate (DER, base64).
// Pass Type ID certificates issued by Apple chain to it.
const appleWWDRG3Base64 = `MIIEUTCCAzmgAwIBAgIQfK9pCiW3Of57m0R6wXjF7jANBgkqhkiG9w0BAQsFADBiMQswCQYDVQQGEwJVUzETMBEGA1UEChMKQXBwbGUgSW5jLjEmMCQGA1UECxMdQXBwbGUgQ2VydGlmaWNhdGlvbiBBdXRob3JpdHkxFjAUBgNVBAMTDUFwcGxlIFJvb3QgQ0EwHhcNMjAwMjE5MTgxMzQ3WhcNMzAwMjIwMDAwMDAwWjB1MUQwQgYDVQQDDDtBcHBsZSBXb3JsZHdpZGUgRGV2ZWxvcGVyIFJlbGF0aW9ucyBDZXJ0aWZpY2F0aW9uIEF1dGhvcml0eTELMAkGA1UECwwCRzMxEzARBgNVBAoMCkFwcGxlIEluYy4xCzAJBgNVBAYTAlVTMIIBIjANBgkqhkiG9w0BAQEFAAOCAQ8AMIIBCgKCAQEA2PWJ/KhZC4fHTJEuLVaQ03gdpDDppUjvC0O/LYT7JF1FG+XrWTYSXFRknmxiLbTGl8rMPPbWBpH85QKmHGq0edVny6zpPwcR4YS8Rx1mjjmi6LRJ7TrS4RBgeo6TjMrA2gzAg9Dj+ZHWp4zIwXPirkbRYp2SqJBgN31ols2N4Pyb+ni743uvLRfdW/6AWSN1F7gSwe0b5TTO/iK1nkmw5VW/j4SiPKi6xYaVFuQAyZ8D0MyzOhZ71gVcnetHrg21LYwOaU1A0EtMOwSejSGxrC5DVDDOwYqGlJhL32oNP/77HK6XF8J4CjDgXx9UO0m3JQAaN4LSVpelUkl8YDib7wIDAQABo4HvMIHsMBIGA1UdEwEB/wQIMAYBAf8CAQAwHwYDVR0jBBgwFoAUK9BpR5R2Cf70a40uQKb3R01/CF4wRAYIKwYBBQUHAQEEODA2MDQGCCsGAQUFBzABhihodHRwOi8vb2NzcC5hcHBsZS5jb20vb2NzcDAzLWFwcGxlcm9vdGNhMC4GA1UdHwQnMCUwI6AhoB+GHWh0dHA6Ly9jcmwuYXBwbGUuY29tL3Jvb3QuY3JsMB0GA1UdDgQWBBQJ/sAVkPmvZAqSErkmKGMMl+ynsjAOBgNVHQ8BAf8EBAMCAQYwEAYKKoZIhvdjZAYCAQQCBQAwDQYJKoZIhvcNAQELBQADggEBAK1lE+j24IF3RAJHQr5fpTkg6mKp/cWQyXMT1Z6b0KoPjY3L7QHPbChAW8dVJEH4/M/BtSPp3Ozxb8qAHXfCxGFJJWevD8o5Ja3T43rMMygNDi6hV0Bz+uZcrgZRKe3jhQxPYdwyFot30ETKXXIDMUacrptAGvr04NM++i+MZp+XxFRZ79JI9AeZSWBZGcfdlNHAwWx/eCHvDOs7bJmCS1JgOLU5gm3sUjFTvg+RTElJdI+mUcuER04ddSduvfnSXPN/wmwLCTbiZOTCNwMUGdXqapSqqdv+9poIZ4vvK7iqF0mDr8/LvOnP6pVxsLRFoszlh6oKw0E6eVzaUDSdlTs=`

// oidUserID holds the pass type identifier in Pass Type ID certificates.
var oidUserID = asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 1}

// AppleWWDRCertificate returns the built-in Apple WWDR G3 intermediate.
func AppleWWDRCertificate() (*x509.Certificate, error) {
	der, err := base64.StdEncoding.DecodeString(appleWWDRG3Base64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode Apple WWDR certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Apple WWDR certificate: %w", err)
	}
	return cert, nil
}

// Identity is a signing certificate with its private key.
type Identity struct {
	Certificate *x509.Certificate
	PrivateKey  crypto.PrivateKey
	// CertChain starts with Certificate followed by any CA certificates
	// found in the container.
	CertChain []*x509.Certificate
	TeamID    string
	// PassTypeID is the pass type identifier the certificate was issued for,
	// empty for certificates that do not carry one.
	PassTypeID string
}

// IdentityExtractor pulls a signing identity out of a protected container.
type IdentityExtractor interface {
	Extract(ctx context.Context, container []byte, password string) (*Identity, error)
}

// PKCS12Extractor decodes PKCS#12 containers in process.
type PKCS12Extractor struct{}

func (PKCS12Extractor) Extract(ctx context.Context, container []byte, password string) (*Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadIdentity(container, password)
}

// LoadIdentity decodes a PKCS#12 container holding one certificate and one
// private key.
func LoadIdentity(p12Data []byte, password string) (*Identity, error) {
	if len(p12Data) == 0 {
		return nil, fmt.Errorf("%w: empty PKCS#12 data", ErrIdentityExtraction)
	}
	privateKey, cert, caCerts, err := gop12.DecodeChain(p12Data, password)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode P12: %v", ErrIdentityExtraction, err)
	}
	return newIdentity(cert, privateKey, caCerts)
}

// LoadIdentityFile reads and decodes a PKCS#12 file.
func LoadIdentityFile(path, password string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read P12 file: %v", ErrIdentityExtraction, err)
	}
	return LoadIdentity(data, password)
}

// LoadPEMIdentity builds an identity from a PEM certificate and a PEM
// private key (PKCS#1, PKCS#8 or SEC 1).
func LoadPEMIdentity(certPEM, keyPEM []byte) (*Identity, error) {
	cert, err := ParseCertificate(certPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdentityExtraction, err)
	}

	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, fmt.Errorf("%w: failed to decode PEM key block", ErrIdentityExtraction)
	}

	var privateKey crypto.PrivateKey
	switch block.Type {
	case "RSA PRIVATE KEY":
		privateKey, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		privateKey, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		privateKey, err = x509.ParseECPrivateKey(block.Bytes)
	default:
		return nil, fmt.Errorf("%w: unsupported PEM type: %s", ErrIdentityExtraction, block.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse private key: %v", ErrIdentityExtraction, err)
	}
	return newIdentity(cert, privateKey, nil)
}

// ParseCertificate parses a single PEM or DER encoded certificate.
func ParseCertificate(data []byte) (*x509.Certificate, error) {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("-----BEGIN")) {
		block, _ := pem.Decode(bytes.TrimSpace(data))
		if block == nil || block.Type != "CERTIFICATE" {
			return nil, fmt.Errorf("failed to decode PEM certificate block")
		}
		data = block.Bytes
	}
	cert, err := x509.ParseCertificate(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	return cert, nil
}

func newIdentity(cert *x509.Certificate, privateKey crypto.PrivateKey, caCerts []*x509.Certificate) (*Identity, error) {
	if cert == nil || privateKey == nil {
		return nil, fmt.Errorf("%w: container must hold a certificate and a private key", ErrIdentityExtraction)
	}
	if !keyMatchesCert(privateKey, cert) {
		return nil, fmt.Errorf("%w: private key does not match certificate", ErrIdentityExtraction)
	}
	chain := []*x509.Certificate{cert}
	chain = append(chain, caCerts...)
	return &Identity{
		Certificate: cert,
		PrivateKey:  privateKey,
		CertChain:   chain,
		TeamID:      extractTeamID(cert),
		PassTypeID:  extractPassTypeID(cert),
	}, nil
}

// keyMatchesCert checks if a private key matches a certificate's public key
func keyMatchesCert(privateKey crypto.PrivateKey, cert *x509.Certificate) bool {
	signer, ok := privateKey.(crypto.Signer)
	if !ok {
		return false
	}
	pub, ok := signer.Public().(interface{ Equal(crypto.PublicKey) bool })
	return ok && pub.Equal(cert.PublicKey)
}

func extractTeamID(cert *x509.Certificate) string {
	// Team ID is typically in the Organizational Unit field
	for _, ou := range cert.Subject.OrganizationalUnit {
		if len(ou) == 10 { // Apple Team IDs are 10 characters
			return ou
		}
	}
	return ""
}

func extractPassTypeID(cert *x509.Certificate) string {
	for _, name := range cert.Subject.Names {
		if name.Type.Equal(oidUserID) {
			if s, ok := name.Value.(string); ok {
				return s
			}
		}
	}
	return ""
}
