package passkit

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	gop12 "software.sslmate.com/src/go-pkcs12"
)

const (
	testPassTypeID = "pass.com.example.test"
	testTeamID     = "ABCDE12345"
	testPassword   = "secret"
)

type testPKI struct {
	ca      *x509.Certificate
	leaf    *x509.Certificate
	leafKey *rsa.PrivateKey
	p12     []byte
}

var (
	pkiOnce sync.Once
	pki     *testPKI
	pkiErr  error
)

// getTestPKI returns a CA, a pass type leaf certificate issued by it, and a
// PKCS#12 container holding the leaf and its key. Generated once per run.
func getTestPKI(t *testing.T) *testPKI {
	t.Helper()
	pkiOnce.Do(func() {
		pki, pkiErr = newTestPKI()
	})
	if pkiErr != nil {
		t.Fatalf("failed to create test PKI: %v", pkiErr)
	}
	return pki
}

func newTestPKI() (*testPKI, error) {
	caKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	caTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test WWDR", Organization: []string{"Example"}},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTemplate, caTemplate, &caKey.PublicKey, caKey)
	if err != nil {
		return nil, err
	}
	ca, err := x509.ParseCertificate(caDER)
	if err != nil {
		return nil, err
	}

	leafKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	leafTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject: pkix.Name{
			CommonName:         "Pass Type ID: " + testPassTypeID,
			OrganizationalUnit: []string{testTeamID},
			ExtraNames: []pkix.AttributeTypeAndValue{
				{Type: asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 1}, Value: testPassTypeID},
			},
		},
		NotBefore:   now.Add(-time.Hour),
		NotAfter:    now.Add(24 * time.Hour),
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTemplate, ca, &leafKey.PublicKey, caKey)
	if err != nil {
		return nil, err
	}
	leaf, err := x509.ParseCertificate(leafDER)
	if err != nil {
		return nil, err
	}

	p12, err := gop12.Modern.Encode(leafKey, leaf, nil, testPassword)
	if err != nil {
		return nil, err
	}

	return &testPKI{ca: ca, leaf: leaf, leafKey: leafKey, p12: p12}, nil
}

func (p *testPKI) roots() *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(p.ca)
	return pool
}

// writeFile creates a file with the given content below dir.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// newDemoBoardingPass builds the flight boarding pass used across tests.
func newDemoBoardingPass(t *testing.T) *Pass {
	t.Helper()
	p, err := NewBoardingPass(testPassTypeID, "123456", TransitTypeAir)
	if err != nil {
		t.Fatalf("NewBoardingPass failed: %v", err)
	}
	p.SetOrganizationName("Example Air")
	p.SetTeamIdentifier(testTeamID)
	p.SetDescription("Example boarding pass")

	mustField(t)(p.AddPrimaryField("origin", "San Francisco", FieldOptions{Label: "SFO"}))
	mustField(t)(p.AddPrimaryField("destination", "London", FieldOptions{Label: "LHR"}))
	f := mustField(t)(p.AddSecondaryField("board-time", "2012-04-01T07:00-08:00", FieldOptions{
		Label:         "Boards",
		ChangeMessage: "Boarding time changed to %@.",
	}))
	if err := f.SetDateStyle(DateStyleFull, DateStyleFull, true); err != nil {
		t.Fatalf("SetDateStyle failed: %v", err)
	}
	mustField(t)(p.AddAuxiliaryField("seat", "7A", FieldOptions{Label: "Seat"}))
	mustField(t)(p.AddBackField("freq-flier-num", "1234-5678", FieldOptions{Label: "Frequent flier number"}))
	return p
}

func mustField(t *testing.T) func(*Field, error) *Field {
	return func(f *Field, err error) *Field {
		t.Helper()
		if err != nil {
			t.Fatalf("failed to add field: %v", err)
		}
		return f
	}
}
