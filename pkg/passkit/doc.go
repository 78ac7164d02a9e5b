// Package passkit builds signed wallet pass bundles (.pkpass files).
//
// A pass is described by a Pass value, serialized to pass.json, packed into
// a flat bundle directory with its images, hashed into manifest.json and
// signed with a detached PKCS#7 signature over the manifest. The bundle is
// then zipped with every entry at the archive root.
//
// # Basic Usage
//
//	pass, err := passkit.NewBoardingPass("pass.com.example.flight", "123456", passkit.TransitTypeAir)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	pass.AddPrimaryField("origin", "San Francisco", passkit.FieldOptions{Label: "SFO"})
//	pass.SetImage(passkit.ImageIcon, "assets/icon.png")
//
//	err = passkit.Sign(ctx, pass, passkit.SignOptions{
//	    P12Path:     "cert.p12",
//	    P12Password: "secret",
//	    OutputPath:  "flight.pkpass",
//	})
//
// # Collaborators
//
// Digest computation, signing and identity extraction are behind the
// Digester, Signer and IdentityExtractor interfaces. The defaults run in
// process; CommandDigester and CommandSigner shell out to openssl instead.
package passkit
