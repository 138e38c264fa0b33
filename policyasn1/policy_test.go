package policyasn1

import (
	"crypto/x509"
	"encoding/asn1"
	"testing"

	"github.com/jmhodges/clock"
	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/letsencrypt/evcheck/test"
)

var (
	digiCertEV = asn1.ObjectIdentifier{2, 16, 840, 1, 114412, 2, 1}
	cpsQualOID = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 2, 1}
)

func mustMarshal(t *testing.T, infos []PolicyInformation) []byte {
	t.Helper()
	der, err := asn1.Marshal(infos)
	test.AssertNotError(t, err, "marshalling PolicyInformation")
	return der
}

func build(t *testing.T, f cryptobyte.BuilderContinuation) []byte {
	t.Helper()
	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SEQUENCE, f)
	der, err := b.Bytes()
	test.AssertNotError(t, err, "building test DER")
	return der
}

func TestParsePolicyOIDsOrder(t *testing.T) {
	t.Parallel()

	der := mustMarshal(t, []PolicyInformation{{Policy: digiCertEV}, {Policy: AnyPolicyOID}})
	oids, err := ParsePolicyOIDs(der)
	test.AssertNotError(t, err, "parsing two policies")
	test.AssertDeepEquals(t, oids, []string{"2.16.840.1.114412.2.1", "2.5.29.32.0"})

	der = mustMarshal(t, []PolicyInformation{{Policy: AnyPolicyOID}, {Policy: digiCertEV}})
	oids, err = ParsePolicyOIDs(der)
	test.AssertNotError(t, err, "parsing two policies, reversed")
	test.AssertDeepEquals(t, oids, []string{"2.5.29.32.0", "2.16.840.1.114412.2.1"})
}

func TestParsePolicyOIDsEmptySequence(t *testing.T) {
	t.Parallel()

	oids, err := ParsePolicyOIDs([]byte{0x30, 0x00})
	test.AssertNotError(t, err, "parsing empty sequence")
	test.AssertDeepEquals(t, oids, []string{})
	test.AssertDeepEquals(t, ExtractPolicyOIDs([]byte{0x30, 0x00}), []string{})
}

func TestParsePolicyOIDsWithQualifiers(t *testing.T) {
	t.Parallel()

	der := build(t, func(b *cryptobyte.Builder) {
		b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(digiCertEV)
			b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
				b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
					b.AddASN1ObjectIdentifier(cpsQualOID)
					b.AddASN1(cryptobyte_asn1.IA5String, func(b *cryptobyte.Builder) {
						b.AddBytes([]byte("http://www.digicert.com/CPS"))
					})
				})
			})
		})
		b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(AnyPolicyOID)
		})
	})

	oids, err := ParsePolicyOIDs(der)
	test.AssertNotError(t, err, "parsing policies with qualifiers")
	test.AssertDeepEquals(t, oids, []string{"2.16.840.1.114412.2.1", "2.5.29.32.0"})
}

func TestParsePolicyOIDsMalformed(t *testing.T) {
	t.Parallel()

	valid := mustMarshal(t, []PolicyInformation{{Policy: digiCertEV}})

	testCases := []struct {
		name string
		der  []byte
	}{
		{name: "nil", der: nil},
		{name: "empty", der: []byte{}},
		{name: "truncated header", der: []byte{0x30}},
		{name: "truncated body", der: valid[:len(valid)-2]},
		{name: "octet string instead of sequence", der: []byte{0x04, 0x00}},
		{name: "trailing data", der: append(append([]byte{}, valid...), 0x00)},
		{
			name: "entry is not a sequence",
			der: build(t, func(b *cryptobyte.Builder) {
				b.AddASN1Int64(1)
			}),
		},
		{
			name: "policyIdentifier is not an OID",
			der: build(t, func(b *cryptobyte.Builder) {
				b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
					b.AddASN1Int64(1)
				})
			}),
		},
		{
			name: "qualifiers are not a sequence",
			der: build(t, func(b *cryptobyte.Builder) {
				b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
					b.AddASN1ObjectIdentifier(digiCertEV)
					b.AddASN1Int64(1)
				})
			}),
		},
		{
			name: "extra field after qualifiers",
			der: build(t, func(b *cryptobyte.Builder) {
				b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
					b.AddASN1ObjectIdentifier(digiCertEV)
					b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {})
					b.AddASN1Int64(1)
				})
			}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParsePolicyOIDs(tc.der)
			test.AssertError(t, err, "malformed certificatePolicies should not parse")
			test.AssertDeepEquals(t, ExtractPolicyOIDs(tc.der), []string{})
		})
	}
}

func TestPolicyExtensionFromCertificate(t *testing.T) {
	t.Parallel()
	clk := clock.NewFake()

	cert := test.EVCert(t, clk, "ev.example.com", digiCertEV, AnyPolicyOID)
	value, ok := PolicyExtension(cert.Leaf)
	test.Assert(t, ok, "expected certificatePolicies extension to be present")
	test.AssertDeepEquals(t, ExtractPolicyOIDs(value), []string{"2.16.840.1.114412.2.1", "2.5.29.32.0"})

	bare := test.EVCert(t, clk, "dv.example.com")
	value, ok = PolicyExtension(bare.Leaf)
	test.Assert(t, !ok, "expected no certificatePolicies extension")
	test.Assert(t, value == nil, "expected nil extension value")
}

func TestCertificateExtensions(t *testing.T) {
	t.Parallel()
	clk := clock.NewFake()

	cert := test.EVCert(t, clk, "ev.example.com", digiCertEV)
	exts, err := CertificateExtensions(cert.Certificate[0])
	test.AssertNotError(t, err, "reading extensions of well-formed certificate")
	test.AssertDeepEquals(t, exts, cert.Leaf.Extensions)

	malformed := []byte{0x30, 0x03, 0x06, 0x01}
	bad := test.MalformedPolicyCert(t, clk, "bad.example.com", malformed)
	_, err = x509.ParseCertificate(bad.Certificate[0])
	test.AssertError(t, err, "crypto/x509 should reject malformed certificatePolicies")

	exts, err = CertificateExtensions(bad.Certificate[0])
	test.AssertNotError(t, err, "reading extensions of certificate with malformed policies")
	value, ok := PolicyExtension(&x509.Certificate{Extensions: exts})
	test.Assert(t, ok, "expected certificatePolicies extension to be present")
	test.AssertDeepEquals(t, value, malformed)
	_, err = ParsePolicyOIDs(value)
	test.AssertError(t, err, "malformed value should not decode")

	_, err = CertificateExtensions([]byte{0x30, 0x00})
	test.AssertError(t, err, "empty sequence is not a certificate")

	_, err = CertificateExtensions(append(append([]byte{}, cert.Certificate[0]...), 0x00))
	test.AssertError(t, err, "trailing data after certificate")
}
