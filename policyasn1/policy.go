// policyasn1 contains the RFC 5280 Certificate Policies extension ASN.1
// structures, and a decoder which reads the policy identifiers asserted by a
// certificate.
package policyasn1

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

var (
	// CertificatePoliciesExtOID is the OID which identifies the Certificate
	// Policies extension, defined as id-ce-certificatePolicies in RFC 5280.
	CertificatePoliciesExtOID = asn1.ObjectIdentifier{2, 5, 29, 32}

	// AnyPolicyOID is the special anyPolicy identifier, RFC 5280 4.2.1.4.
	AnyPolicyOID = asn1.ObjectIdentifier{2, 5, 29, 32, 0}
)

// PolicyInformation represents the PolicyInformation ASN.1 structure. It
// excludes the Qualifiers field because that field is NOT RECOMMENDED for all
// certificate profiles in the BRs.
type PolicyInformation struct {
	Policy asn1.ObjectIdentifier
}

// PolicyExtension returns the raw value of cert's certificatePolicies
// extension, and whether the extension was present at all.
func PolicyExtension(cert *x509.Certificate) ([]byte, bool) {
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(CertificatePoliciesExtOID) {
			return ext.Value, true
		}
	}
	return nil, false
}

// ParsePolicyOIDs decodes the DER value of a certificatePolicies extension
// and returns the policyIdentifier of every PolicyInformation entry, in
// dotted-decimal form and in the order they were encoded.
//
//	certificatePolicies ::= SEQUENCE SIZE (1..MAX) OF PolicyInformation
//
//	PolicyInformation ::= SEQUENCE {
//	    policyIdentifier   CertPolicyId,
//	    policyQualifiers   SEQUENCE SIZE (1..MAX) OF
//	                            PolicyQualifierInfo OPTIONAL }
//
// Qualifiers are skipped without being inspected. An empty outer SEQUENCE
// decodes to an empty list rather than an error.
func ParsePolicyOIDs(der []byte) ([]string, error) {
	input := cryptobyte.String(der)
	var policies cryptobyte.String
	if !input.ReadASN1(&policies, cryptobyte_asn1.SEQUENCE) {
		return nil, errors.New("failed to read certificatePolicies sequence")
	}
	if !input.Empty() {
		return nil, errors.New("trailing data after certificatePolicies sequence")
	}

	oids := []string{}
	for !policies.Empty() {
		var info cryptobyte.String
		if !policies.ReadASN1(&info, cryptobyte_asn1.SEQUENCE) {
			return nil, errors.New("failed to read PolicyInformation")
		}

		var policyID asn1.ObjectIdentifier
		if !info.ReadASN1ObjectIdentifier(&policyID) {
			return nil, errors.New("failed to read PolicyInformation policyIdentifier")
		}

		if !info.Empty() {
			var qualifiers cryptobyte.String
			if !info.ReadASN1(&qualifiers, cryptobyte_asn1.SEQUENCE) {
				return nil, errors.New("failed to read PolicyInformation policyQualifiers")
			}
			if !info.Empty() {
				return nil, errors.New("unexpected PolicyInformation fields were found")
			}
		}

		oids = append(oids, policyID.String())
	}
	return oids, nil
}

// ExtractPolicyOIDs is ParsePolicyOIDs for callers that only care about the
// identifiers: a value which cannot be decoded yields an empty list, since a
// certificate whose policies cannot be read asserts no EV policy.
func ExtractPolicyOIDs(der []byte) []string {
	oids, err := ParsePolicyOIDs(der)
	if err != nil {
		return []string{}
	}
	return oids
}

// CertificateExtensions reads the extensions of a DER certificate without
// decoding any of them. crypto/x509 refuses certificates whose extensions it
// can't decode, which hides a malformed certificatePolicies value from the
// caller that wants to inspect it.
//
//	TBSCertificate ::= SEQUENCE {
//	    version         [0]  EXPLICIT Version DEFAULT v1,
//	    serialNumber         CertificateSerialNumber,
//	    signature            AlgorithmIdentifier,
//	    issuer               Name,
//	    validity             Validity,
//	    subject              Name,
//	    subjectPublicKeyInfo SubjectPublicKeyInfo,
//	    issuerUniqueID  [1]  IMPLICIT UniqueIdentifier OPTIONAL,
//	    subjectUniqueID [2]  IMPLICIT UniqueIdentifier OPTIONAL,
//	    extensions      [3]  EXPLICIT Extensions OPTIONAL }
func CertificateExtensions(der []byte) ([]pkix.Extension, error) {
	input := cryptobyte.String(der)
	var cert, tbs cryptobyte.String
	if !input.ReadASN1(&cert, cryptobyte_asn1.SEQUENCE) || !input.Empty() {
		return nil, errors.New("malformed certificate")
	}
	if !cert.ReadASN1(&tbs, cryptobyte_asn1.SEQUENCE) {
		return nil, errors.New("malformed tbsCertificate")
	}

	if !tbs.SkipOptionalASN1(cryptobyte_asn1.Tag(0).Constructed().ContextSpecific()) {
		return nil, errors.New("malformed version")
	}
	if !tbs.SkipASN1(cryptobyte_asn1.INTEGER) {
		return nil, errors.New("malformed serial number")
	}
	for _, field := range []string{"signature algorithm", "issuer", "validity", "subject", "public key"} {
		if !tbs.SkipASN1(cryptobyte_asn1.SEQUENCE) {
			return nil, errors.New("malformed " + field)
		}
	}
	if !tbs.SkipOptionalASN1(cryptobyte_asn1.Tag(1).ContextSpecific()) ||
		!tbs.SkipOptionalASN1(cryptobyte_asn1.Tag(2).ContextSpecific()) {
		return nil, errors.New("malformed unique identifier")
	}

	var extensions cryptobyte.String
	var present bool
	if !tbs.ReadOptionalASN1(&extensions, &present, cryptobyte_asn1.Tag(3).Constructed().ContextSpecific()) {
		return nil, errors.New("malformed extensions")
	}
	if !tbs.Empty() {
		return nil, errors.New("trailing data after extensions")
	}
	if !present {
		return nil, nil
	}

	var list cryptobyte.String
	if !extensions.ReadASN1(&list, cryptobyte_asn1.SEQUENCE) || !extensions.Empty() {
		return nil, errors.New("malformed extensions")
	}
	var exts []pkix.Extension
	for !list.Empty() {
		var ext cryptobyte.String
		var e pkix.Extension
		if !list.ReadASN1(&ext, cryptobyte_asn1.SEQUENCE) ||
			!ext.ReadASN1ObjectIdentifier(&e.Id) {
			return nil, errors.New("malformed extension")
		}
		if ext.PeekASN1Tag(cryptobyte_asn1.BOOLEAN) && !ext.ReadASN1Boolean(&e.Critical) {
			return nil, errors.New("malformed extension critical flag")
		}
		var value cryptobyte.String
		if !ext.ReadASN1(&value, cryptobyte_asn1.OCTET_STRING) || !ext.Empty() {
			return nil, errors.New("malformed extension value")
		}
		e.Value = value
		exts = append(exts, e)
	}
	return exts, nil
}
