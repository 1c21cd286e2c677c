package integrity

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
)

const (
	// MinKeyBits is the smallest RSA modulus accepted for signing keys.
	MinKeyBits = 2048
	// Algorithm names the signature scheme recorded alongside stored keys.
	Algorithm = "RSA-PKCS1v15-SHA256"
)

var (
	// ErrMalformedKey means a PEM block was missing, of the wrong type or not RSA.
	ErrMalformedKey = errors.New("integrity: malformed RSA key")
	// ErrMalformedSignature means a signature was empty or not hex.
	ErrMalformedSignature = errors.New("integrity: malformed signature")
	// ErrKeyTooSmall is returned when asked to generate a key below MinKeyBits.
	ErrKeyTooSmall = errors.New("integrity: RSA key size below minimum")
)

// PEMKeyPair is an RSA keypair in its persisted encodings.
type PEMKeyPair struct {
	PublicKeyPEM  string // SPKI ("PUBLIC KEY")
	PrivateKeyPEM string // PKCS#8 ("PRIVATE KEY")
	Fingerprint   string // SHA-256 of the SPKI DER
}

// GenerateRSAKeyPair creates a new keypair. A nil random uses crypto/rand.
func GenerateRSAKeyPair(random io.Reader, bits int) (*PEMKeyPair, error) {
	if bits < MinKeyBits {
		return nil, fmt.Errorf("%w: %d < %d", ErrKeyTooSmall, bits, MinKeyBits)
	}
	if random == nil {
		random = rand.Reader
	}

	key, err := rsa.GenerateKey(random, bits)
	if err != nil {
		return nil, fmt.Errorf("generate RSA key: %w", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}

	return &PEMKeyPair{
		PublicKeyPEM:  string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})),
		PrivateKeyPEM: string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})),
		Fingerprint:   Seal(pubDER),
	}, nil
}

// ParsePrivateKey decodes a PKCS#8 (or legacy PKCS#1) RSA private key.
func ParsePrivateKey(pemText string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block", ErrMalformedKey)
	}

	switch block.Type {
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: not an RSA key", ErrMalformedKey)
		}
		return key, nil
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unexpected PEM type %q", ErrMalformedKey, block.Type)
	}
}

// ParsePublicKey decodes an SPKI RSA public key.
func ParsePublicKey(pemText string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block", ErrMalformedKey)
	}
	if block.Type != "PUBLIC KEY" {
		return nil, fmt.Errorf("%w: unexpected PEM type %q", ErrMalformedKey, block.Type)
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", ErrMalformedKey)
	}
	return key, nil
}

// Sign returns the hex RSA PKCS#1 v1.5 SHA-256 signature of payload.
func Sign(payload []byte, privateKeyPEM string) (string, error) {
	key, err := ParsePrivateKey(privateKeyPEM)
	if err != nil {
		return "", err
	}

	digest := sha256.Sum256(payload)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("sign payload: %w", err)
	}
	return hex.EncodeToString(sig), nil
}

// Verify checks a hex signature over payload. A well-formed signature that
// does not match returns (false, nil); only malformed inputs return an error.
func Verify(payload []byte, signatureHex, publicKeyPEM string) (bool, error) {
	if signatureHex == "" {
		return false, fmt.Errorf("%w: empty", ErrMalformedSignature)
	}
	sig, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}

	key, err := ParsePublicKey(publicKeyPEM)
	if err != nil {
		return false, err
	}

	digest := sha256.Sum256(payload)
	return rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], sig) == nil, nil
}
