package installer

import (
	"bytes"
	"fmt"

	"github.com/kyrylokulyhin/pour/internal/formula"
	"github.com/sigstore/sigstore-go/pkg/bundle"
	"github.com/sigstore/sigstore-go/pkg/root"
	"github.com/sigstore/sigstore-go/pkg/verify"
)

// VerifyBundle checks a Sigstore bundle over data. The bundle must carry a
// certificate issued to cosign.Identity by cosign.Issuer, a transparency log
// entry and an observer timestamp, all checked against the trusted root at
// cosign.TrustedRoot.
func VerifyBundle(data, bundleJSON []byte, cosign formula.CosignSpec) error {
	trustedRoot, err := root.NewTrustedRootFromPath(cosign.TrustedRoot)
	if err != nil {
		return fmt.Errorf("%w: load trusted root: %w", ErrIntegrity, err)
	}

	verifier, err := verify.NewVerifier(trustedRoot,
		verify.WithSignedCertificateTimestamps(1),
		verify.WithTransparencyLog(1),
		verify.WithObserverTimestamps(1),
	)
	if err != nil {
		return fmt.Errorf("%w: create verifier: %w", ErrIntegrity, err)
	}

	identity, err := verify.NewShortCertificateIdentity(cosign.Issuer, "", cosign.Identity, "")
	if err != nil {
		return fmt.Errorf("%w: certificate identity: %w", ErrIntegrity, err)
	}

	b, err := loadBundle(bundleJSON)
	if err != nil {
		return fmt.Errorf("%w: load bundle: %w", ErrIntegrity, err)
	}

	policy := verify.NewPolicy(
		verify.WithArtifact(bytes.NewReader(data)),
		verify.WithCertificateIdentity(identity),
	)
	if _, err := verifier.Verify(b, policy); err != nil {
		return fmt.Errorf("%w: verify bundle: %w", ErrIntegrity, err)
	}

	return nil
}

func loadBundle(bundleJSON []byte) (*bundle.Bundle, error) {
	var b bundle.Bundle
	if err := b.UnmarshalJSON(bundleJSON); err != nil {
		return nil, err
	}
	return &b, nil
}
