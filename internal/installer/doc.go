// Package installer downloads, verifies and installs prebuilt binaries
// described by a formula.Descriptor.
//
// # Pipeline
//
// An install runs four stages strictly in order and stops at the first
// failure:
//
//  1. resolve: fetch the archive bytes from the resolved source URL
//  2. verify: check the SHA-256 digest, then any OpenPGP signature or
//     Sigstore bundle the descriptor declares
//  3. place: extract the named entry and move it into the destination
//     directory with an atomic rename
//  4. smoke test: run the installed binary (by default with --version)
//
// Every error is a *StageError naming the stage, and wraps one of the
// sentinel errors below so callers can classify it with errors.Is:
//
//	ErrNetwork       transport failure or unexpected HTTP status
//	ErrNotFound      the source URL returned 404 or 410
//	ErrIntegrity     digest, signature or bundle mismatch
//	ErrExtraction    malformed archive or missing entry
//	ErrPermission    destination directory not writable
//	ErrVerification  the smoke test failed
//
// Nothing is retried. An artifact is never installed without a digest
// match.
//
// # Atomicity
//
// Nothing is written to the destination directory until the archive has
// been verified and the entry extracted. The entry is written to a hidden
// temp file beside its final path and renamed into place. If the smoke
// test then fails, the previous binary is restored, or the new one is
// removed when there was none.
//
// # Usage
//
//	inst, err := installer.New(installer.Config{
//	    Prefix:   "/usr/local/bin",
//	    StateDir: "/var/lib/pour",
//	    Detector: platform.NewDetector(),
//	})
//	if err != nil {
//	    return err
//	}
//	result, err := inst.Install(ctx, descriptor, installer.InstallOptions{})
package installer
