package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kyrylokulyhin/pour/internal/formula"
	"github.com/kyrylokulyhin/pour/internal/platform"
	"github.com/kyrylokulyhin/pour/internal/transaction"
)

// Installer runs the install pipeline for package descriptors.
type Installer struct {
	prefix    string
	stateDir  string
	detector  platform.Detector
	fetcher   *Fetcher
	extractor *Extractor
	cache     *Cache
	receipts  *ReceiptStore
	logger    Logger
}

// New creates an installer.
func New(cfg Config) (*Installer, error) {
	if cfg.Prefix == "" {
		return nil, errors.New("prefix is required")
	}
	if cfg.StateDir == "" {
		return nil, errors.New("state dir is required")
	}
	if cfg.Detector == nil {
		return nil, errors.New("platform detector is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = defaultLogger()
	}

	return &Installer{
		prefix:    cfg.Prefix,
		stateDir:  cfg.StateDir,
		detector:  cfg.Detector,
		fetcher:   NewFetcher(cfg.MaxDownloadSize, cfg.Progress),
		extractor: NewExtractor(cfg.MaxDownloadSize),
		cache:     NewCache(cfg.CacheDir),
		receipts:  NewReceiptStore(filepath.Join(cfg.StateDir, "receipts")),
		logger:    logger,
	}, nil
}

func (i *Installer) txnDir() string {
	return filepath.Join(i.stateDir, "txn")
}

// BinPath returns where d's binary is installed.
func (i *Installer) BinPath(d formula.Descriptor) string {
	return filepath.Join(i.prefix, d.Bin())
}

// Install fetches, verifies, places and smoke-tests d's binary. The steps
// run strictly in order and the first failure stops the pipeline; the
// returned error is a *StageError. A failed smoke test puts the previous
// binary back.
func (i *Installer) Install(ctx context.Context, d formula.Descriptor, opts InstallOptions) (*Result, error) {
	startTime := time.Now()

	r, err := i.resolve(ctx, d)
	if err != nil {
		return nil, err
	}

	lock, err := transaction.AcquireLock(ctx, i.stateDir)
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	defer lock.Release()

	if err := i.recoverInterrupted(); err != nil {
		return nil, err
	}

	destPath := i.BinPath(d)

	if !opts.Force {
		if receipt, ok := i.installedReceipt(r, destPath); ok {
			i.logger.Info("already installed", "name", r.Name(), "version", r.Version(), "path", destPath)
			return &Result{
				Name:    r.Name(),
				Version: r.Version(),
				Target:  r.Target,
				URL:     r.URL,
				Path:    destPath,
				Skipped: true,
				Receipt: receipt,
			}, nil
		}
	}

	data, fromCache, methods, err := i.obtain(ctx, r, opts.NoCache)
	if err != nil {
		return nil, err
	}

	content, format, err := i.extractor.ExtractEntry(data, r.Bin())
	if err != nil {
		return nil, stageError(StagePlace, err)
	}
	i.logger.Debug("extracted entry", "entry", r.Bin(), "format", string(format), "bytes", len(content))

	placement, err := i.place(ctx, content, r)
	if err != nil {
		return nil, err
	}

	txn := placement.txn
	smoke, err := SmokeTest(ctx, placement.Path, r.TestArgs()...)
	if err != nil {
		i.logger.Warn("smoke test failed, rolling back", "name", r.Name(), "error", err)
		i.rollback(placement.Placement, txn)
		return nil, stageError(StageSmokeTest, err)
	}
	i.logger.Debug("smoke test passed", "path", placement.Path, "output", smoke.Output)

	// Journal goes first: a crash after this point must not roll back a
	// confirmed binary.
	i.clearJournal(txn)
	if err := placement.Commit(); err != nil {
		i.logger.Warn("failed to remove backup", "error", err)
	}

	receipt := newReceipt(r, placement.Path, methods)
	if err := i.receipts.Save(receipt); err != nil {
		i.logger.Warn("failed to write receipt", "name", r.Name(), "error", err)
		receipt = nil
	}

	i.logger.Info("installed", "name", r.Name(), "version", r.Version(), "path", placement.Path)

	return &Result{
		Name:         r.Name(),
		Version:      r.Version(),
		Target:       r.Target,
		URL:          r.URL,
		Path:         placement.Path,
		Verified:     methods,
		FromCache:    fromCache,
		DownloadTime: time.Since(startTime),
		Receipt:      receipt,
	}, nil
}

// Fetch downloads and verifies d's archive without installing it. The
// verified archive is stored in the cache when one is configured.
func (i *Installer) Fetch(ctx context.Context, d formula.Descriptor, opts InstallOptions) (*Result, error) {
	startTime := time.Now()

	r, err := i.resolve(ctx, d)
	if err != nil {
		return nil, err
	}

	_, fromCache, methods, err := i.obtain(ctx, r, opts.NoCache)
	if err != nil {
		return nil, err
	}

	return &Result{
		Name:         r.Name(),
		Version:      r.Version(),
		Target:       r.Target,
		URL:          r.URL,
		Verified:     methods,
		FromCache:    fromCache,
		DownloadTime: time.Since(startTime),
	}, nil
}

// Test runs the smoke test against the installed binary for d. The result
// is returned whenever the binary ran, so callers can mirror its exit code.
func (i *Installer) Test(ctx context.Context, d formula.Descriptor) (*SmokeResult, error) {
	path := i.BinPath(d)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, stageError(StageSmokeTest, fmt.Errorf("%w: %s: %w", ErrVerification, path, ErrNotInstalled))
		}
		return nil, stageError(StageSmokeTest, classifyFSError(err))
	}

	result, err := SmokeTest(ctx, path, d.TestArgs()...)
	return result, stageError(StageSmokeTest, err)
}

// Uninstall removes the binary recorded in name's receipt, then the
// receipt itself.
func (i *Installer) Uninstall(ctx context.Context, name string) (*Receipt, error) {
	lock, err := transaction.AcquireLock(ctx, i.stateDir)
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	defer lock.Release()

	if err := i.recoverInterrupted(); err != nil {
		return nil, err
	}

	receipt, err := i.receipts.Load(name)
	if err != nil {
		return nil, err
	}

	if err := os.Remove(receipt.Path); err != nil && !os.IsNotExist(err) {
		return nil, classifyFSError(fmt.Errorf("remove %s: %w", receipt.Path, err))
	}
	if err := i.receipts.Remove(name); err != nil {
		return nil, err
	}

	i.logger.Info("uninstalled", "name", name, "path", receipt.Path)
	return receipt, nil
}

// List returns the receipts of installed packages.
func (i *Installer) List() ([]*Receipt, error) {
	return i.receipts.List()
}

func (i *Installer) resolve(ctx context.Context, d formula.Descriptor) (formula.Resolved, error) {
	info, err := i.detector.Detect(ctx)
	if err != nil {
		return formula.Resolved{}, stageError(StageResolve, fmt.Errorf("detect platform: %w", err))
	}

	r, err := d.Resolve(info)
	if err != nil {
		return formula.Resolved{}, stageError(StageResolve, err)
	}

	i.logger.Debug("resolved source", "name", r.Name(), "target", r.Target, "url", r.URL)
	return r, nil
}

// obtain returns verified archive bytes for r, from the cache when a cached
// copy still verifies, otherwise from the network.
func (i *Installer) obtain(ctx context.Context, r formula.Resolved, noCache bool) ([]byte, bool, []VerificationMethod, error) {
	var (
		data      []byte
		fromCache bool
	)

	if !noCache {
		if cached, ok := i.cache.Get(r); ok {
			if _, err := Verify(cached, r.Digest()); err == nil {
				i.logger.Debug("using cached archive", "name", r.Name(), "file", r.Filename())
				data, fromCache = cached, true
			} else {
				i.logger.Warn("cached archive failed verification, fetching again", "name", r.Name(), "error", err)
				if rmErr := i.cache.Remove(r); rmErr != nil {
					i.logger.Warn("failed to drop cache entry", "error", rmErr)
				}
			}
		}
	}

	if !fromCache {
		i.logger.Info("downloading", "url", r.URL)
		fetched, err := i.fetcher.Fetch(ctx, r.URL, r.Filename())
		if err != nil {
			return nil, false, nil, stageError(StageResolve, err)
		}
		data = fetched
	}

	if err := ctx.Err(); err != nil {
		return nil, false, nil, stageError(StageVerify, err)
	}

	verified, err := Verify(data, r.Digest())
	if err != nil {
		return nil, false, nil, stageError(StageVerify, err)
	}
	methods := []VerificationMethod{VerificationSHA256}

	if sig, ok := r.Signature(); ok {
		sigData, err := i.fetcher.Fetch(ctx, r.SignatureURL, "signature")
		if err != nil {
			return nil, false, nil, stageError(StageVerify, fmt.Errorf("download signature: %w", err))
		}
		if err := VerifySignature(verified, sigData, sig.Keyring); err != nil {
			return nil, false, nil, stageError(StageVerify, err)
		}
		methods = append(methods, VerificationGPG)
	}

	if cosign, ok := r.Cosign(); ok {
		bundleData, err := i.fetcher.Fetch(ctx, r.BundleURL, "bundle")
		if err != nil {
			return nil, false, nil, stageError(StageVerify, fmt.Errorf("download bundle: %w", err))
		}
		if err := VerifyBundle(verified, bundleData, cosign); err != nil {
			return nil, false, nil, stageError(StageVerify, err)
		}
		methods = append(methods, VerificationSigstore)
	}

	i.logger.Info("verified", "name", r.Name(), "methods", MethodNames(methods))

	if !fromCache {
		if err := i.cache.Put(r, verified); err != nil {
			i.logger.Warn("failed to cache archive", "error", err)
		}
	}

	return verified, fromCache, methods, nil
}

// journaledPlacement is a Placement whose install journal is on disk.
type journaledPlacement struct {
	*Placement
	txn *transaction.Txn
}

// place stages content, journals the staged and backup paths, then swaps
// the binary in. Recovery of a journal at any point after the first Save
// restores the destination to what it was.
func (i *Installer) place(ctx context.Context, content []byte, r formula.Resolved) (*journaledPlacement, error) {
	placement, err := stagePlacement(content, i.prefix, r.Bin())
	if err != nil {
		return nil, stageError(StagePlace, err)
	}

	txn := transaction.New(transaction.OperationInstall, r.Name(), placement.Path)
	txn.TmpPath = placement.TmpPath()
	txn.BackupPath = placement.BackupPath()
	if err := txn.Save(i.txnDir()); err != nil {
		placement.Discard()
		return nil, stageError(StagePlace, fmt.Errorf("write journal: %w", err))
	}

	if err := placement.Swap(ctx); err != nil {
		i.clearJournal(txn)
		return nil, stageError(StagePlace, err)
	}

	txn.MarkPlaced()
	if err := txn.Save(i.txnDir()); err != nil {
		i.rollback(placement, txn)
		return nil, stageError(StagePlace, fmt.Errorf("update journal: %w", err))
	}

	i.logger.Debug("placed binary", "path", placement.Path, "backup", placement.BackupPath())
	return &journaledPlacement{Placement: placement, txn: txn}, nil
}

// rollback undoes placement and clears its journal. The journal stays on
// disk when the rollback fails so the next run can retry it.
func (i *Installer) rollback(placement *Placement, txn *transaction.Txn) {
	if err := placement.Rollback(); err != nil {
		i.logger.Error("rollback failed, journal kept for recovery", "path", placement.Path, "error", err)
		return
	}
	i.clearJournal(txn)
}

func (i *Installer) clearJournal(txn *transaction.Txn) {
	if err := txn.Done(i.txnDir()); err != nil {
		i.logger.Warn("failed to clear journal", "name", txn.Name, "error", err)
	}
}

func (i *Installer) recoverInterrupted() error {
	txns, err := transaction.Recover(i.txnDir())
	for _, txn := range txns {
		i.logger.Warn("rolled back interrupted install", "name", txn.Name, "path", txn.Path, "state", string(txn.State))
	}
	if err != nil {
		return fmt.Errorf("recover interrupted install: %w", err)
	}
	return nil
}

// installedReceipt returns the receipt for r when the same version and
// target is already installed at destPath.
func (i *Installer) installedReceipt(r formula.Resolved, destPath string) (*Receipt, bool) {
	receipt, err := i.receipts.Load(r.Name())
	if err != nil {
		if !errors.Is(err, ErrNotInstalled) {
			i.logger.Warn("unreadable receipt", "name", r.Name(), "error", err)
		}
		return nil, false
	}
	if receipt.Version != r.Version() || receipt.Target != r.Target || receipt.Path != destPath {
		return nil, false
	}
	if !fileExists(destPath) {
		return nil, false
	}
	return receipt, true
}
