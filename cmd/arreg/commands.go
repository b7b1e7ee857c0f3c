package main

import (
	"bytes"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/trumank/drg-mods/registry"
	"github.com/trumank/drg-mods/snapshot"
)

func requireArgs(c *cli.Context, n int) error {
	if c.NArg() != n {
		return errors.Errorf("%v: expected %v, got %v arguments", c.Command.Name, c.Command.ArgsUsage, c.NArg())
	}
	return nil
}

func readBlob(path string) ([]byte, *registry.Registry, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read blob")
	}
	reg, err := registry.Decode(blob)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "decode %v", path)
	}
	return blob, reg, nil
}

// encode encodes reg, failing on values that do not fit when strict is configured.
func (a *arreg) encode(reg *registry.Registry) ([]byte, error) {
	var buff bytes.Buffer
	enc := registry.NewEncoder(&buff)
	enc.Strict = a.cfg.Strict
	if err := enc.Encode(reg); err != nil {
		return nil, errors.Wrap(err, "encode")
	}
	return buff.Bytes(), nil
}

// snapshotOptions resolves the options for a snapshot file from the format and compression flags,
// then the file's extensions, then the configuration.
func (a *arreg) snapshotOptions(c *cli.Context, path string) (snapshot.Options, error) {
	opts, err := snapshot.OptionsForPath(path)
	if err != nil && !errors.Is(err, snapshot.ErrUnknownFormat) {
		return snapshot.Options{}, err
	}
	opts = opts.WithDefaults(a.cfg.Snapshot)

	if c.IsSet("format") {
		if opts.Format, err = snapshot.ParseFormat(c.String("format")); err != nil {
			return snapshot.Options{}, err
		}
	}
	if c.IsSet("compression") {
		if opts.Compression, err = snapshot.ParseCompression(c.String("compression")); err != nil {
			return snapshot.Options{}, err
		}
	}
	return opts, nil
}

func (a *arreg) info(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	path := c.Args().First()

	blob, reg, err := readBlob(path)
	if err != nil {
		return err
	}
	source := snapshot.FingerprintOf(blob)

	w := c.App.Writer
	row := func(name string, value interface{}) {
		fmt.Fprintf(w, "%-18v %v\n", name, value)
	}
	row("version", reg.Version)
	row("sha256", source.SHA256)
	row("blake3", source.BLAKE3)
	row("size", len(blob))
	row("names", len(reg.Names))
	row("texts", len(reg.Texts))
	row("numberless names", len(reg.NumberlessNames))
	row("numbered names", len(reg.NumberedNames))
	row("assets", len(reg.Assets))
	row("export paths", len(reg.ExportPaths))
	row("ansi strings", len(reg.AnsiStrings))
	row("wide strings", len(reg.WideStrings))
	row("pairs", len(reg.Pairs))
	row("asset data", len(reg.AssetData))
	row("dependencies", len(reg.Dependencies.Indices))

	reencoded, err := a.encode(reg)
	if err != nil {
		return err
	}
	if bytes.Equal(reencoded, blob) {
		row("round trip", "identical")
	} else {
		row("round trip", fmt.Sprintf("differs (%v bytes re-encoded)", len(reencoded)))
	}
	return nil
}

func (a *arreg) export(c *cli.Context) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	in, out := c.Args().Get(0), c.Args().Get(1)

	opts, err := a.snapshotOptions(c, out)
	if err != nil {
		return err
	}

	blob, err := os.ReadFile(in)
	if err != nil {
		return errors.Wrap(err, "read blob")
	}
	doc, err := snapshot.New(blob)
	if err != nil {
		return errors.Wrapf(err, "decode %v", in)
	}

	f, err := os.Create(out)
	if err != nil {
		return errors.Wrap(err, "create snapshot")
	}
	if err := snapshot.Write(f, doc, opts); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %v", out)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "close %v", out)
	}

	logrus.WithFields(logrus.Fields{
		"format":      opts.Format,
		"compression": opts.Compression,
		"source":      doc.Source.SHA256,
	}).Infof("exported %v to %v", in, out)
	return nil
}

func (a *arreg) importSnapshot(c *cli.Context) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	in, out := c.Args().Get(0), c.Args().Get(1)

	opts, err := a.snapshotOptions(c, in)
	if err != nil {
		return err
	}

	f, err := os.Open(in)
	if err != nil {
		return errors.Wrap(err, "open snapshot")
	}
	defer f.Close()

	doc, err := snapshot.Read(f, opts)
	if err != nil {
		return errors.Wrapf(err, "read %v", in)
	}

	blob, err := a.encode(doc.Registry)
	if err != nil {
		return err
	}

	matches := doc.Source.Matches(blob)
	if !matches && c.Bool("require-match") {
		return errors.Errorf("encoded registry differs from source %v", doc.Source.SHA256)
	}

	if err := os.WriteFile(out, blob, 0o644); err != nil {
		return errors.Wrap(err, "write blob")
	}

	entry := logrus.WithField("sha256", snapshot.FingerprintOf(blob).SHA256)
	if matches {
		entry.Infof("imported %v to %v, identical to source", in, out)
	} else {
		entry.WithField("source", doc.Source.SHA256).Warnf("imported %v to %v, differs from source", in, out)
	}
	return nil
}

// verifyBlob decodes blob, encodes it, and checks that decoding and encoding the result reproduces it.
// identical reports whether the first encoding reproduced blob itself.
func (a *arreg) verifyBlob(blob []byte) (identical bool, err error) {
	reg, err := registry.Decode(blob)
	if err != nil {
		return false, errors.Wrap(err, "decode")
	}
	first, err := a.encode(reg)
	if err != nil {
		return false, err
	}
	again, err := registry.Decode(first)
	if err != nil {
		return false, errors.Wrap(err, "decode re-encoded blob")
	}
	second, err := a.encode(again)
	if err != nil {
		return false, errors.Wrap(err, "encode re-decoded registry")
	}
	if !bytes.Equal(first, second) {
		return false, errors.New("re-encoding is not stable")
	}
	return bytes.Equal(first, blob), nil
}

func (a *arreg) verify(c *cli.Context) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return errors.Errorf("%v: expected %v", c.Command.Name, c.Command.ArgsUsage)
	}

	workers := a.cfg.Workers
	if c.IsSet("workers") {
		workers = c.Int("workers")
	}
	if workers < 1 {
		return errors.Errorf("--workers must be at least 1, got %v", workers)
	}

	var failed int32
	eg, ctx := errgroup.WithContext(c.Context)
	eg.SetLimit(workers)
	for _, path := range paths {
		path := path
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			blob, err := os.ReadFile(path)
			if err != nil {
				return errors.Wrap(err, "read blob")
			}

			entry := logrus.WithField("file", path)
			identical, err := a.verifyBlob(blob)
			if err != nil {
				atomic.AddInt32(&failed, 1)
				entry.WithError(err).Error("verification failed")
				return nil
			}
			entry.WithField("identical", identical).Info("verified")
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	if failed > 0 {
		return errors.Errorf("%v of %v blobs failed verification", failed, len(paths))
	}
	fmt.Fprintf(c.App.Writer, "verified %v blobs\n", len(paths))
	return nil
}

func (a *arreg) assets(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}

	_, reg, err := readBlob(c.Args().First())
	if err != nil {
		return err
	}

	assets, err := reg.AssetsOfClass(c.String("class"))
	if err != nil {
		return err
	}
	for _, asset := range assets {
		fmt.Fprintf(c.App.Writer, "%v\t%v\t%v\n", asset.AssetClass, asset.ObjectPath, asset.PackageName)
	}
	logrus.Debugf("%v of %v assets listed", len(assets), len(reg.AssetData))
	return nil
}
