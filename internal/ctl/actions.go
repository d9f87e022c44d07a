package ctl

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"hvxhost/internal/common/fsutil"
	"hvxhost/internal/config"
	"hvxhost/internal/kernel"
	"hvxhost/internal/lift"
	"hvxhost/internal/manager"
	"hvxhost/internal/registry"
	"hvxhost/internal/remote"
	"hvxhost/internal/stack"
)

// RunOptions describes one local kernel invocation.
type RunOptions struct {
	Image   string
	Symbol  string
	Inputs  []string // files, one buffer each
	Scalars []string // "type:value", e.g. "i32:640"
	Outputs []int    // byte sizes
	// OutPrefix writes output i to <OutPrefix><i>.bin; empty prints base64.
	OutPrefix string
	CodeMode  string
}

// Overridable for tests.
var (
	fnOpener     = func() kernel.Opener { return kernel.NativeOpener() }
	fnRunKernel  = runKernel
	fnListImages = listImages
	fnShowStatus = showStatus
	fnLift       = liftFile
)

// localConfig returns the daemon config used for one-shot runs.
func localConfig(cfg *Config) (config.Config, error) {
	var c config.Config
	if cfg.ConfigPath != "" {
		loaded, err := config.Load(cfg.ConfigPath)
		if err != nil {
			return c, err
		}
		c = loaded
	}
	if cfg.KernelsDir != "" {
		c.KernelsDir = cfg.KernelsDir
	}
	if err := c.ApplyDefaults(); err != nil {
		return c, err
	}
	return c, nil
}

// runKernel loads an image, invokes one symbol and releases the image
// through the handle-based bridge.
func runKernel(cfg *Config, o RunOptions, w io.Writer) error {
	c, err := localConfig(cfg)
	if err != nil {
		return err
	}
	if o.CodeMode != "" {
		c.CodeMode = o.CodeMode
	}
	st, err := stack.Build(c, fnOpener(), logger)
	if err != nil {
		return err
	}

	image := o.Image
	// A bare name that is not a local file is looked up in the kernels dir.
	if !strings.ContainsRune(image, filepath.Separator) && !fsutil.PathExists(image) {
		if images, err := registry.LoadDir(c.KernelsDir); err == nil {
			if img, ok := registry.Find(images, image); ok {
				image = img.Path
			}
		}
	}
	var code []byte
	if st.Loader.CodeMode() == kernel.CodeModeBytes {
		if code, err = os.ReadFile(image); err != nil {
			return fmt.Errorf("read image: %w", err)
		}
	} else {
		code = []byte(image)
	}

	inputs := make([][]byte, 0, len(o.Inputs))
	for _, p := range o.Inputs {
		b, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		inputs = append(inputs, b)
	}
	scalars, err := parseScalars(o.Scalars)
	if err != nil {
		return err
	}
	outputs := make([][]byte, len(o.Outputs))
	for i, n := range o.Outputs {
		if n < 0 {
			return fmt.Errorf("output %d: negative size %d", i, n)
		}
		outputs[i] = make([]byte, n)
	}

	b := remote.NewBridge(st.Loader, logger)
	h, rc := b.InitializeKernels(code, len(code))
	if rc != remote.StatusOK {
		return fmt.Errorf("initialize kernels: status %d", rc)
	}
	defer func() {
		if rc := b.ReleaseKernels(h, len(code)); rc != remote.StatusOK {
			warn("[run] release kernels: status %d", rc)
		}
	}()
	sym := b.GetSymbol(h, o.Symbol, len(o.Symbol))
	if sym == 0 {
		return fmt.Errorf("symbol %q not found in %s", o.Symbol, image)
	}
	debug("[run] %s %s inputs=%d scalars=%d outputs=%v", image, o.Symbol, len(inputs), len(scalars), o.Outputs)

	start := time.Now()
	rc = b.Run(h, sym, inputs, scalars, outputs)
	fmt.Fprintf(w, "status %d (%s)\n", rc, time.Since(start).Round(time.Microsecond))
	for i, out := range outputs {
		if o.OutPrefix == "" {
			fmt.Fprintf(w, "output[%d] %s\n", i, base64.StdEncoding.EncodeToString(out))
			continue
		}
		p := o.OutPrefix + strconv.Itoa(i) + ".bin"
		if err := os.WriteFile(p, out, 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		info("[run] wrote %s (%d bytes)", p, len(out))
	}
	if rc != remote.StatusOK {
		return fmt.Errorf("kernel %s returned %d", o.Symbol, rc)
	}
	return nil
}

// parseScalars turns "type:value" pairs into little-endian bytes.
func parseScalars(in []string) ([][]byte, error) {
	out := make([][]byte, 0, len(in))
	for _, s := range in {
		typ, val, ok := strings.Cut(s, ":")
		if !ok {
			return nil, fmt.Errorf("scalar %q: want type:value", s)
		}
		b, err := manager.EncodeScalar(typ, json.Number(strings.TrimSpace(val)))
		if err != nil {
			return nil, fmt.Errorf("scalar %q: %w", s, err)
		}
		out = append(out, b)
	}
	return out, nil
}

func listImages(cfg *Config, w io.Writer) error {
	c, err := localConfig(cfg)
	if err != nil {
		return err
	}
	images, err := registry.LoadDir(c.KernelsDir)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSIZE\tPATH")
	for _, img := range images {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", img.ID, img.SizeBytes, img.Path)
	}
	return tw.Flush()
}

func showStatus(cfg *Config, wait time.Duration, w io.Writer) error {
	if wait > 0 {
		if err := waitHTTP(baseURL(cfg.Addr)+"/readyz", 200, wait, 250*time.Millisecond); err != nil {
			return err
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	st, err := fetchStatus(ctx, cfg.Addr)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}

// liftFile applies call lifting to a JSON function map read from path
// ("-" for stdin).
func liftFile(path string, in io.Reader, w io.Writer) error {
	r := in
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	env, err := lift.Decode(r)
	if err != nil {
		return err
	}
	return lift.Encode(w, lift.LiftCalls(env))
}
