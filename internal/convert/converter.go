// Package convert invokes an external ODA-compatible file converter to
// turn binary DWG drawings into the DXF exchange format.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/drafthaus/cadindex/internal/domain"
	"github.com/drafthaus/cadindex/internal/observability"
)

// wellKnownPaths are checked when no converter path is configured and
// none is found on PATH.
var wellKnownPaths = []string{
	"/usr/bin/ODAFileConverter",
	"/usr/local/bin/ODAFileConverter",
	"/opt/ODAFileConverter/ODAFileConverter",
}

// Config holds converter settings.
type Config struct {
	// Path to the converter executable; empty means auto-detect.
	Path    string
	Timeout time.Duration
	Enabled bool
	// ScratchDir is the process-private directory for conversion
	// output. Empty means a fresh temp directory.
	ScratchDir string
}

// Converter wraps the external DWG-to-DXF converter tool. Availability
// is resolved once and cached for the process lifetime.
type Converter struct {
	cfg    Config
	logger *observability.Logger

	detectOnce sync.Once
	binPath    string
	scratch    string
}

// NewConverter creates a converter. Detection of the external tool is
// deferred until first use.
func NewConverter(cfg Config, logger *observability.Logger) *Converter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	return &Converter{cfg: cfg, logger: logger.WithComponent("convert")}
}

// Available reports whether a converter executable was found.
func (c *Converter) Available() bool {
	c.detect()
	return c.binPath != ""
}

func (c *Converter) detect() {
	c.detectOnce.Do(func() {
		if !c.cfg.Enabled {
			return
		}
		if c.cfg.Path != "" {
			if _, err := os.Stat(c.cfg.Path); err == nil {
				c.binPath = c.cfg.Path
			}
			return
		}
		if p, err := exec.LookPath("ODAFileConverter"); err == nil {
			c.binPath = p
			return
		}
		for _, p := range wellKnownPaths {
			if _, err := os.Stat(p); err == nil {
				c.binPath = p
				return
			}
		}
	})
}

// Convert runs the external tool against one DWG file and returns the
// path of the produced DXF plus a cleanup function that removes the
// conversion's scratch subdirectory. The cleanup function is always
// safe to call, including on error returns.
func (c *Converter) Convert(ctx context.Context, dwgPath string) (string, func(), error) {
	cleanup := func() {}

	c.detect()
	if c.binPath == "" {
		return "", cleanup, domain.ErrConversionUnavailable
	}

	scratch, err := c.scratchDir()
	if err != nil {
		return "", cleanup, fmt.Errorf("scratch dir: %w", err)
	}

	// Each conversion gets its own subdirectory so parallel callers
	// never collide on output artifacts.
	outDir, err := os.MkdirTemp(scratch, "conv-*")
	if err != nil {
		return "", cleanup, fmt.Errorf("conversion dir: %w", err)
	}
	cleanup = func() { _ = os.RemoveAll(outDir) }

	absIn, err := filepath.Abs(dwgPath)
	if err != nil {
		return "", cleanup, fmt.Errorf("resolve input: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	// ODA File Converter signature:
	//   <inDir> <outDir> <outVersion> <outFormat> <recurse> <audit> [filter]
	cmd := exec.CommandContext(runCtx, c.binPath,
		filepath.Dir(absIn),
		outDir,
		"ACAD2018",
		"DXF",
		"0",
		"1",
		filepath.Base(absIn),
	)

	c.logger.Debug().
		Str("input", absIn).
		Str("out_dir", outDir).
		Msg("Running DWG converter")

	output, runErr := cmd.CombinedOutput()

	expected := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(absIn), filepath.Ext(absIn))+".dxf")
	if _, statErr := os.Stat(expected); statErr == nil {
		return expected, cleanup, nil
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return "", cleanup, domain.ErrConversionTimeout
	}
	if runErr != nil {
		c.logger.Warn().
			Err(runErr).
			Str("output", truncate(string(output), 200)).
			Msg("Converter exited with error")
	}
	return "", cleanup, domain.ErrConversionFailed
}

// Close removes the process scratch directory.
func (c *Converter) Close() error {
	if c.scratch != "" && c.cfg.ScratchDir == "" {
		return os.RemoveAll(c.scratch)
	}
	return nil
}

func (c *Converter) scratchDir() (string, error) {
	if c.scratch != "" {
		return c.scratch, nil
	}
	if c.cfg.ScratchDir != "" {
		if err := os.MkdirAll(c.cfg.ScratchDir, 0o755); err != nil {
			return "", err
		}
		c.scratch = c.cfg.ScratchDir
		return c.scratch, nil
	}
	dir, err := os.MkdirTemp("", "cadindex-convert-*")
	if err != nil {
		return "", err
	}
	c.scratch = dir
	return dir, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
