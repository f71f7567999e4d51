// Package clip copies crash reports to the clipboard, falling back to a
// temporary file when no clipboard is reachable.
package clip

import (
	"errors"
	"fmt"
	"io"
	"os"

	atotto "github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
	"golang.org/x/term"
)

// Method is the mechanism that made the report available.
type Method string

const (
	MethodNative Method = "native" // OS clipboard
	MethodOSC52  Method = "osc52"  // terminal clipboard escape sequence
	MethodFile   Method = "file"   // temp file, no clipboard reachable
)

// Result reports how the content was delivered.
type Result struct {
	Method   Method
	FilePath string // only set when Method == MethodFile
}

// osc52LimitBytes caps the escape sequence payload; terminals drop larger ones.
const osc52LimitBytes = 100_000

// Copier tries each delivery method in order: native, OSC52, temp file.
type Copier struct {
	Native   func(text string) error
	Terminal io.Writer
	IsTTY    func() bool
	TempDir  string
	Getenv   func(string) string
}

// NewCopier returns a Copier using the OS clipboard and stderr.
func NewCopier() *Copier {
	return &Copier{
		Native:   atotto.WriteAll,
		Terminal: os.Stderr,
		IsTTY:    func() bool { return term.IsTerminal(int(os.Stderr.Fd())) },
		Getenv:   os.Getenv,
	}
}

// Copy delivers text by the first method that succeeds.
func (c *Copier) Copy(text string) (Result, error) {
	if text == "" {
		return Result{}, errors.New("nothing to copy")
	}

	if c.Native != nil && !atotto.Unsupported {
		if err := c.Native(text); err == nil {
			return Result{Method: MethodNative}, nil
		}
	}

	if err := c.writeOSC52(text); err == nil {
		return Result{Method: MethodOSC52}, nil
	}

	path, err := c.writeTempFile(text)
	if err != nil {
		return Result{}, fmt.Errorf("writing report to temp file: %w", err)
	}
	return Result{Method: MethodFile, FilePath: path}, nil
}

func (c *Copier) writeOSC52(text string) error {
	if c.Terminal == nil || c.IsTTY == nil || !c.IsTTY() {
		return errors.New("no terminal for OSC52")
	}
	if len(text) > osc52LimitBytes {
		return fmt.Errorf("text too large for OSC52 (%d bytes > %d)", len(text), osc52LimitBytes)
	}

	seq := osc52.New(text).Limit(osc52LimitBytes)
	getenv := c.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if getenv("TMUX") != "" {
		seq = seq.Tmux()
	} else if getenv("STY") != "" {
		seq = seq.Screen()
	}

	_, err := seq.WriteTo(c.Terminal)
	return err
}

func (c *Copier) writeTempFile(text string) (path string, err error) {
	f, err := os.CreateTemp(c.TempDir, "crashguard-report-*.md")
	if err != nil {
		return "", err
	}
	path = f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(path)
		}
	}()

	if _, err = f.WriteString(text); err != nil {
		return "", err
	}
	if err = f.Close(); err != nil {
		return "", err
	}
	return path, nil
}
