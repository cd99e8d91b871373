package subagent

import (
	"embed"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

//go:embed template
var builtinTemplate embed.FS

type templateDir struct {
	fsys fs.FS
}

// openTemplate returns the template directory at path, or the built-in
// template when path is empty
func openTemplate(path string) (*templateDir, error) {
	if path == "" {
		sub, err := fs.Sub(builtinTemplate, "template")
		if err != nil {
			return nil, errors.Wrap(err, "failed to open built-in template")
		}
		return &templateDir{fsys: sub}, nil
	}

	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil, invalid("template path %s is not a directory", path)
	}
	return &templateDir{fsys: os.DirFS(path)}, nil
}

func (t *templateDir) copyTo(dst string) error {
	return fs.WalkDir(t.fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		destPath := filepath.Join(dst, filepath.FromSlash(path))
		if d.IsDir() {
			return os.MkdirAll(destPath, 0o755)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(t.fsys, path, destPath, info.Mode().Perm()|0o600)
	})
}

func copyFile(fsys fs.FS, src, dst string, perm fs.FileMode) error {
	srcFile, err := fsys.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	return err
}

// DefaultWorkspace returns the built-in workspace file content
func DefaultWorkspace() ([]byte, error) {
	data, err := builtinTemplate.ReadFile("template/" + WorkspaceFileName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read built-in workspace")
	}
	return data, nil
}

// Prepare readies a subagent for a dispatch: it installs the workspace file
// (workspaceSource when it exists, otherwise the built-in one) and creates
// the messages directory. The chatmode is written by the caller.
func (p *Pool) Prepare(s Subagent, workspaceSource string) error {
	if err := os.MkdirAll(s.MessagesDir(), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create messages directory for %s", s.Name)
	}

	var data []byte
	var err error
	if workspaceSource != "" && isFile(workspaceSource) {
		data, err = os.ReadFile(workspaceSource)
		if err != nil {
			return errors.Wrapf(err, "failed to read workspace '%s'", workspaceSource)
		}
	} else {
		data, err = DefaultWorkspace()
		if err != nil {
			return err
		}
	}

	if err := os.WriteFile(s.WorkspacePath(), data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write workspace for %s", s.Name)
	}
	return nil
}
